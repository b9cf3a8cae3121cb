package store

import (
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"restopos/backend/internal/domain"
)

const DefaultResetPIN = "1234"

func DefaultSettings() domain.Settings {
	return domain.Settings{
		RestaurantName: "Restaurant POS",
		Address:        "123 Food Street, Flavor Town",
		Phone:          "(555) 123-4567",
		CurrencySymbol: "Rs.",
		TaxRate:        decimal.NewFromInt(5),
		NumberOfTables: 12,
		FooterMessage:  "Thank you for your visit!",
		CommonNotes:    []string{"Extra Spicy", "No Onions", "Less Sugar", "Well Done"},
		StationAssignments: domain.StationAssignments{
			Kitchen: []string{"Breakfast", "Snacks"},
			Bar:     []string{"Beverages"},
		},
		ManagerPermissions: domain.ManagerPermissions{
			CanManageMenu:       true,
			CanManageUsers:      true,
			CanViewReports:      true,
			CanManageCustomers:  true,
			CanAccessAdminPanel: true,
		},
	}
}

func DefaultMenuItems() []domain.MenuItem {
	item := func(id string, name string, price int64, category string, description string, tracked bool, stock int, notes ...string) domain.MenuItem {
		return domain.MenuItem{
			ID:            id,
			Name:          name,
			Price:         decimal.NewFromInt(price),
			Category:      category,
			Description:   description,
			StockTracking: tracked,
			Stock:         stock,
			CommonNotes:   notes,
		}
	}
	return []domain.MenuItem{
		item("1", "Idly", 10, "Breakfast", "Soft, steamed rice cakes.", false, 0),
		item("2", "Puttu", 25, "Breakfast", "Steamed cylinders of ground rice layered with coconut shavings.", false, 0),
		item("3", "Poori", 30, "Breakfast", "Deep-fried whole-wheat bread.", false, 0, "Extra Spicy"),
		item("4", "Coffee", 15, "Beverages", "Freshly brewed filter coffee.", true, 50, "Less Sugar"),
		item("5", "Dosai", 35, "Breakfast", "Thin, crispy pancake of fermented rice and lentil batter.", false, 0, "Extra Spicy", "No Onions"),
		item("6", "Vada", 12, "Snacks", "Savoury fried snack, doughnut-shaped and crispy.", true, 100, "No Onions"),
		item("7", "Pazham Pori", 15, "Snacks", "Ripe plantain slices fried in a sweet batter.", false, 0),
	}
}

func DefaultCategories() []domain.Category {
	return []domain.Category{
		{ID: "cat-1", Name: "Breakfast"},
		{ID: "cat-2", Name: "Beverages"},
		{ID: "cat-3", Name: "Snacks"},
	}
}

// SeedUsers builds the initial accounts, one per role. The PIN is read from
// SEED_DEFAULT_PIN and falls back to the factory PIN with a warning.
func SeedUsers() ([]domain.UserAccount, error) {
	pin := os.Getenv("SEED_DEFAULT_PIN")
	if pin == "" {
		pin = DefaultResetPIN
		log.Println("[store] WARNING: seeding users with the factory PIN. Set SEED_DEFAULT_PIN to override.")
	}
	users := make([]domain.UserAccount, 0, 4)
	for _, u := range []struct {
		id       string
		name     string
		username string
		role     domain.Role
	}{
		{"user-1", "Admin User", "admin", domain.RoleAdmin},
		{"user-2", "Manager User", "manager", domain.RoleManager},
		{"user-3", "Waiter User", "waiter", domain.RoleWaiter},
		{"user-4", "Cashier User", "cashier", domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed pin for %s: %w", u.username, err)
		}
		users = append(users, domain.UserAccount{
			ID:       u.id,
			Name:     u.name,
			Username: u.username,
			PIN:      string(hash),
			Role:     u.role,
		})
	}
	return users, nil
}

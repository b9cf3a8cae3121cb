package store

import (
	"context"
	"errors"

	"restopos/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Repository interface {
	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	SaveMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	ReplaceMenu(ctx context.Context, items []domain.MenuItem, categories []domain.Category) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	// RenameCategory renames a category and rewrites every menu item, station
	// assignment and open order line that refers to the old name in one step.
	RenameCategory(ctx context.Context, id string, name string) (*domain.Category, error)
	// DeleteCategory also removes the category from the station assignments.
	DeleteCategory(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	UpdateUser(ctx context.Context, user domain.UserAccount) error
	DeleteUser(ctx context.Context, id string) error

	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	SaveOrder(ctx context.Context, order domain.Order) error
	DeleteOrder(ctx context.Context, id string) error
	ClearOrders(ctx context.Context) (int, error)
	SaveOrderWithCounters(ctx context.Context, order domain.Order, counters domain.Counters) error
	// FinalizeOrder stores a paid or cancelled order together with the stock
	// movements it causes. Adjustments for unknown menu items are skipped.
	FinalizeOrder(ctx context.Context, order domain.Order, adjustments []domain.StockAdjustment) error
	SplitOrder(ctx context.Context, parent domain.Order, children []domain.Order) error

	GetCounters(ctx context.Context) (domain.Counters, error)
	SaveCounters(ctx context.Context, counters domain.Counters) error
}

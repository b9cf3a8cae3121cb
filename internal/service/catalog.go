package service

import (
	"context"
	"fmt"
	"strings"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
	"restopos/backend/internal/xid"
)

func (s *Service) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return nil, err
	}
	return s.repo.ListMenuItems(ctx)
}

func (s *Service) CreateMenuItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return domain.MenuItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = xid.New("item")
	if err := s.normalizeMenuItem(ctx, &item); err != nil {
		return domain.MenuItem{}, err
	}
	created, err := s.repo.SaveMenuItem(ctx, item)
	if err != nil {
		return domain.MenuItem{}, err
	}
	s.logAudit(ctx, "menu_item_create", "menu_item", created.ID, fmt.Sprintf("name=%s,price=%s", created.Name, created.Price.StringFixed(2)))
	return *created, nil
}

// UpdateMenuItem replaces a menu item. Lines already in carts keep the
// name and price they were added with.
func (s *Service) UpdateMenuItem(ctx context.Context, id string, item domain.MenuItem) (domain.MenuItem, error) {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return domain.MenuItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetMenuItem(ctx, id); err != nil {
		return domain.MenuItem{}, err
	}
	item.ID = id
	if err := s.normalizeMenuItem(ctx, &item); err != nil {
		return domain.MenuItem{}, err
	}
	updated, err := s.repo.SaveMenuItem(ctx, item)
	if err != nil {
		return domain.MenuItem{}, err
	}
	s.logAudit(ctx, "menu_item_update", "menu_item", id, fmt.Sprintf("name=%s,price=%s", updated.Name, updated.Price.StringFixed(2)))
	return *updated, nil
}

func (s *Service) normalizeMenuItem(ctx context.Context, item *domain.MenuItem) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)
	item.ImageURL = strings.TrimSpace(item.ImageURL)
	if item.Name == "" {
		return invalid("name is required")
	}
	if !item.Price.IsPositive() {
		return invalid("price must be greater than zero")
	}
	item.Price = item.Price.Round(2)
	if item.Stock < 0 {
		return invalid("stock must not be negative")
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	category, ok := findCategory(categories, item.Category, "")
	if !ok {
		return invalid("unknown category %q", item.Category)
	}
	item.Category = category.Name
	item.CommonNotes = cleanNotes(item.CommonNotes)
	return nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "menu_item_delete", "menu_item", id, "")
	return nil
}

// SetStock is the administrative stock correction. Order payments and
// cancellations move stock on their own.
func (s *Service) SetStock(ctx context.Context, id string, req domain.StockUpdateRequest) (domain.MenuItem, error) {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return domain.MenuItem{}, err
	}
	if req.Stock < 0 {
		return domain.MenuItem{}, invalid("stock must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	item := *existing
	before := item.Stock
	item.Stock = req.Stock
	if req.StockTracking != nil {
		item.StockTracking = *req.StockTracking
	}
	updated, err := s.repo.SaveMenuItem(ctx, item)
	if err != nil {
		return domain.MenuItem{}, err
	}
	s.logAudit(ctx, "stock_set", "menu_item", id, fmt.Sprintf("before=%d,after=%d,tracking=%t", before, updated.Stock, updated.StockTracking))
	return *updated, nil
}

// ResetMenu restores the factory menu and categories.
func (s *Service) ResetMenu(ctx context.Context) ([]domain.MenuItem, error) {
	if _, err := s.require(ctx, domain.CapAdminPanel); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.ReplaceMenu(ctx, store.DefaultMenuItems(), store.DefaultCategories()); err != nil {
		return nil, err
	}
	s.logAudit(ctx, "menu_reset", "menu", "all", "")
	return s.repo.ListMenuItems(ctx)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return domain.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.uniqueCategoryName(ctx, name, "")
	if err != nil {
		return domain.Category{}, err
	}
	created, err := s.repo.SaveCategory(ctx, domain.Category{ID: xid.New("cat"), Name: name})
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category_create", "category", created.ID, "name="+created.Name)
	return *created, nil
}

// RenameCategory renames a category together with every menu item, station
// assignment and open order line that refers to it by name.
func (s *Service) RenameCategory(ctx context.Context, id string, name string) (domain.Category, error) {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return domain.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.uniqueCategoryName(ctx, name, id)
	if err != nil {
		return domain.Category{}, err
	}
	renamed, err := s.repo.RenameCategory(ctx, id, name)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category_rename", "category", id, "name="+renamed.Name)
	return *renamed, nil
}

// DeleteCategory refuses while any menu item still uses the category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.require(ctx, domain.CapManageMenu); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	var target *domain.Category
	for i := range categories {
		if categories[i].ID == id {
			target = &categories[i]
		}
	}
	if target == nil {
		return store.ErrNotFound
	}
	items, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return err
	}
	used := 0
	for _, item := range items {
		if item.Category == target.Name {
			used++
		}
	}
	if used > 0 {
		return fmt.Errorf("%w: %s has %d items", ErrCategoryInUse, target.Name, used)
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "category_delete", "category", id, "name="+target.Name)
	return nil
}

func (s *Service) uniqueCategoryName(ctx context.Context, name string, selfID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("category name is required")
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	if existing, ok := findCategory(categories, name, selfID); ok {
		return "", fmt.Errorf("%w: category %q already exists", store.ErrConflict, existing.Name)
	}
	return name, nil
}

// findCategory matches a category by name ignoring case and surrounding
// space, skipping the category with id skipID.
func findCategory(categories []domain.Category, name string, skipID string) (domain.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if c.ID != skipID && strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.Category{}, false
}

func cleanNotes(notes []string) []string {
	out := make([]string, 0, len(notes))
	for _, note := range notes {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if strings.EqualFold(seen, note) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, note)
		}
	}
	return out
}

package memory

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
)

type Store struct {
	mu         sync.RWMutex
	snapshot   *snapshotDir
	menuItems  []domain.MenuItem
	categories []domain.Category
	settings   domain.Settings
	customers  []domain.Customer
	users      []domain.UserAccount
	orders     []domain.Order
	counters   domain.Counters
}

// NewSeeded returns a store holding the default catalog, settings and users.
// Nothing is written to disk.
func NewSeeded() *Store {
	users, err := store.SeedUsers()
	if err != nil {
		log.Fatalf("[memory-store] failed to seed users: %v", err)
	}
	return &Store{
		menuItems:  store.DefaultMenuItems(),
		categories: store.DefaultCategories(),
		settings:   store.DefaultSettings(),
		customers:  []domain.Customer{},
		users:      users,
		orders:     []domain.Order{},
	}
}

// Open loads the collections mirrored in dir and keeps mirroring every change
// there. Missing or unreadable collections start from their defaults.
func Open(dir string) (*Store, error) {
	snap, err := newSnapshotDir(dir)
	if err != nil {
		return nil, err
	}
	s := NewSeeded()
	s.snapshot = snap

	load(snap, keyMenuItems, &s.menuItems, store.DefaultMenuItems)
	load(snap, keyCategories, &s.categories, store.DefaultCategories)
	load(snap, keyCustomers, &s.customers, func() []domain.Customer { return []domain.Customer{} })
	load(snap, keyOrders, &s.orders, func() []domain.Order { return []domain.Order{} })
	load(snap, keyCounters, &s.counters, func() domain.Counters { return domain.Counters{} })
	seeded := s.users
	load(snap, keyUsers, &s.users, func() []domain.UserAccount { return seeded })
	if len(s.users) == 0 {
		s.users = seeded
	}
	// Stored settings are merged over the defaults so newly added fields
	// keep a value.
	loadMerged(snap, keySettings, &s.settings, store.DefaultSettings)

	s.persist(keyMenuItems, keyCategories, keySettings, keyCustomers, keyUsers, keyOrders, keyCounters)
	return s, nil
}

func (s *Store) persist(keys ...string) {
	if s.snapshot == nil {
		return
	}
	for _, key := range keys {
		var value any
		switch key {
		case keyMenuItems:
			value = s.menuItems
		case keyCategories:
			value = s.categories
		case keySettings:
			value = s.settings
		case keyCustomers:
			value = s.customers
		case keyUsers:
			value = s.users
		case keyOrders:
			value = s.orders
		case keyCounters:
			value = s.counters
		default:
			continue
		}
		if err := s.snapshot.write(key, value); err != nil {
			log.Printf("[memory-store] WARN: persist %s: %v", key, err)
		}
	}
}

func (s *Store) ListMenuItems(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MenuItem, 0, len(s.menuItems))
	for _, item := range s.menuItems {
		out = append(out, store.CloneMenuItem(item))
	}
	return out, nil
}

func (s *Store) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.menuIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	item := store.CloneMenuItem(s.menuItems[idx])
	return &item, nil
}

func (s *Store) SaveMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item = store.CloneMenuItem(item)
	if idx := s.menuIndex(item.ID); idx >= 0 {
		s.menuItems[idx] = item
	} else {
		s.menuItems = append(s.menuItems, item)
	}
	s.persist(keyMenuItems)
	dup := store.CloneMenuItem(item)
	return &dup, nil
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.menuIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.menuItems = slices.Delete(s.menuItems, idx, idx+1)
	s.persist(keyMenuItems)
	return nil
}

func (s *Store) ReplaceMenu(_ context.Context, items []domain.MenuItem, categories []domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.menuItems = make([]domain.MenuItem, 0, len(items))
	for _, item := range items {
		s.menuItems = append(s.menuItems, store.CloneMenuItem(item))
	}
	s.categories = append([]domain.Category{}, categories...)
	s.persist(keyMenuItems, keyCategories)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category{}, s.categories...), nil
}

func (s *Store) SaveCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.categoryIndex(category.ID); idx >= 0 {
		s.categories[idx] = category
	} else {
		s.categories = append(s.categories, category)
	}
	s.persist(keyCategories)
	return &category, nil
}

func (s *Store) RenameCategory(_ context.Context, id string, name string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.categoryIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	oldName := s.categories[idx].Name
	s.categories[idx].Name = name
	for i := range s.menuItems {
		if s.menuItems[i].Category == oldName {
			s.menuItems[i].Category = name
		}
	}
	s.settings.StationAssignments = store.RenameInAssignments(s.settings.StationAssignments, oldName, name)
	for i := range s.orders {
		s.orders[i], _ = store.RenameInOrder(s.orders[i], oldName, name)
	}
	s.persist(keyCategories, keyMenuItems, keySettings, keyOrders)
	renamed := s.categories[idx]
	return &renamed, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.categoryIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	name := s.categories[idx].Name
	s.categories = slices.Delete(s.categories, idx, idx+1)
	s.settings.StationAssignments = store.RemoveFromAssignments(s.settings.StationAssignments, name)
	s.persist(keyCategories, keySettings)
	return nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CloneSettings(s.settings), nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = store.CloneSettings(settings)
	s.persist(keySettings)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Customer{}, s.customers...), nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.ID == id {
			dup := c
			return &dup, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.customers {
		if s.customers[i].ID == customer.ID {
			s.customers[i] = customer
			replaced = true
			break
		}
	}
	if !replaced {
		s.customers = append(s.customers, customer)
	}
	s.persist(keyCustomers)
	return &customer, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.customers, func(c domain.Customer) bool { return c.ID == id })
	if idx < 0 {
		return store.ErrNotFound
	}
	s.customers = slices.Delete(s.customers, idx, idx+1)
	s.persist(keyCustomers)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.UserAccount{}, s.users...), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == user.ID || strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("user %s: %w", user.Username, store.ErrConflict)
		}
	}
	s.users = append(s.users, user)
	s.persist(keyUsers)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, existing := range s.users {
		if existing.ID == user.ID {
			idx = i
			continue
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("user %s: %w", user.Username, store.ErrConflict)
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	s.users[idx] = user
	s.persist(keyUsers)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.users, func(u domain.UserAccount) bool { return u.ID == id })
	if idx < 0 {
		return store.ErrNotFound
	}
	s.users = slices.Delete(s.users, idx, idx+1)
	s.persist(keyUsers)
	return nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.Match(o) {
			out = append(out, store.CloneOrder(o))
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.orderIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	o := store.CloneOrder(s.orders[idx])
	return &o, nil
}

func (s *Store) SaveOrder(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putOrder(order)
	s.persist(keyOrders)
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.orderIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.orders = slices.Delete(s.orders, idx, idx+1)
	s.persist(keyOrders)
	return nil
}

func (s *Store) ClearOrders(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.orders)
	s.orders = []domain.Order{}
	s.persist(keyOrders)
	return n, nil
}

func (s *Store) SaveOrderWithCounters(_ context.Context, order domain.Order, counters domain.Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putOrder(order)
	s.counters = counters
	s.persist(keyOrders, keyCounters)
	return nil
}

func (s *Store) FinalizeOrder(_ context.Context, order domain.Order, adjustments []domain.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orderIndex(order.ID) < 0 {
		return store.ErrNotFound
	}
	for _, adj := range adjustments {
		idx := s.menuIndex(adj.MenuItemID)
		if idx < 0 {
			continue
		}
		s.menuItems[idx].Stock += adj.Delta
	}
	s.putOrder(order)
	s.persist(keyOrders, keyMenuItems)
	return nil
}

func (s *Store) SplitOrder(_ context.Context, parent domain.Order, children []domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orderIndex(parent.ID) < 0 {
		return store.ErrNotFound
	}
	s.putOrder(parent)
	for _, child := range children {
		s.putOrder(child)
	}
	s.persist(keyOrders)
	return nil
}

func (s *Store) GetCounters(_ context.Context) (domain.Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters, nil
}

func (s *Store) SaveCounters(_ context.Context, counters domain.Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = counters
	s.persist(keyCounters)
	return nil
}

func (s *Store) putOrder(order domain.Order) {
	order = store.CloneOrder(order)
	if idx := s.orderIndex(order.ID); idx >= 0 {
		s.orders[idx] = order
		return
	}
	s.orders = append(s.orders, order)
}

func (s *Store) orderIndex(id string) int {
	return slices.IndexFunc(s.orders, func(o domain.Order) bool { return o.ID == id })
}

func (s *Store) menuIndex(id string) int {
	return slices.IndexFunc(s.menuItems, func(m domain.MenuItem) bool { return m.ID == id })
}

func (s *Store) categoryIndex(id string) int {
	return slices.IndexFunc(s.categories, func(c domain.Category) bool { return c.ID == id })
}

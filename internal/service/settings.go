package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"restopos/backend/internal/domain"
)

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Settings{}, ErrForbidden
	}
	return s.repo.GetSettings(ctx)
}

// UpdateSettings applies the fields present in req. A new tax rate only
// affects orders created afterwards.
func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := s.require(ctx, domain.CapAdminPanel); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if req.RestaurantName != nil {
		name := strings.TrimSpace(*req.RestaurantName)
		if name == "" {
			return domain.Settings{}, invalid("restaurant name is required")
		}
		settings.RestaurantName = name
	}
	if req.Address != nil {
		settings.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		settings.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.CurrencySymbol != nil {
		settings.CurrencySymbol = strings.TrimSpace(*req.CurrencySymbol)
	}
	if req.FooterMessage != nil {
		settings.FooterMessage = strings.TrimSpace(*req.FooterMessage)
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(hundred) {
			return domain.Settings{}, invalid("tax rate must be between 0 and 100")
		}
		settings.TaxRate = *req.TaxRate
	}
	if req.NumberOfTables != nil {
		n := *req.NumberOfTables
		if n < 1 {
			return domain.Settings{}, invalid("number of tables must be at least 1")
		}
		if err := s.checkTablesFree(ctx, n); err != nil {
			return domain.Settings{}, err
		}
		settings.NumberOfTables = n
	}
	if req.CommonNotes != nil {
		settings.CommonNotes = cleanNotes(req.CommonNotes)
	}

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return domain.Settings{}, err
	}
	s.logAudit(ctx, "settings_update", "settings", "restaurant", fmt.Sprintf("tax=%s,tables=%d", settings.TaxRate.String(), settings.NumberOfTables))
	return settings, nil
}

// checkTablesFree refuses to drop tables that still have open bills.
func (s *Service) checkTablesFree(ctx context.Context, tables int) error {
	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses, Type: domain.OrderTypeDineIn})
	if err != nil {
		return err
	}
	for _, o := range open {
		if n, err := strconv.Atoi(strings.TrimPrefix(o.TableID, "T")); err == nil && n > tables {
			return fmt.Errorf("%w: table %s", ErrOpenOrders, o.TableID)
		}
	}
	return nil
}

// SetStationAssignment routes a category to one station and removes it from
// the other. An empty station takes the category off both.
func (s *Service) SetStationAssignment(ctx context.Context, req domain.StationAssignmentRequest) (domain.Settings, error) {
	if _, err := s.require(ctx, domain.CapAdminPanel); err != nil {
		return domain.Settings{}, err
	}
	if req.Station != "" && !req.Station.Valid() {
		return domain.Settings{}, invalid("unknown station %q", req.Station)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	category, ok := findCategory(categories, req.Category, "")
	if !ok {
		return domain.Settings{}, invalid("unknown category %q", req.Category)
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	drop := func(names []string) []string {
		return slices.DeleteFunc(names, func(n string) bool { return n == category.Name })
	}
	assignments := settings.StationAssignments
	assignments.Kitchen = drop(assignments.Kitchen)
	assignments.Bar = drop(assignments.Bar)
	switch req.Station {
	case domain.StationKitchen:
		assignments.Kitchen = append(assignments.Kitchen, category.Name)
	case domain.StationBar:
		assignments.Bar = append(assignments.Bar, category.Name)
	}
	settings.StationAssignments = assignments

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return domain.Settings{}, err
	}
	s.logAudit(ctx, "station_assign", "category", category.ID, fmt.Sprintf("station=%s", req.Station))
	return settings, nil
}

func (s *Service) SetManagerPermissions(ctx context.Context, perms domain.ManagerPermissions) (domain.Settings, error) {
	if _, err := s.require(ctx, domain.CapManagerPermissions); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	settings.ManagerPermissions = perms
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return domain.Settings{}, err
	}
	s.logAudit(ctx, "manager_permissions", "settings", "manager", fmt.Sprintf("%+v", perms))
	return settings, nil
}

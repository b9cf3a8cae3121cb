package service

import (
	"context"
	"strings"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/xid"
)

// ListCustomers returns the directory, filtered by a case-insensitive name
// match or a phone substring when query is set.
func (s *Service) ListCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return nil, err
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return customers, nil
	}
	lowered := strings.ToLower(query)
	out := []domain.Customer{}
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), lowered) || strings.Contains(c.Phone, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	if _, err := s.require(ctx, domain.CapManageCustomers); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.saveCustomer(ctx, domain.Customer{ID: xid.New("cust"), Name: req.Name, Phone: req.Phone})
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_create", "customer", customer.ID, "")
	return customer, nil
}

// UpdateCustomer edits the directory entry only. Orders keep the copy they
// were given.
func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerRequest) (domain.Customer, error) {
	if _, err := s.require(ctx, domain.CapManageCustomers); err != nil {
		return domain.Customer{}, err
	}
	if _, err := s.repo.GetCustomer(ctx, id); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.saveCustomer(ctx, domain.Customer{ID: id, Name: req.Name, Phone: req.Phone})
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_update", "customer", id, "")
	return customer, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.require(ctx, domain.CapManageCustomers); err != nil {
		return err
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return nil
}

func (s *Service) saveCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.Name == "" || customer.Phone == "" {
		return domain.Customer{}, invalid("customer name and phone are required")
	}
	saved, err := s.repo.SaveCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

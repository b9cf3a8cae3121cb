package service

import (
	"context"
	"fmt"
	"time"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/report"
)

func (s *Service) Location() *time.Location {
	return s.location
}

// ReportRange resolves a preset (today, month, year) against the current
// time in the report zone.
func (s *Service) ReportRange(preset report.Preset) (domain.DateRange, error) {
	from, to, err := report.PresetRange(preset, s.now(), s.location)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{From: from, To: to}, nil
}

func (s *Service) SalesSummary(ctx context.Context, r domain.DateRange) (report.SalesSummary, error) {
	if _, err := s.require(ctx, domain.CapViewReports); err != nil {
		return report.SalesSummary{}, err
	}
	if r.To.Before(r.From) {
		return report.SalesSummary{}, report.ErrInvalidRange
	}
	orders, err := s.repo.ListOrders(ctx, domain.OrderFilter{
		Statuses: []domain.OrderStatus{domain.StatusPaid},
		From:     &r.From,
		To:       &r.To,
	})
	if err != nil {
		return report.SalesSummary{}, err
	}
	return report.BuildSalesSummary(r.From, r.To, s.location, orders)
}

func (s *Service) Cancellations(ctx context.Context, r domain.DateRange) (report.CancellationReport, error) {
	if _, err := s.require(ctx, domain.CapViewReports); err != nil {
		return report.CancellationReport{}, err
	}
	if r.To.Before(r.From) {
		return report.CancellationReport{}, report.ErrInvalidRange
	}
	orders, err := s.repo.ListOrders(ctx, domain.OrderFilter{
		Statuses: []domain.OrderStatus{domain.StatusCancelled},
		From:     &r.From,
		To:       &r.To,
	})
	if err != nil {
		return report.CancellationReport{}, err
	}
	return report.BuildCancellations(r.From, r.To, orders)
}

// ClearSalesData deletes every order. It refuses while any order is still
// active or billed.
func (s *Service) ClearSalesData(ctx context.Context) (int, error) {
	if _, err := s.require(ctx, domain.CapAdminPanel); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses})
	if err != nil {
		return 0, err
	}
	if len(open) > 0 {
		return 0, fmt.Errorf("%w: %d still open", ErrOpenOrders, len(open))
	}
	removed, err := s.repo.ClearOrders(ctx)
	if err != nil {
		return 0, err
	}
	s.logAudit(ctx, "sales_clear", "orders", "all", fmt.Sprintf("removed=%d", removed))
	return removed, nil
}

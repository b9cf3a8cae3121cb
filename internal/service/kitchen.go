package service

import (
	"context"
	"fmt"
	"log"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/ticket"
)

// SendToKitchen stamps the order with a KOT and a BOT number for every
// station that has lines to prepare. A station that already has a number
// keeps it, so re-sending never allocates twice.
func (s *Service) SendToKitchen(ctx context.Context, orderID string) (domain.KitchenDispatch, error) {
	actor, err := s.require(ctx, domain.CapTakeOrders)
	if err != nil {
		return domain.KitchenDispatch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return domain.KitchenDispatch{}, err
	}

	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.KitchenDispatch{}, err
	}
	order := *existing
	if !order.Status.Open() {
		return domain.KitchenDispatch{}, fmt.Errorf("%w: order is %s", ErrOrderLocked, order.Status)
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.KitchenDispatch{}, err
	}

	routed := ticket.RouteItems(order.Items, settings.StationAssignments)
	if len(routed.Kitchen) == 0 && len(routed.Bar) == 0 {
		return domain.KitchenDispatch{}, ErrNothingToSend
	}
	if skipped := ticket.Unrouted(order.Items, settings.StationAssignments); len(skipped) > 0 {
		log.Printf("[order] WARN: order %s has categories routed to no station: %v", order.ID, skipped)
	}

	counters, err := s.repo.GetCounters(ctx)
	if err != nil {
		return domain.KitchenDispatch{}, err
	}
	stamped := false
	if len(routed.Kitchen) > 0 && order.KOTNumber == 0 {
		counters.KOT++
		order.KOTNumber = counters.KOT
		stamped = true
	}
	if len(routed.Bar) > 0 && order.BOTNumber == 0 {
		counters.BOT++
		order.BOTNumber = counters.BOT
		stamped = true
	}
	if stamped {
		if err := s.repo.SaveOrderWithCounters(ctx, order, counters); err != nil {
			return domain.KitchenDispatch{}, err
		}
	}

	dispatch := domain.KitchenDispatch{Order: order}
	if len(routed.Kitchen) > 0 {
		dispatch.KOT = &domain.TicketSlip{Station: domain.StationKitchen, Number: order.KOTNumber, Items: routed.Kitchen}
	}
	if len(routed.Bar) > 0 {
		dispatch.BOT = &domain.TicketSlip{Station: domain.StationBar, Number: order.BOTNumber, Items: routed.Bar}
	}
	log.Printf("[order] sent id=%s kot=%d bot=%d by=%s", order.ID, order.KOTNumber, order.BOTNumber, actor.Username)
	return dispatch, nil
}

// SetKitchenStatus tracks food preparation. It is independent of billing and
// allowed on any open order.
func (s *Service) SetKitchenStatus(ctx context.Context, orderID string, status domain.KitchenStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, invalid("unknown kitchen status %q", status)
	}
	return s.transition(ctx, domain.CapStationDisplay, "kitchen_status", orderID, func(o *domain.Order) error {
		if !o.Status.Open() {
			return fmt.Errorf("%w: order is %s", ErrOrderLocked, o.Status)
		}
		o.KitchenStatus = status
		return nil
	})
}

// StationOrders lists the open orders that have lines for a station, each
// reduced to those lines.
func (s *Service) StationOrders(ctx context.Context, station domain.Station) ([]domain.StationOrder, error) {
	if _, err := s.require(ctx, domain.CapStationDisplay); err != nil {
		return nil, err
	}
	if !station.Valid() {
		return nil, invalid("unknown station %q", station)
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses})
	if err != nil {
		return nil, err
	}
	out := []domain.StationOrder{}
	for _, o := range open {
		items := ticket.RouteItems(o.Items, settings.StationAssignments).For(station)
		if len(items) == 0 {
			continue
		}
		out = append(out, domain.StationOrder{Order: o, Items: items})
	}
	return out, nil
}

// RenderTicket prints the KOT or BOT of an order that has been sent.
func (s *Service) RenderTicket(ctx context.Context, orderID string, station domain.Station) (ticket.Document, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return ticket.Document{}, err
	}
	if !station.Valid() {
		return ticket.Document{}, invalid("unknown station %q", station)
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return ticket.Document{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return ticket.Document{}, err
	}
	return ticket.StationTicket(*order, station, settings, s.now().In(s.location))
}

func (s *Service) RenderBill(ctx context.Context, orderID string, opts ticket.BillOptions) (ticket.Document, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return ticket.Document{}, err
	}
	if opts.Type == "" {
		opts.Type = ticket.BillDetailed
	}
	if opts.Type != ticket.BillDetailed && opts.Type != ticket.BillSummary {
		return ticket.Document{}, invalid("unknown bill type %q", opts.Type)
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return ticket.Document{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return ticket.Document{}, err
	}
	opts.Location = s.location
	return ticket.Bill(*order, settings, opts), nil
}

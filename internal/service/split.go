package service

import (
	"context"
	"fmt"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/xid"
)

// SplitOrder divides an active dine-in order into separate bills. Every unit
// of every line must land in exactly one bill and at least two bills must be
// non-empty. The children keep the parent's creation time and are repriced
// at the current tax rate without discounts. The parent is kept as a split
// marker.
func (s *Service) SplitOrder(ctx context.Context, orderID string, req domain.SplitRequest) (domain.SplitResult, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return domain.SplitResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return domain.SplitResult{}, err
	}

	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.SplitResult{}, err
	}
	parent := *existing
	if parent.Status != domain.StatusActive {
		return domain.SplitResult{}, fmt.Errorf("%w: cannot split a %s order", ErrInvalidTransition, parent.Status)
	}
	if parent.OrderType != domain.OrderTypeDineIn || parent.ParentOrderID != "" {
		return domain.SplitResult{}, ErrSplitNotAllowed
	}

	buckets, err := partition(parent.Items, req.Bills)
	if err != nil {
		return domain.SplitResult{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.SplitResult{}, err
	}

	children := make([]domain.Order, len(buckets))
	for i, items := range buckets {
		child := domain.Order{
			ID:              xid.New("ORD"),
			OrderType:       parent.OrderType,
			TableID:         parent.TableID,
			Items:           items,
			Discounts:       []domain.Discount{},
			TaxRate:         settings.TaxRate,
			Status:          domain.StatusActive,
			CreatedAt:       parent.CreatedAt,
			CreatedBy:       parent.CreatedBy,
			KOTNumber:       parent.KOTNumber,
			BOTNumber:       parent.BOTNumber,
			KitchenStatus:   parent.KitchenStatus,
			ParentOrderID:   parent.ID,
			SplitBillNumber: i + 1,
			TotalSplitBills: len(buckets),
		}
		if parent.Customer != nil {
			customer := *parent.Customer
			child.Customer = &customer
		}
		reprice(&child)
		children[i] = child
	}
	parent.Status = domain.StatusSplit

	if err := s.repo.SplitOrder(ctx, parent, children); err != nil {
		return domain.SplitResult{}, err
	}
	s.logAudit(ctx, "order_split", "order", parent.ID, fmt.Sprintf("bills=%d", len(children)))
	return domain.SplitResult{Parent: parent, Children: children}, nil
}

// partition turns the requested bills into cart lines. Empty bills are
// dropped; lines keep the order they had in the parent.
func partition(lines []domain.CartItem, bills [][]domain.SplitLine) ([][]domain.CartItem, error) {
	byID := make(map[string]domain.CartItem, len(lines))
	for _, line := range lines {
		byID[line.ID] = line
	}

	assigned := map[string]int{}
	var buckets []map[string]int
	for _, bill := range bills {
		qty := map[string]int{}
		for _, part := range bill {
			if _, ok := byID[part.CartItemID]; !ok {
				return nil, invalid("unknown line %s", part.CartItemID)
			}
			if part.Quantity < 0 || part.Quantity > maxLineQuantity {
				return nil, invalid("split quantity must be between 0 and %d", maxLineQuantity)
			}
			if part.Quantity == 0 {
				continue
			}
			if assigned[part.CartItemID] > maxLineQuantity {
				return nil, invalid("%s assigned more than ordered", byID[part.CartItemID].MenuItem.Name)
			}
			qty[part.CartItemID] += part.Quantity
			assigned[part.CartItemID] += part.Quantity
		}
		if len(qty) > 0 {
			buckets = append(buckets, qty)
		}
	}
	if len(buckets) < 2 {
		return nil, invalid("a split needs at least two non-empty bills")
	}
	for _, line := range lines {
		switch got := assigned[line.ID]; {
		case got < line.Quantity:
			return nil, invalid("%d of %d %s left unassigned", line.Quantity-got, line.Quantity, line.MenuItem.Name)
		case got > line.Quantity:
			return nil, invalid("%s assigned %d times but ordered %d", line.MenuItem.Name, got, line.Quantity)
		}
	}

	out := make([][]domain.CartItem, len(buckets))
	for i, qty := range buckets {
		items := []domain.CartItem{}
		for _, line := range lines {
			n, ok := qty[line.ID]
			if !ok {
				continue
			}
			items = append(items, domain.CartItem{
				ID:       xid.New("line"),
				MenuItem: line.MenuItem,
				Quantity: n,
				Note:     line.Note,
			})
		}
		out[i] = items
	}
	return out, nil
}

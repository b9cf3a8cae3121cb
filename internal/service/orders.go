package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"strconv"
	"strings"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
	"restopos/backend/internal/xid"
)

var openStatuses = []domain.OrderStatus{domain.StatusActive, domain.StatusBilled}

// maxLineQuantity caps the quantity of a single cart line.
const maxLineQuantity = 9999

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	actor, err := s.require(ctx, domain.CapTakeOrders)
	if err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return domain.Order{}, err
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:            xid.New("ORD"),
		OrderType:     req.OrderType,
		Items:         []domain.CartItem{},
		Discounts:     []domain.Discount{},
		TaxRate:       settings.TaxRate,
		Status:        domain.StatusActive,
		KitchenStatus: domain.KitchenPending,
		CreatedAt:     s.now(),
		CreatedBy:     actor.Name,
	}
	reprice(&order)

	switch req.OrderType {
	case domain.OrderTypeDineIn:
		tableID := strings.ToUpper(strings.TrimSpace(req.TableID))
		if !validTable(tableID, settings.NumberOfTables) {
			return domain.Order{}, invalid("unknown table %q", req.TableID)
		}
		open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses, TableID: tableID})
		if err != nil {
			return domain.Order{}, err
		}
		if len(open) > 0 {
			return domain.Order{}, fmt.Errorf("%w: %s has %d", ErrTableHasOpenBills, tableID, len(open))
		}
		order.TableID = tableID
		if err := s.repo.SaveOrder(ctx, order); err != nil {
			return domain.Order{}, err
		}

	case domain.OrderTypeTakeaway:
		counters, err := s.repo.GetCounters(ctx)
		if err != nil {
			return domain.Order{}, err
		}
		number := req.TakeawayNumber
		if number == 0 {
			number = counters.Takeaway + 1
		}
		if number < 0 {
			return domain.Order{}, invalid("takeaway number must be positive")
		}
		open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses, Type: domain.OrderTypeTakeaway})
		if err != nil {
			return domain.Order{}, err
		}
		for _, o := range open {
			if o.TakeawayNumber == number {
				return domain.Order{}, fmt.Errorf("%w: #%d", ErrTakeawayInUse, number)
			}
		}
		order.TakeawayNumber = number
		counters.Takeaway = max(counters.Takeaway, number)
		if err := s.repo.SaveOrderWithCounters(ctx, order, counters); err != nil {
			return domain.Order{}, err
		}

	default:
		return domain.Order{}, invalid("unknown order type %q", req.OrderType)
	}

	log.Printf("[order] created id=%s type=%s by=%s", order.ID, order.OrderType, actor.Username)
	return order, nil
}

func validTable(tableID string, tables int) bool {
	if !strings.HasPrefix(tableID, "T") {
		return false
	}
	n, err := strconv.Atoi(tableID[1:])
	return err == nil && n >= 1 && n <= tables
}

// mutate loads an open order, applies fn and stores the repriced result.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(o *domain.Order) error) (domain.Order, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return domain.Order{}, err
	}

	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order := *existing
	if !order.Status.Open() {
		return domain.Order{}, fmt.Errorf("%w: order is %s", ErrOrderLocked, order.Status)
	}
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	reprice(&order)
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Service) AddItem(ctx context.Context, orderID string, req domain.AddItemRequest) (domain.Order, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return domain.Order{}, invalid("quantity must be positive")
	}
	if req.Quantity > maxLineQuantity {
		return domain.Order{}, invalid("quantity must not exceed %d", maxLineQuantity)
	}
	note := strings.TrimSpace(req.Note)

	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		item, err := s.repo.GetMenuItem(ctx, req.MenuItemID)
		if err != nil {
			return err
		}
		if err := checkStock(*item, o.Quantity(item.ID)+req.Quantity, o.Quantity(item.ID)); err != nil {
			return err
		}
		for i := range o.Items {
			if o.Items[i].MenuItem.ID == item.ID && o.Items[i].Note == note {
				if o.Items[i].Quantity > maxLineQuantity-req.Quantity {
					return invalid("quantity must not exceed %d", maxLineQuantity)
				}
				o.Items[i].Quantity += req.Quantity
				return nil
			}
		}
		o.Items = append(o.Items, domain.CartItem{
			ID: xid.New("line"),
			MenuItem: domain.ItemSnapshot{
				ID:            item.ID,
				Name:          item.Name,
				Price:         item.Price,
				Category:      item.Category,
				StockTracking: item.StockTracking,
			},
			Quantity: req.Quantity,
			Note:     note,
		})
		return nil
	})
}

// checkStock rejects a wanted quantity above the tracked stock of item.
// reserved is what other lines of the order already hold.
func checkStock(item domain.MenuItem, wanted int, reserved int) error {
	if !item.StockTracking || wanted <= item.Stock {
		return nil
	}
	return &StockError{MenuItemID: item.ID, Name: item.Name, Remaining: max(item.Stock-reserved, 0)}
}

// SetQuantity sets a line quantity. Zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, orderID string, lineID string, quantity int) (domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return s.setQuantity(ctx, o, lineID, quantity)
	})
}

func (s *Service) setQuantity(ctx context.Context, o *domain.Order, lineID string, quantity int) error {
	idx := lineIndex(o.Items, lineID)
	if idx < 0 {
		return fmt.Errorf("line %s: %w", lineID, store.ErrNotFound)
	}
	if quantity <= 0 {
		o.Items = slices.Delete(o.Items, idx, idx+1)
		return nil
	}
	if quantity > maxLineQuantity {
		return invalid("quantity must not exceed %d", maxLineQuantity)
	}

	line := o.Items[idx]
	item, err := s.repo.GetMenuItem(ctx, line.MenuItem.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	default:
		reserved := o.Quantity(line.MenuItem.ID) - line.Quantity
		if err := checkStock(*item, reserved+quantity, reserved); err != nil {
			return err
		}
	}
	o.Items[idx].Quantity = quantity
	return nil
}

// SetNote changes the note of a line, merging it into a line of the same
// item that already carries the new note.
func (s *Service) SetNote(ctx context.Context, orderID string, lineID string, note string) (domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return setNote(o, lineID, note)
	})
}

func setNote(o *domain.Order, lineID string, note string) error {
	idx := lineIndex(o.Items, lineID)
	if idx < 0 {
		return fmt.Errorf("line %s: %w", lineID, store.ErrNotFound)
	}
	note = strings.TrimSpace(note)
	line := o.Items[idx]
	for i := range o.Items {
		if i != idx && o.Items[i].MenuItem.ID == line.MenuItem.ID && o.Items[i].Note == note {
			if o.Items[i].Quantity > maxLineQuantity-line.Quantity {
				return invalid("quantity must not exceed %d", maxLineQuantity)
			}
			o.Items[i].Quantity += line.Quantity
			o.Items = slices.Delete(o.Items, idx, idx+1)
			return nil
		}
	}
	o.Items[idx].Note = note
	return nil
}

// UpdateLine applies a quantity and a note change to one line in one step.
func (s *Service) UpdateLine(ctx context.Context, orderID string, lineID string, req domain.UpdateLineRequest) (domain.Order, error) {
	if req.Quantity == nil && req.Note == nil {
		return domain.Order{}, invalid("nothing to update")
	}
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		if req.Quantity != nil {
			if err := s.setQuantity(ctx, o, lineID, *req.Quantity); err != nil {
				return err
			}
			if *req.Quantity <= 0 {
				return nil
			}
		}
		if req.Note != nil {
			return setNote(o, lineID, *req.Note)
		}
		return nil
	})
}

func lineIndex(items []domain.CartItem, lineID string) int {
	return slices.IndexFunc(items, func(c domain.CartItem) bool { return c.ID == lineID })
}

func (s *Service) AddDiscount(ctx context.Context, orderID string, req domain.AddDiscountRequest) (domain.Order, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.Order{}, invalid("discount description is required")
	}
	if !req.Value.IsPositive() {
		return domain.Order{}, invalid("discount value must be positive")
	}
	if req.Type != domain.DiscountPercentage && req.Type != domain.DiscountFixed {
		return domain.Order{}, invalid("unknown discount type %q", req.Type)
	}
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		o.Discounts = append(o.Discounts, domain.Discount{
			ID:          xid.New("disc"),
			Type:        req.Type,
			Value:       req.Value,
			Description: description,
		})
		return nil
	})
}

func (s *Service) RemoveDiscount(ctx context.Context, orderID string, discountID string) (domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		o.Discounts = slices.DeleteFunc(o.Discounts, func(d domain.Discount) bool { return d.ID == discountID })
		return nil
	})
}

// AssignCustomer copies a customer onto the order. Without a customer id the
// name and phone describe a new directory entry that is created first.
func (s *Service) AssignCustomer(ctx context.Context, orderID string, req domain.AssignCustomerRequest) (domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		var customer *domain.Customer
		if req.CustomerID != "" {
			found, err := s.repo.GetCustomer(ctx, req.CustomerID)
			if err != nil {
				return err
			}
			customer = found
		} else {
			created, err := s.saveCustomer(ctx, domain.Customer{ID: xid.New("cust"), Name: req.Name, Phone: req.Phone})
			if err != nil {
				return err
			}
			customer = &created
		}
		o.Customer = &domain.CustomerSnapshot{ID: customer.ID, Name: customer.Name, Phone: customer.Phone}
		return nil
	})
}

func (s *Service) RemoveCustomer(ctx context.Context, orderID string) (domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		o.Customer = nil
		return nil
	})
}

// PresentBill moves an active order to billed.
func (s *Service) PresentBill(ctx context.Context, orderID string) (domain.Order, error) {
	return s.transition(ctx, domain.CapTakeOrders, "order_bill", orderID, func(o *domain.Order) error {
		if o.Status != domain.StatusActive {
			return fmt.Errorf("%w: cannot bill a %s order", ErrInvalidTransition, o.Status)
		}
		if len(o.Items) == 0 {
			return ErrEmptyOrder
		}
		o.Status = domain.StatusBilled
		return nil
	})
}

// transition loads an order under the engine lock and lets fn decide the
// next status. fn must leave the order unchanged when it returns an error.
func (s *Service) transition(ctx context.Context, capability domain.Capability, action string, orderID string, fn func(o *domain.Order) error) (domain.Order, error) {
	if _, err := s.require(ctx, capability); err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return domain.Order{}, err
	}

	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order := *existing
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	s.logAudit(ctx, action, "order", order.ID, "status="+string(order.Status))
	return order, nil
}

// Pay finalizes a billed order and takes its tracked items out of stock in
// the same write.
func (s *Service) Pay(ctx context.Context, orderID string, method domain.PaymentMethod) (domain.Order, error) {
	if !method.Valid() {
		return domain.Order{}, invalid("unknown payment method %q", method)
	}
	return s.finalize(ctx, domain.CapTakeOrders, orderID, -1, func(o *domain.Order) error {
		if o.Status != domain.StatusBilled {
			return fmt.Errorf("%w: cannot pay a %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = domain.StatusPaid
		o.PaymentMethod = method
		return nil
	})
}

// CancelOrder cancels an active or billed order and returns its tracked items
// to stock, whether or not they were ever taken out.
func (s *Service) CancelOrder(ctx context.Context, orderID string, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Order{}, invalid("cancellation reason is required")
	}
	actor, _ := ActorFromContext(ctx)
	return s.finalize(ctx, domain.CapCancelOrders, orderID, 1, func(o *domain.Order) error {
		if !o.Status.Open() {
			return fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = domain.StatusCancelled
		o.CancelReason = reason
		o.CancelledBy = actor.Name
		return nil
	})
}

func (s *Service) finalize(ctx context.Context, capability domain.Capability, orderID string, sign int, fn func(o *domain.Order) error) (domain.Order, error) {
	if _, err := s.require(ctx, capability); err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return domain.Order{}, err
	}

	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order := *existing
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	finalizedAt := s.now()
	order.FinalizedAt = &finalizedAt

	adjustments, err := s.stockAdjustments(ctx, order, sign)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.FinalizeOrder(ctx, order, adjustments); err != nil {
		return domain.Order{}, err
	}
	s.logAudit(ctx, "order_"+string(order.Status), "order", order.ID, fmt.Sprintf("total=%s stock_moves=%d", order.Total.StringFixed(2), len(adjustments)))
	return order, nil
}

// stockAdjustments sums the quantities of tracked items per menu item. Items
// deleted from the menu since they were ordered are skipped.
func (s *Service) stockAdjustments(ctx context.Context, order domain.Order, sign int) ([]domain.StockAdjustment, error) {
	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.MenuItem, len(menu))
	for _, item := range menu {
		byID[item.ID] = item
	}

	deltas := map[string]int{}
	var ids []string
	for _, line := range order.Items {
		item, ok := byID[line.MenuItem.ID]
		if !ok || !item.StockTracking {
			continue
		}
		if _, seen := deltas[item.ID]; !seen {
			ids = append(ids, item.ID)
		}
		deltas[item.ID] += sign * line.Quantity
	}

	adjustments := make([]domain.StockAdjustment, 0, len(ids))
	for _, id := range ids {
		if after := byID[id].Stock + deltas[id]; after < 0 {
			log.Printf("[order] WARN: stock of %s goes negative (%d) with order %s", byID[id].Name, after, order.ID)
		}
		adjustments = append(adjustments, domain.StockAdjustment{MenuItemID: id, Delta: deltas[id]})
	}
	return adjustments, nil
}

// DiscardOrder deletes an active order outright. Billed and finalized orders
// must be cancelled instead.
func (s *Service) DiscardOrder(ctx context.Context, orderID string) error {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDay(ctx); err != nil {
		return err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.StatusActive {
		return fmt.Errorf("%w: cannot discard a %s order", ErrInvalidTransition, order.Status)
	}
	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	s.logAudit(ctx, "order_discard", "order", orderID, fmt.Sprintf("lines=%d", len(order.Items)))
	return nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, filter)
}

// ListTables reports every configured table with its open bills. A table
// with any active bill is occupied; one whose bills are all billed is billed.
func (s *Service) ListTables(ctx context.Context) ([]domain.TableView, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses, Type: domain.OrderTypeDineIn})
	if err != nil {
		return nil, err
	}
	byTable := map[string][]domain.Order{}
	for _, o := range open {
		byTable[o.TableID] = append(byTable[o.TableID], o)
	}

	tables := make([]domain.TableView, 0, settings.NumberOfTables)
	for n := 1; n <= settings.NumberOfTables; n++ {
		id := "T" + strconv.Itoa(n)
		view := domain.TableView{TableID: id, Number: n, Status: domain.TableAvailable, Bills: byTable[id]}
		if view.Bills == nil {
			view.Bills = []domain.Order{}
		}
		for _, bill := range view.Bills {
			if bill.Status == domain.StatusActive {
				view.Status = domain.TableOccupied
				break
			}
			view.Status = domain.TableBilled
		}
		tables = append(tables, view)
	}
	return tables, nil
}

func (s *Service) TakeawayBoard(ctx context.Context) (domain.TakeawayBoard, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return domain.TakeawayBoard{}, err
	}
	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses, Type: domain.OrderTypeTakeaway})
	if err != nil {
		return domain.TakeawayBoard{}, err
	}
	counters, err := s.repo.GetCounters(ctx)
	if err != nil {
		return domain.TakeawayBoard{}, err
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].TakeawayNumber < open[j].TakeawayNumber })
	return domain.TakeawayBoard{
		Orders:          open,
		Counter:         counters.Takeaway,
		SuggestedNumber: counters.Takeaway + 1,
	}, nil
}

// ResetTakeawayCounter sets the takeaway counter back to zero. It refuses
// while any takeaway order is still open.
func (s *Service) ResetTakeawayCounter(ctx context.Context) (domain.Counters, error) {
	if _, err := s.require(ctx, domain.CapTakeOrders); err != nil {
		return domain.Counters{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses, Type: domain.OrderTypeTakeaway})
	if err != nil {
		return domain.Counters{}, err
	}
	if len(open) > 0 {
		return domain.Counters{}, fmt.Errorf("%w: %d takeaway orders", ErrOpenOrders, len(open))
	}
	counters, err := s.repo.GetCounters(ctx)
	if err != nil {
		return domain.Counters{}, err
	}
	counters.Takeaway = 0
	if err := s.repo.SaveCounters(ctx, counters); err != nil {
		return domain.Counters{}, err
	}
	s.logAudit(ctx, "takeaway_counter_reset", "counters", "takeaway", "")
	return counters, nil
}

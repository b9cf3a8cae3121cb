package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/report"
	"restopos/backend/internal/session"
	"restopos/backend/internal/store"
	"restopos/backend/internal/store/memory"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := New(memory.NewSeeded(), session.NewMemoryStore(), Options{Location: time.UTC})
	svc.now = func() time.Time { return testNow }
	return svc
}

func actorCtx(role domain.Role) context.Context {
	usernames := map[domain.Role]string{
		domain.RoleAdmin:   "admin",
		domain.RoleManager: "manager",
		domain.RoleWaiter:  "waiter",
		domain.RoleCashier: "cashier",
	}
	ids := map[domain.Role]string{
		domain.RoleAdmin:   "user-1",
		domain.RoleManager: "user-2",
		domain.RoleWaiter:  "user-3",
		domain.RoleCashier: "user-4",
	}
	return WithActor(context.Background(), domain.Actor{
		UserID:      ids[role],
		Username:    usernames[role],
		Name:        string(role) + " User",
		Role:        role,
		TokenID:     "tok-" + usernames[role],
		Permissions: domain.PermissionsFor(role, store.DefaultSettings().ManagerPermissions),
	})
}

func startDay(t *testing.T, svc *Service) context.Context {
	t.Helper()
	ctx := actorCtx(domain.RoleAdmin)
	if _, err := svc.StartDay(ctx); err != nil {
		t.Fatalf("start day: %v", err)
	}
	return ctx
}

func dineIn(t *testing.T, svc *Service, ctx context.Context, table string) domain.Order {
	t.Helper()
	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeDineIn, TableID: table})
	if err != nil {
		t.Fatalf("create order on %s: %v", table, err)
	}
	return order
}

func addItem(t *testing.T, svc *Service, ctx context.Context, orderID string, menuItemID string, qty int) domain.Order {
	t.Helper()
	order, err := svc.AddItem(ctx, orderID, domain.AddItemRequest{MenuItemID: menuItemID, Quantity: qty})
	if err != nil {
		t.Fatalf("add item %s: %v", menuItemID, err)
	}
	return order
}

func stockOf(t *testing.T, svc *Service, id string) int {
	t.Helper()
	item, err := svc.repo.GetMenuItem(context.Background(), id)
	if err != nil {
		t.Fatalf("get menu item %s: %v", id, err)
	}
	return item.Stock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderOperationsRequireDaySession(t *testing.T) {
	svc := newTestService(t)
	ctx := actorCtx(domain.RoleWaiter)

	_, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeDineIn, TableID: "T1"})
	if !errors.Is(err, ErrDayNotStarted) {
		t.Fatalf("expected ErrDayNotStarted, got %v", err)
	}
	if _, err := svc.StartDay(ctx); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected waiter to be refused starting the day, got %v", err)
	}
}

func TestStartDayKeepsExistingSession(t *testing.T) {
	svc := newTestService(t)
	first, err := svc.StartDay(actorCtx(domain.RoleCashier))
	if err != nil {
		t.Fatalf("start day: %v", err)
	}
	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	second, err := svc.StartDay(actorCtx(domain.RoleManager))
	if err != nil {
		t.Fatalf("start day again: %v", err)
	}
	if !second.StartTime.Equal(first.StartTime) || second.StartedBy != "Cashier User" {
		t.Fatalf("expected the first session to be kept, got %+v", second)
	}
}

func TestPricingWithParallelDiscounts(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T3")
	order = addItem(t, svc, ctx, order.ID, "1", 2)
	if !order.Subtotal.Equal(dec("20")) || !order.Tax.Equal(dec("1")) || !order.Total.Equal(dec("21")) {
		t.Fatalf("expected 20/1.00/21.00, got %s/%s/%s", order.Subtotal, order.Tax, order.Total)
	}

	order, err := svc.AddDiscount(ctx, order.ID, domain.AddDiscountRequest{Type: domain.DiscountPercentage, Value: dec("10"), Description: "Staff"})
	if err != nil {
		t.Fatalf("add percentage discount: %v", err)
	}
	order, err = svc.AddDiscount(ctx, order.ID, domain.AddDiscountRequest{Type: domain.DiscountFixed, Value: dec("5"), Description: "Voucher"})
	if err != nil {
		t.Fatalf("add fixed discount: %v", err)
	}
	if !order.TotalDiscount.Equal(dec("7")) || !order.Tax.Equal(dec("0.65")) || !order.Total.Equal(dec("13.65")) {
		t.Fatalf("expected discount 7.00, tax 0.65, total 13.65, got %s/%s/%s", order.TotalDiscount, order.Tax, order.Total)
	}

	order, err = svc.RemoveDiscount(ctx, order.ID, order.Discounts[1].ID)
	if err != nil {
		t.Fatalf("remove discount: %v", err)
	}
	if !order.Total.Equal(dec("18.9")) {
		t.Fatalf("expected total 18.90 after removing the voucher, got %s", order.Total)
	}
}

func TestDiscountIsClampedToSubtotal(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, order.ID, "1", 2)
	order, err := svc.AddDiscount(ctx, order.ID, domain.AddDiscountRequest{Type: domain.DiscountFixed, Value: dec("50"), Description: "Owner"})
	if err != nil {
		t.Fatalf("add discount: %v", err)
	}
	if !order.TotalDiscount.Equal(dec("20")) || !order.Total.IsZero() || !order.Tax.IsZero() {
		t.Fatalf("expected discount clamped to 20 and a zero total, got %s/%s", order.TotalDiscount, order.Total)
	}

	if _, err := svc.AddDiscount(ctx, order.ID, domain.AddDiscountRequest{Type: domain.DiscountFixed, Value: dec("5")}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a discount without description to be rejected, got %v", err)
	}
	if _, err := svc.AddDiscount(ctx, order.ID, domain.AddDiscountRequest{Type: domain.DiscountFixed, Value: dec("0"), Description: "Zero"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a zero discount to be rejected, got %v", err)
	}
}

func TestCartLinesMergeByItemAndNote(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T2")
	addItem(t, svc, ctx, order.ID, "1", 1)
	order = addItem(t, svc, ctx, order.ID, "1", 2)
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Fatalf("expected one Idly line with 3, got %+v", order.Items)
	}

	order, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "1", Quantity: 1, Note: " Extra Spicy "})
	if err != nil {
		t.Fatalf("add noted item: %v", err)
	}
	if len(order.Items) != 2 || order.Items[1].Note != "Extra Spicy" {
		t.Fatalf("expected a separate noted line, got %+v", order.Items)
	}

	order, err = svc.SetNote(ctx, order.ID, order.Items[1].ID, "")
	if err != nil {
		t.Fatalf("clear note: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 4 {
		t.Fatalf("expected lines to merge into one of 4, got %+v", order.Items)
	}

	order, err = svc.SetQuantity(ctx, order.ID, order.Items[0].ID, 0)
	if err != nil {
		t.Fatalf("set quantity 0: %v", err)
	}
	if len(order.Items) != 0 || !order.Total.IsZero() {
		t.Fatalf("expected an empty cart, got %+v", order.Items)
	}
}

func TestCartLinesKeepPriceSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T4")
	addItem(t, svc, ctx, order.ID, "1", 1)

	item, _ := svc.repo.GetMenuItem(ctx, "1")
	item.Price = dec("99")
	if _, err := svc.UpdateMenuItem(ctx, "1", *item); err != nil {
		t.Fatalf("update menu item: %v", err)
	}
	order = addItem(t, svc, ctx, order.ID, "2", 1)
	if !order.Items[0].MenuItem.Price.Equal(dec("10")) || !order.Subtotal.Equal(dec("35")) {
		t.Fatalf("expected the Idly line to keep price 10, got %+v", order.Items[0].MenuItem)
	}
}

func TestStockIsCheckedAcrossLines(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	if _, err := svc.SetStock(ctx, "4", domain.StockUpdateRequest{Stock: 3}); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	order := dineIn(t, svc, ctx, "T5")
	order = addItem(t, svc, ctx, order.ID, "4", 2)

	_, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "4", Quantity: 2, Note: "Less Sugar"})
	var stockErr *StockError
	if !errors.As(err, &stockErr) || stockErr.Remaining != 1 {
		t.Fatalf("expected a stock error with 1 remaining, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected the stock error to wrap ErrInsufficientStock")
	}

	_, err = svc.SetQuantity(ctx, order.ID, order.Items[0].ID, 5)
	if !errors.As(err, &stockErr) || stockErr.Remaining != 3 {
		t.Fatalf("expected a stock error with 3 remaining, got %v", err)
	}
	after, _ := svc.GetOrder(ctx, order.ID)
	if after.Items[0].Quantity != 2 {
		t.Fatalf("expected the rejected change to leave the order untouched, got %d", after.Items[0].Quantity)
	}
}

func TestSendToKitchenAllocatesTicketsOncePerStation(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	first := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, first.ID, "1", 2)
	addItem(t, svc, ctx, first.ID, "4", 1)

	dispatch, err := svc.SendToKitchen(ctx, first.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if dispatch.KOT == nil || dispatch.KOT.Number != 1 || dispatch.BOT == nil || dispatch.BOT.Number != 1 {
		t.Fatalf("expected KOT 1 and BOT 1, got %+v / %+v", dispatch.KOT, dispatch.BOT)
	}
	if len(dispatch.KOT.Items) != 1 || dispatch.KOT.Items[0].MenuItem.Name != "Idly" {
		t.Fatalf("expected only Idly on the KOT, got %+v", dispatch.KOT.Items)
	}

	addItem(t, svc, ctx, first.ID, "5", 1)
	again, err := svc.SendToKitchen(ctx, first.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if again.Order.KOTNumber != 1 || again.Order.BOTNumber != 1 {
		t.Fatalf("expected ticket numbers to be kept on resend, got %d/%d", again.Order.KOTNumber, again.Order.BOTNumber)
	}

	second := dineIn(t, svc, ctx, "T2")
	addItem(t, svc, ctx, second.ID, "6", 1)
	dispatch, err = svc.SendToKitchen(ctx, second.ID)
	if err != nil {
		t.Fatalf("send second: %v", err)
	}
	if dispatch.Order.KOTNumber != 2 || dispatch.Order.BOTNumber != 0 || dispatch.BOT != nil {
		t.Fatalf("expected KOT 2 and no BOT, got %+v", dispatch.Order)
	}

	counters, _ := svc.repo.GetCounters(ctx)
	if counters.KOT != 2 || counters.BOT != 1 {
		t.Fatalf("expected counters kot=2 bot=1, got %+v", counters)
	}
}

func TestSendToKitchenWithNothingRoutable(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	empty := dineIn(t, svc, ctx, "T1")
	if _, err := svc.SendToKitchen(ctx, empty.ID); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend for an empty order, got %v", err)
	}

	if _, err := svc.CreateCategory(ctx, "Desserts"); err != nil {
		t.Fatalf("create category: %v", err)
	}
	cake, err := svc.CreateMenuItem(ctx, domain.MenuItem{Name: "Cake", Price: dec("40"), Category: "desserts"})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	if cake.Category != "Desserts" {
		t.Fatalf("expected the category name to be canonical, got %q", cake.Category)
	}
	addItem(t, svc, ctx, empty.ID, cake.ID, 1)
	if _, err := svc.SendToKitchen(ctx, empty.ID); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend for unrouted lines, got %v", err)
	}
	counters, _ := svc.repo.GetCounters(ctx)
	if counters.KOT != 0 || counters.BOT != 0 {
		t.Fatalf("expected no counter movement, got %+v", counters)
	}
}

func TestPayRequiresBillAndDeductsStock(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T6")
	addItem(t, svc, ctx, order.ID, "4", 3)

	if _, err := svc.Pay(ctx, order.ID, domain.PaymentCash); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected paying an active order to fail, got %v", err)
	}
	if _, err := svc.PresentBill(ctx, order.ID); err != nil {
		t.Fatalf("present bill: %v", err)
	}
	paid, err := svc.Pay(ctx, order.ID, domain.PaymentCard)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != domain.StatusPaid || paid.PaymentMethod != domain.PaymentCard || paid.FinalizedAt == nil {
		t.Fatalf("unexpected paid order %+v", paid)
	}
	if got := stockOf(t, svc, "4"); got != 47 {
		t.Fatalf("expected coffee stock 47, got %d", got)
	}

	if _, err := svc.Pay(ctx, order.ID, domain.PaymentCard); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected double payment to be rejected, got %v", err)
	}
	if got := stockOf(t, svc, "4"); got != 47 {
		t.Fatalf("expected stock unchanged by the rejected payment, got %d", got)
	}
	if _, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "1"}); !errors.Is(err, ErrOrderLocked) {
		t.Fatalf("expected a paid order to be locked, got %v", err)
	}
	if _, err := svc.Pay(ctx, order.ID, "voucher"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an unknown payment method to be rejected, got %v", err)
	}
}

func TestPresentBillRejectsEmptyOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T7")
	if _, err := svc.PresentBill(ctx, order.ID); !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestBilledOrderIsStillRepriced(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T8")
	addItem(t, svc, ctx, order.ID, "1", 1)
	if _, err := svc.PresentBill(ctx, order.ID); err != nil {
		t.Fatalf("present bill: %v", err)
	}
	order = addItem(t, svc, ctx, order.ID, "1", 1)
	if order.Status != domain.StatusBilled || !order.Total.Equal(dec("21")) {
		t.Fatalf("expected a billed order repriced to 21.00, got %s %s", order.Status, order.Total)
	}
}

func TestPayThenCancelStockArithmetic(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)
	if _, err := svc.SetStock(ctx, "4", domain.StockUpdateRequest{Stock: 7}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	paid := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, paid.ID, "4", 3)
	if _, err := svc.PresentBill(ctx, paid.ID); err != nil {
		t.Fatalf("bill: %v", err)
	}
	if _, err := svc.Pay(ctx, paid.ID, domain.PaymentCash); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if got := stockOf(t, svc, "4"); got != 4 {
		t.Fatalf("expected stock 4 after payment, got %d", got)
	}
	if _, err := svc.CancelOrder(ctx, paid.ID, "Refund"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected a paid order to stay paid, got %v", err)
	}

	billed := dineIn(t, svc, ctx, "T2")
	addItem(t, svc, ctx, billed.ID, "4", 3)
	if _, err := svc.PresentBill(ctx, billed.ID); err != nil {
		t.Fatalf("bill: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, billed.ID, "Customer left"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := stockOf(t, svc, "4"); got != 7 {
		t.Fatalf("expected cancellation to add the 3 units back to 7, got %d", got)
	}
}

func TestCancelRestoresStockEvenWhenNeverPaid(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T9")
	addItem(t, svc, ctx, order.ID, "6", 2)

	if _, err := svc.CancelOrder(actorCtx(domain.RoleWaiter), order.ID, "Mistake"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected waiter cancellation to be forbidden, got %v", err)
	}
	manager := actorCtx(domain.RoleManager)
	if _, err := svc.CancelOrder(manager, order.ID, "   "); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an empty reason to be rejected, got %v", err)
	}
	cancelled, err := svc.CancelOrder(manager, order.ID, "Customer left")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelReason != "Customer left" || cancelled.CancelledBy != "Manager User" || cancelled.FinalizedAt == nil {
		t.Fatalf("unexpected cancelled order %+v", cancelled)
	}
	if got := stockOf(t, svc, "6"); got != 102 {
		t.Fatalf("expected vada stock 102 after cancelling an unpaid order, got %d", got)
	}
}

func TestEndDayRequiresClosedOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	paid := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, paid.ID, "1", 2)
	svc.PresentBill(ctx, paid.ID)
	if _, err := svc.Pay(ctx, paid.ID, domain.PaymentBank); err != nil {
		t.Fatalf("pay: %v", err)
	}

	open := dineIn(t, svc, ctx, "T2")
	if _, err := svc.EndDay(ctx); !errors.Is(err, ErrOpenOrders) {
		t.Fatalf("expected ErrOpenOrders, got %v", err)
	}
	if day, _ := svc.GetDaySession(ctx); day == nil {
		t.Fatalf("expected the day session to stay open")
	}

	if err := svc.DiscardOrder(ctx, open.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	z, err := svc.EndDay(ctx)
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if z.OrderCount != 1 || !z.TotalRevenue.Equal(dec("21")) || !z.ByPayment.Bank.Equal(dec("21")) {
		t.Fatalf("unexpected z-report %+v", z)
	}
	if day, _ := svc.GetDaySession(ctx); day != nil {
		t.Fatalf("expected the day session to be cleared")
	}
	if revoked, _ := svc.sessions.IsRevoked(ctx, "tok-admin"); !revoked {
		t.Fatalf("expected the closing user to be signed out")
	}
}

func TestLogoutClearsDaySession(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if day, _ := svc.GetDaySession(ctx); day != nil {
		t.Fatalf("expected logout to clear the day session")
	}
}

func TestSplitOrderUsesCurrentTaxRate(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T3")
	addItem(t, svc, ctx, order.ID, "1", 3)
	order = addItem(t, svc, ctx, order.ID, "3", 2)
	order, _ = svc.AddDiscount(ctx, order.ID, domain.AddDiscountRequest{Type: domain.DiscountFixed, Value: dec("5"), Description: "Regular"})

	rate := dec("10")
	if _, err := svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{TaxRate: &rate}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	svc.now = func() time.Time { return testNow.Add(90 * time.Minute) }
	result, err := svc.SplitOrder(ctx, order.ID, domain.SplitRequest{Bills: [][]domain.SplitLine{
		{{CartItemID: order.Items[0].ID, Quantity: 3}},
		{{CartItemID: order.Items[1].ID, Quantity: 2}},
	}})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for _, child := range result.Children {
		if !child.CreatedAt.Equal(order.CreatedAt) {
			t.Fatalf("expected split bills to keep the order date %s, got %s", order.CreatedAt, child.CreatedAt)
		}
	}
	if result.Parent.Status != domain.StatusSplit || len(result.Children) != 2 {
		t.Fatalf("expected a split parent with two children, got %s / %d", result.Parent.Status, len(result.Children))
	}
	first, second := result.Children[0], result.Children[1]
	if !first.Total.Equal(dec("33")) || !second.Total.Equal(dec("66")) {
		t.Fatalf("expected totals 33.00 and 66.00 at 10%%, got %s and %s", first.Total, second.Total)
	}
	if first.ParentOrderID != order.ID || first.SplitBillNumber != 1 || second.SplitBillNumber != 2 || second.TotalSplitBills != 2 {
		t.Fatalf("unexpected split numbering %+v / %+v", first, second)
	}
	if len(first.Discounts) != 0 || first.Status != domain.StatusActive || first.TableID != "T3" {
		t.Fatalf("expected a fresh active child on T3, got %+v", first)
	}

	if _, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "1"}); !errors.Is(err, ErrOrderLocked) {
		t.Fatalf("expected the split parent to be frozen, got %v", err)
	}
	_, err = svc.SplitOrder(ctx, first.ID, domain.SplitRequest{Bills: [][]domain.SplitLine{
		{{CartItemID: first.Items[0].ID, Quantity: 1}},
		{{CartItemID: first.Items[0].ID, Quantity: 2}},
	}})
	if !errors.Is(err, ErrSplitNotAllowed) {
		t.Fatalf("expected a split child to refuse another split, got %v", err)
	}

	tables, _ := svc.ListTables(ctx)
	if tables[2].Status != domain.TableOccupied || len(tables[2].Bills) != 2 {
		t.Fatalf("expected T3 occupied by two bills, got %+v", tables[2])
	}
}

func TestSplitOrderValidatesPartition(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T10")
	addItem(t, svc, ctx, order.ID, "1", 3)
	order = addItem(t, svc, ctx, order.ID, "3", 2)
	a, b := order.Items[0].ID, order.Items[1].ID

	cases := [][][]domain.SplitLine{
		{{{CartItemID: a, Quantity: 3}, {CartItemID: b, Quantity: 2}}},
		{{{CartItemID: a, Quantity: 3}}, {{CartItemID: b, Quantity: 1}}},
		{{{CartItemID: a, Quantity: 3}}, {{CartItemID: b, Quantity: 3}}},
		{{{CartItemID: a, Quantity: 3}}, {}, {{CartItemID: "missing", Quantity: 2}}},
	}
	for i, bills := range cases {
		if _, err := svc.SplitOrder(ctx, order.ID, domain.SplitRequest{Bills: bills}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}

	result, err := svc.SplitOrder(ctx, order.ID, domain.SplitRequest{Bills: [][]domain.SplitLine{
		{{CartItemID: a, Quantity: 1}},
		{},
		{{CartItemID: a, Quantity: 2}, {CartItemID: b, Quantity: 2}},
	}})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(result.Children) != 2 || result.Children[0].Items[0].Quantity != 1 || len(result.Children[1].Items) != 2 {
		t.Fatalf("expected empty bills dropped and a partial line moved, got %+v", result.Children)
	}
	if result.Children[1].TotalSplitBills != 2 {
		t.Fatalf("expected two bills in total, got %d", result.Children[1].TotalSplitBills)
	}
}

func TestTakeawayNumbers(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	first, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeTakeaway})
	if err != nil {
		t.Fatalf("create takeaway: %v", err)
	}
	if first.TakeawayNumber != 1 {
		t.Fatalf("expected suggested number 1, got %d", first.TakeawayNumber)
	}
	if _, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeTakeaway, TakeawayNumber: 5}); err != nil {
		t.Fatalf("create takeaway 5: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeTakeaway, TakeawayNumber: 5}); !errors.Is(err, ErrTakeawayInUse) {
		t.Fatalf("expected a duplicate takeaway number to be rejected, got %v", err)
	}
	if _, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeTakeaway, TakeawayNumber: 3}); err != nil {
		t.Fatalf("create takeaway 3: %v", err)
	}

	board, err := svc.TakeawayBoard(ctx)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if board.Counter != 5 || board.SuggestedNumber != 6 || len(board.Orders) != 3 || board.Orders[1].TakeawayNumber != 3 {
		t.Fatalf("unexpected board %+v", board)
	}

	if _, err := svc.ResetTakeawayCounter(ctx); !errors.Is(err, ErrOpenOrders) {
		t.Fatalf("expected reset to be refused with open takeaways, got %v", err)
	}
	for _, o := range board.Orders {
		if err := svc.DiscardOrder(ctx, o.ID); err != nil {
			t.Fatalf("discard %s: %v", o.ID, err)
		}
	}
	counters, err := svc.ResetTakeawayCounter(ctx)
	if err != nil || counters.Takeaway != 0 {
		t.Fatalf("expected counter reset to 0, got %+v (err=%v)", counters, err)
	}
}

func TestCreateDineInChecksTable(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "t3")
	if order.TableID != "T3" || order.KitchenStatus != domain.KitchenPending || !order.TaxRate.Equal(dec("5")) {
		t.Fatalf("unexpected new order %+v", order)
	}
	if _, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeDineIn, TableID: "T3"}); !errors.Is(err, ErrTableHasOpenBills) {
		t.Fatalf("expected ErrTableHasOpenBills, got %v", err)
	}
	if _, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{OrderType: domain.OrderTypeDineIn, TableID: "T13"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an unknown table to be rejected, got %v", err)
	}

	addItem(t, svc, ctx, order.ID, "1", 1)
	svc.PresentBill(ctx, order.ID)
	tables, err := svc.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 12 || tables[2].Status != domain.TableBilled || tables[0].Status != domain.TableAvailable {
		t.Fatalf("unexpected tables %+v", tables[:3])
	}
}

func TestKitchenDisplayAndStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, order.ID, "1", 1)
	addItem(t, svc, ctx, order.ID, "4", 1)
	drinks := dineIn(t, svc, ctx, "T2")
	addItem(t, svc, ctx, drinks.ID, "4", 2)

	kitchen, err := svc.StationOrders(ctx, domain.StationKitchen)
	if err != nil {
		t.Fatalf("station orders: %v", err)
	}
	if len(kitchen) != 1 || len(kitchen[0].Items) != 1 || kitchen[0].Items[0].MenuItem.Name != "Idly" {
		t.Fatalf("expected one kitchen order with Idly only, got %+v", kitchen)
	}
	bar, _ := svc.StationOrders(ctx, domain.StationBar)
	if len(bar) != 2 {
		t.Fatalf("expected two bar orders, got %d", len(bar))
	}

	if _, err := svc.SetKitchenStatus(actorCtx(domain.RoleWaiter), order.ID, domain.KitchenReady); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected waiter to be refused the kitchen display, got %v", err)
	}
	svc.PresentBill(ctx, order.ID)
	updated, err := svc.SetKitchenStatus(actorCtx(domain.RoleManager), order.ID, domain.KitchenReady)
	if err != nil {
		t.Fatalf("set kitchen status: %v", err)
	}
	if updated.KitchenStatus != domain.KitchenReady || updated.Status != domain.StatusBilled {
		t.Fatalf("expected a billed order marked ready, got %+v", updated)
	}
}

func TestCategoryAdministration(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, order.ID, "1", 1)

	if _, err := svc.RenameCategory(ctx, "cat-1", " Morning "); err != nil {
		t.Fatalf("rename: %v", err)
	}
	item, _ := svc.repo.GetMenuItem(ctx, "1")
	settings, _ := svc.GetSettings(ctx)
	stored, _ := svc.GetOrder(ctx, order.ID)
	if item.Category != "Morning" || settings.StationAssignments.Kitchen[0] != "Morning" || stored.Items[0].MenuItem.Category != "Morning" {
		t.Fatalf("expected the rename to cascade, got item=%s kitchen=%v line=%s", item.Category, settings.StationAssignments.Kitchen, stored.Items[0].MenuItem.Category)
	}
	dispatch, err := svc.SendToKitchen(ctx, order.ID)
	if err != nil || dispatch.KOT == nil {
		t.Fatalf("expected renamed lines to stay routed, got %+v (err=%v)", dispatch, err)
	}

	if _, err := svc.CreateCategory(ctx, "beverages"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected a case-insensitive duplicate to conflict, got %v", err)
	}
	if _, err := svc.RenameCategory(ctx, "cat-3", "MORNING"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected a rename onto an existing name to conflict, got %v", err)
	}
	if err := svc.DeleteCategory(ctx, "cat-2"); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	created, _ := svc.CreateCategory(ctx, "Specials")
	if _, err := svc.SetStationAssignment(ctx, domain.StationAssignmentRequest{Category: "Specials", Station: domain.StationBar}); err != nil {
		t.Fatalf("assign specials to bar: %v", err)
	}
	if err := svc.DeleteCategory(ctx, created.ID); err != nil {
		t.Fatalf("delete unused category: %v", err)
	}
	settings, _ = svc.GetSettings(ctx)
	for _, name := range append(settings.StationAssignments.Kitchen, settings.StationAssignments.Bar...) {
		if name == "Specials" {
			t.Fatalf("expected deleted category to leave the stations, got %+v", settings.StationAssignments)
		}
	}
	if _, err := svc.CreateCategory(ctx, "Specials"); err != nil {
		t.Fatalf("recreate category: %v", err)
	}
	settings, _ = svc.GetSettings(ctx)
	if len(settings.StationAssignments.Bar) != 1 {
		t.Fatalf("expected a recreated category to start unrouted, got bar=%v", settings.StationAssignments.Bar)
	}
}

func TestMenuValidationAndReset(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	if _, err := svc.CreateMenuItem(ctx, domain.MenuItem{Name: "Free", Price: dec("0"), Category: "Snacks"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a zero price to be rejected, got %v", err)
	}
	if _, err := svc.CreateMenuItem(ctx, domain.MenuItem{Name: "Tea", Price: dec("8"), Category: "Drinks"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an unknown category to be rejected, got %v", err)
	}
	if _, err := svc.CreateMenuItem(actorCtx(domain.RoleCashier), domain.MenuItem{Name: "Tea", Price: dec("8"), Category: "Beverages"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected cashier to be refused, got %v", err)
	}
	if err := svc.DeleteMenuItem(ctx, "7"); err != nil {
		t.Fatalf("delete menu item: %v", err)
	}
	menu, err := svc.ResetMenu(ctx)
	if err != nil {
		t.Fatalf("reset menu: %v", err)
	}
	if len(menu) != 7 {
		t.Fatalf("expected 7 default items after reset, got %d", len(menu))
	}
}

func TestSettingsAndStationAssignments(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	settings, err := svc.SetStationAssignment(ctx, domain.StationAssignmentRequest{Category: "snacks", Station: domain.StationBar})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(settings.StationAssignments.Kitchen) != 1 || len(settings.StationAssignments.Bar) != 2 {
		t.Fatalf("expected Snacks to move from kitchen to bar, got %+v", settings.StationAssignments)
	}
	settings, _ = svc.SetStationAssignment(ctx, domain.StationAssignmentRequest{Category: "Snacks"})
	if len(settings.StationAssignments.Bar) != 1 {
		t.Fatalf("expected an empty station to unassign Snacks, got %+v", settings.StationAssignments)
	}

	bad := dec("120")
	if _, err := svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{TaxRate: &bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an out-of-range tax rate to be rejected, got %v", err)
	}
	dineIn(t, svc, ctx, "T10")
	tables := 8
	if _, err := svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{NumberOfTables: &tables}); !errors.Is(err, ErrOpenOrders) {
		t.Fatalf("expected shrinking below an occupied table to be refused, got %v", err)
	}
	name := "Hotel Saravana"
	settings, err = svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{RestaurantName: &name, CommonNotes: []string{"No Salt", " ", "no salt"}})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.RestaurantName != name || len(settings.CommonNotes) != 1 {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestManagerPermissionToggles(t *testing.T) {
	svc := newTestService(t)
	admin := actorCtx(domain.RoleAdmin)

	if _, err := svc.SetManagerPermissions(actorCtx(domain.RoleManager), domain.ManagerPermissions{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected a manager to be refused, got %v", err)
	}
	if _, err := svc.SetManagerPermissions(admin, domain.ManagerPermissions{CanViewReports: true}); err != nil {
		t.Fatalf("set manager permissions: %v", err)
	}
	perms, err := svc.PermissionsFor(admin, domain.RoleManager)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if perms.Has(domain.CapManageMenu) || !perms.Has(domain.CapViewReports) || !perms.Has(domain.CapCancelOrders) {
		t.Fatalf("unexpected manager permissions %v", perms.List())
	}
}

func TestUserManagement(t *testing.T) {
	svc := newTestService(t)
	admin := actorCtx(domain.RoleAdmin)

	if _, err := svc.CreateUser(admin, domain.UserRequest{Name: "New", Username: "new", PIN: "12", Role: domain.RoleWaiter}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a short PIN to be rejected, got %v", err)
	}
	created, err := svc.CreateUser(admin, domain.UserRequest{Name: "Ravi", Username: " Ravi ", PIN: "5678", Role: domain.RoleWaiter})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.PIN != "" || created.Username != "ravi" {
		t.Fatalf("expected a public user with a normalized username, got %+v", created)
	}
	if _, err := svc.CreateUser(admin, domain.UserRequest{Name: "Dup", Username: "ADMIN", PIN: "1111", Role: domain.RoleWaiter}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected a duplicate username to conflict, got %v", err)
	}
	if _, err := svc.CreateUser(actorCtx(domain.RoleManager), domain.UserRequest{Name: "Boss", Username: "boss", PIN: "1111", Role: domain.RoleAdmin}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected a manager to be refused creating an admin, got %v", err)
	}

	if _, err := svc.ResetPIN(admin, created.ID); err != nil {
		t.Fatalf("reset pin: %v", err)
	}
	stored, err := svc.findUser(admin, created.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PIN), []byte(store.DefaultResetPIN)) != nil {
		t.Fatalf("expected the PIN to be reset to the factory PIN")
	}

	if err := svc.DeleteUser(admin, "user-1"); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected self deletion to be refused, got %v", err)
	}
	if err := svc.DeleteUser(admin, created.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	users, _ := svc.ListUsers(admin)
	for _, u := range users {
		if u.PIN != "" {
			t.Fatalf("expected PIN hashes to stay private")
		}
	}
}

func TestCustomerSnapshotOnOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T1")
	order, err := svc.AssignCustomer(ctx, order.ID, domain.AssignCustomerRequest{Name: "Asha", Phone: "555-0101"})
	if err != nil {
		t.Fatalf("assign new customer: %v", err)
	}
	if order.Customer == nil || order.Customer.Name != "Asha" {
		t.Fatalf("expected Asha on the order, got %+v", order.Customer)
	}

	if _, err := svc.UpdateCustomer(ctx, order.Customer.ID, domain.CustomerRequest{Name: "Asha K", Phone: "555-0101"}); err != nil {
		t.Fatalf("update customer: %v", err)
	}
	stored, _ := svc.GetOrder(ctx, order.ID)
	if stored.Customer.Name != "Asha" {
		t.Fatalf("expected the order to keep its snapshot, got %s", stored.Customer.Name)
	}

	found, err := svc.ListCustomers(ctx, "0101")
	if err != nil || len(found) != 1 {
		t.Fatalf("expected one customer by phone, got %v (err=%v)", found, err)
	}
	if none, _ := svc.ListCustomers(ctx, "zzz"); len(none) != 0 {
		t.Fatalf("expected no match, got %v", none)
	}
	if _, err := svc.CreateCustomer(ctx, domain.CustomerRequest{Name: "No Phone"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a customer without phone to be rejected, got %v", err)
	}

	order, err = svc.RemoveCustomer(ctx, order.ID)
	if err != nil || order.Customer != nil {
		t.Fatalf("expected the customer to be removed, got %+v (err=%v)", order.Customer, err)
	}
}

func TestReportsAndClearSales(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T1")
	addItem(t, svc, ctx, order.ID, "1", 2)
	svc.PresentBill(ctx, order.ID)
	if _, err := svc.Pay(ctx, order.ID, domain.PaymentCash); err != nil {
		t.Fatalf("pay: %v", err)
	}
	cancelled := dineIn(t, svc, ctx, "T2")
	addItem(t, svc, ctx, cancelled.ID, "2", 1)
	if _, err := svc.CancelOrder(ctx, cancelled.ID, "Wrong table"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	today, err := svc.ReportRange(report.PresetToday)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	summary, err := svc.SalesSummary(ctx, today)
	if err != nil {
		t.Fatalf("sales summary: %v", err)
	}
	if summary.OrderCount != 1 || !summary.TotalRevenue.Equal(dec("21")) || summary.Hourly[12].Revenue.IsZero() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	cancellations, err := svc.Cancellations(ctx, today)
	if err != nil || cancellations.Count != 1 || cancellations.Orders[0].Reason != "Wrong table" {
		t.Fatalf("unexpected cancellations %+v (err=%v)", cancellations, err)
	}
	if _, err := svc.SalesSummary(actorCtx(domain.RoleWaiter), today); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected waiter to be refused reports, got %v", err)
	}

	open := dineIn(t, svc, ctx, "T3")
	if _, err := svc.ClearSalesData(ctx); !errors.Is(err, ErrOpenOrders) {
		t.Fatalf("expected clearing with open orders to be refused, got %v", err)
	}
	svc.DiscardOrder(ctx, open.ID)
	removed, err := svc.ClearSalesData(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 orders removed, got %d (err=%v)", removed, err)
	}
}

func TestLineQuantityIsCapped(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)

	order := dineIn(t, svc, ctx, "T4")
	if _, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "1", Quantity: math.MaxInt - 1}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a huge quantity to be rejected, got %v", err)
	}
	order = addItem(t, svc, ctx, order.ID, "1", maxLineQuantity-1)
	if _, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "1", Quantity: 5}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected merging past the cap to be rejected, got %v", err)
	}
	order = addItem(t, svc, ctx, order.ID, "1", 1)
	if order.Items[0].Quantity != maxLineQuantity || !order.Subtotal.IsPositive() {
		t.Fatalf("expected a full line with a positive subtotal, got qty=%d subtotal=%s", order.Items[0].Quantity, order.Subtotal)
	}

	line := order.Items[0].ID
	if _, err := svc.SetQuantity(ctx, order.ID, line, math.MaxInt); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected SetQuantity above the cap to be rejected, got %v", err)
	}
	order, err := svc.AddItem(ctx, order.ID, domain.AddItemRequest{MenuItemID: "1", Quantity: 1, Note: "no onion"})
	if err != nil {
		t.Fatalf("add noted line: %v", err)
	}
	if _, err := svc.SetNote(ctx, order.ID, order.Items[1].ID, ""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a note merge past the cap to be rejected, got %v", err)
	}

	_, err = svc.SplitOrder(ctx, order.ID, domain.SplitRequest{Bills: [][]domain.SplitLine{
		{{CartItemID: line, Quantity: math.MaxInt}},
		{{CartItemID: line, Quantity: math.MaxInt}, {CartItemID: order.Items[1].ID, Quantity: 1}},
	}})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an oversized split quantity to be rejected, got %v", err)
	}
	stored, _ := svc.GetOrder(ctx, order.ID)
	if stored.Items[0].Quantity != maxLineQuantity || stored.Status != domain.StatusActive {
		t.Fatalf("expected the order unchanged, got %+v", stored)
	}
}

// lockCheckingSessions counts day checks that ran while the engine lock was free.
type lockCheckingSessions struct {
	session.Store
	svc      *Service
	unlocked int
}

func (l *lockCheckingSessions) GetDaySession(ctx context.Context) (*domain.DaySession, error) {
	if l.svc.mu.TryLock() {
		l.unlocked++
		l.svc.mu.Unlock()
	}
	return l.Store.GetDaySession(ctx)
}

func TestDayCheckHoldsEngineLock(t *testing.T) {
	svc := newTestService(t)
	ctx := startDay(t, svc)
	checker := &lockCheckingSessions{Store: svc.sessions, svc: svc}
	svc.sessions = checker

	order := dineIn(t, svc, ctx, "T1")
	order = addItem(t, svc, ctx, order.ID, "1", 2)
	if _, err := svc.SendToKitchen(ctx, order.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SetKitchenStatus(ctx, order.ID, domain.KitchenReady); err != nil {
		t.Fatalf("kitchen status: %v", err)
	}
	if _, err := svc.PresentBill(ctx, order.ID); err != nil {
		t.Fatalf("bill: %v", err)
	}
	if _, err := svc.Pay(ctx, order.ID, domain.PaymentCash); err != nil {
		t.Fatalf("pay: %v", err)
	}

	split := dineIn(t, svc, ctx, "T2")
	addItem(t, svc, ctx, split.ID, "1", 1)
	split = addItem(t, svc, ctx, split.ID, "3", 1)
	result, err := svc.SplitOrder(ctx, split.ID, domain.SplitRequest{Bills: [][]domain.SplitLine{
		{{CartItemID: split.Items[0].ID, Quantity: 1}},
		{{CartItemID: split.Items[1].ID, Quantity: 1}},
	}})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, result.Children[0].ID, "guest left"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.DiscardOrder(ctx, result.Children[1].ID); err != nil {
		t.Fatalf("discard: %v", err)
	}

	if checker.unlocked != 0 {
		t.Fatalf("expected every day check under the engine lock, got %d outside it", checker.unlocked)
	}
}

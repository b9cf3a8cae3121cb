// Package report aggregates finalized orders into end-of-day and sales reports.
// It never mutates orders.
package report

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

var ErrInvalidRange = errors.New("invalid date range")

type PaymentTotals struct {
	Cash decimal.Decimal `json:"cash"`
	Card decimal.Decimal `json:"card"`
	Bank decimal.Decimal `json:"bank"`
}

func (p *PaymentTotals) add(method domain.PaymentMethod, amount decimal.Decimal) {
	switch method {
	case domain.PaymentCash:
		p.Cash = p.Cash.Add(amount)
	case domain.PaymentCard:
		p.Card = p.Card.Add(amount)
	case domain.PaymentBank:
		p.Bank = p.Bank.Add(amount)
	}
}

type TypeTotals struct {
	DineIn   decimal.Decimal `json:"dine_in"`
	Takeaway decimal.Decimal `json:"takeaway"`
}

func (t *TypeTotals) add(orderType domain.OrderType, amount decimal.Decimal) {
	switch orderType {
	case domain.OrderTypeDineIn:
		t.DineIn = t.DineIn.Add(amount)
	case domain.OrderTypeTakeaway:
		t.Takeaway = t.Takeaway.Add(amount)
	}
}

type ZReport struct {
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	StartedBy      string          `json:"started_by"`
	ClosedBy       string          `json:"closed_by"`
	OrderCount     int             `json:"order_count"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	TotalDiscounts decimal.Decimal `json:"total_discounts"`
	ByPayment      PaymentTotals   `json:"by_payment"`
	ByType         TypeTotals      `json:"by_type"`
}

// BuildZReport totals the paid orders finalized at or after the session start.
func BuildZReport(session domain.DaySession, closedBy string, end time.Time, orders []domain.Order) ZReport {
	z := ZReport{
		StartTime: session.StartTime,
		EndTime:   end,
		StartedBy: session.StartedBy,
		ClosedBy:  closedBy,
	}
	for _, o := range orders {
		if o.Status != domain.StatusPaid || o.ReportTime().Before(session.StartTime) {
			continue
		}
		z.OrderCount++
		z.TotalRevenue = z.TotalRevenue.Add(o.Total)
		z.TotalTax = z.TotalTax.Add(o.Tax)
		z.TotalDiscounts = z.TotalDiscounts.Add(o.TotalDiscount)
		z.ByPayment.add(o.PaymentMethod, o.Total)
		z.ByType.add(o.OrderType, o.Total)
	}
	return z
}

type ItemSales struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

type HourSales struct {
	Hour    int             `json:"hour"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

type PeriodSales struct {
	Period    string          `json:"period"`
	Revenue   decimal.Decimal `json:"revenue"`
	Discounts decimal.Decimal `json:"discounts"`
	Orders    int             `json:"orders"`
	start     time.Time
}

type Granularity string

const (
	ByDay   Granularity = "day"
	ByMonth Granularity = "month"
)

type SalesSummary struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OrderCount     int             `json:"order_count"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	TotalDiscounts decimal.Decimal `json:"total_discounts"`
	AverageOrder   decimal.Decimal `json:"average_order"`
	ByPayment      PaymentTotals   `json:"by_payment"`
	ByType         TypeTotals      `json:"by_type"`
	TopItems       []ItemSales     `json:"top_items"`
	Hourly         []HourSales     `json:"hourly"`
	Granularity    Granularity     `json:"granularity"`
	OverTime       []PeriodSales   `json:"over_time"`
}

const topItemLimit = 5

// BuildSalesSummary aggregates paid orders whose report time falls inside
// [from, to]. Hours, days and months are taken in loc.
func BuildSalesSummary(from time.Time, to time.Time, loc *time.Location, orders []domain.Order) (SalesSummary, error) {
	if to.Before(from) {
		return SalesSummary{}, ErrInvalidRange
	}
	if loc == nil {
		loc = time.UTC
	}
	s := SalesSummary{From: from, To: to, Granularity: ByDay}
	if to.Sub(from) > 31*24*time.Hour {
		s.Granularity = ByMonth
	}

	s.Hourly = make([]HourSales, 24)
	for h := range s.Hourly {
		s.Hourly[h] = HourSales{Hour: h, Label: time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04")}
	}
	items := map[string]*ItemSales{}
	periods := map[string]*PeriodSales{}

	for _, o := range orders {
		at := o.ReportTime()
		if o.Status != domain.StatusPaid || at.Before(from) || at.After(to) {
			continue
		}
		s.OrderCount++
		s.TotalRevenue = s.TotalRevenue.Add(o.Total)
		s.TotalTax = s.TotalTax.Add(o.Tax)
		s.TotalDiscounts = s.TotalDiscounts.Add(o.TotalDiscount)
		s.ByPayment.add(o.PaymentMethod, o.Total)
		s.ByType.add(o.OrderType, o.Total)

		local := at.In(loc)
		s.Hourly[local.Hour()].Revenue = s.Hourly[local.Hour()].Revenue.Add(o.Total)

		key, start := local.Format("2006-01-02"), time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if s.Granularity == ByMonth {
			key, start = local.Format("Jan 2006"), time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		}
		p, ok := periods[key]
		if !ok {
			p = &PeriodSales{Period: key, start: start}
			periods[key] = p
		}
		p.Revenue = p.Revenue.Add(o.Total)
		p.Discounts = p.Discounts.Add(o.TotalDiscount)
		p.Orders++

		for _, line := range o.Items {
			entry, ok := items[line.MenuItem.ID]
			if !ok {
				entry = &ItemSales{MenuItemID: line.MenuItem.ID, Name: line.MenuItem.Name}
				items[line.MenuItem.ID] = entry
			}
			entry.Quantity += line.Quantity
		}
	}

	if s.OrderCount > 0 {
		s.AverageOrder = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.OrderCount))).Round(2)
	}

	s.TopItems = make([]ItemSales, 0, len(items))
	for _, entry := range items {
		s.TopItems = append(s.TopItems, *entry)
	}
	sort.Slice(s.TopItems, func(i, j int) bool {
		if s.TopItems[i].Quantity != s.TopItems[j].Quantity {
			return s.TopItems[i].Quantity > s.TopItems[j].Quantity
		}
		return s.TopItems[i].Name < s.TopItems[j].Name
	})
	if len(s.TopItems) > topItemLimit {
		s.TopItems = s.TopItems[:topItemLimit]
	}

	s.OverTime = make([]PeriodSales, 0, len(periods))
	for _, p := range periods {
		s.OverTime = append(s.OverTime, *p)
	}
	sort.Slice(s.OverTime, func(i, j int) bool { return s.OverTime[i].start.Before(s.OverTime[j].start) })
	return s, nil
}

// PeakHours returns up to n hours with sales, busiest first.
func (s SalesSummary) PeakHours(n int) []HourSales {
	out := make([]HourSales, 0, len(s.Hourly))
	for _, h := range s.Hourly {
		if h.Revenue.IsPositive() {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue.GreaterThan(out[j].Revenue) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type Cancellation struct {
	OrderID     string           `json:"order_id"`
	OrderType   domain.OrderType `json:"order_type"`
	Locator     string           `json:"locator"`
	CancelledAt time.Time        `json:"cancelled_at"`
	Value       decimal.Decimal  `json:"value"`
	Reason      string           `json:"reason"`
	CancelledBy string           `json:"cancelled_by"`
}

type CancellationReport struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
	Orders     []Cancellation  `json:"orders"`
}

func BuildCancellations(from time.Time, to time.Time, orders []domain.Order) (CancellationReport, error) {
	if to.Before(from) {
		return CancellationReport{}, ErrInvalidRange
	}
	r := CancellationReport{From: from, To: to, Orders: []Cancellation{}}
	for _, o := range orders {
		at := o.ReportTime()
		if o.Status != domain.StatusCancelled || at.Before(from) || at.After(to) {
			continue
		}
		r.Count++
		r.TotalValue = r.TotalValue.Add(o.Total)
		r.Orders = append(r.Orders, Cancellation{
			OrderID:     o.ID,
			OrderType:   o.OrderType,
			Locator:     Locator(o),
			CancelledAt: at,
			Value:       o.Total,
			Reason:      o.CancelReason,
			CancelledBy: o.CancelledBy,
		})
	}
	sort.Slice(r.Orders, func(i, j int) bool { return r.Orders[i].CancelledAt.After(r.Orders[j].CancelledAt) })
	return r, nil
}

// Locator names where an order is served: its table or takeaway number.
func Locator(o domain.Order) string {
	if o.OrderType == domain.OrderTypeTakeaway {
		return "Takeaway #" + strconv.Itoa(o.TakeawayNumber)
	}
	if len(o.TableID) > 1 {
		return "Table " + o.TableID[1:]
	}
	return o.TableID
}

type Preset string

const (
	PresetToday Preset = "today"
	PresetMonth Preset = "month"
	PresetYear  Preset = "year"
)

// PresetRange returns the inclusive range of the current day, month or year in loc.
func PresetRange(preset Preset, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	var from, to time.Time
	switch preset {
	case PresetToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		to = from.AddDate(0, 0, 1)
	case PresetMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0)
	case PresetYear:
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from, to.Add(-time.Nanosecond), nil
}

package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const stamp = "2006-01-02 15:04"

func (s SalesSummary) summaryRows() [][]string {
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "from", s.From.Format(stamp)},
		{"summary", "to", s.To.Format(stamp)},
		{"summary", "orders", strconv.Itoa(s.OrderCount)},
		{"summary", "total_revenue", s.TotalRevenue.StringFixed(2)},
		{"summary", "total_tax", s.TotalTax.StringFixed(2)},
		{"summary", "total_discounts", s.TotalDiscounts.StringFixed(2)},
		{"summary", "average_order", s.AverageOrder.StringFixed(2)},
		{"payment", "cash", s.ByPayment.Cash.StringFixed(2)},
		{"payment", "card", s.ByPayment.Card.StringFixed(2)},
		{"payment", "bank", s.ByPayment.Bank.StringFixed(2)},
		{"order_type", "dine_in", s.ByType.DineIn.StringFixed(2)},
		{"order_type", "takeaway", s.ByType.Takeaway.StringFixed(2)},
	}
	for _, item := range s.TopItems {
		rows = append(rows, []string{"top_item", item.Name, strconv.Itoa(item.Quantity)})
	}
	for _, p := range s.OverTime {
		rows = append(rows, []string{"period", p.Period, p.Revenue.StringFixed(2)})
	}
	for _, h := range s.Hourly {
		rows = append(rows, []string{"hour", h.Label, h.Revenue.StringFixed(2)})
	}
	return rows
}

func (s SalesSummary) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(s.summaryRows()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r CancellationReport) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"order_id", "order", "cancelled_at", "value", "reason", "cancelled_by"})
	for _, c := range r.Orders {
		_ = w.Write([]string{c.OrderID, c.Locator, c.CancelledAt.Format(stamp), c.Value.StringFixed(2), c.Reason, c.CancelledBy})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSX writes the sales summary as a workbook with one sheet per breakdown.
func (s SalesSummary) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"From", s.From.Format(stamp)},
		{"To", s.To.Format(stamp)},
		{"Orders", s.OrderCount},
		{"Total revenue", s.TotalRevenue.InexactFloat64()},
		{"Total tax", s.TotalTax.InexactFloat64()},
		{"Total discounts", s.TotalDiscounts.InexactFloat64()},
		{"Average order", s.AverageOrder.InexactFloat64()},
		{"Cash", s.ByPayment.Cash.InexactFloat64()},
		{"Card", s.ByPayment.Card.InexactFloat64()},
		{"Bank", s.ByPayment.Bank.InexactFloat64()},
		{"Dine-in", s.ByType.DineIn.InexactFloat64()},
		{"Takeaway", s.ByType.Takeaway.InexactFloat64()},
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return nil, err
	}

	top := [][]any{{"Item", "Quantity"}}
	for _, item := range s.TopItems {
		top = append(top, []any{item.Name, item.Quantity})
	}
	if err := writeSheet(f, "Top Items", top); err != nil {
		return nil, err
	}

	overTime := [][]any{{"Period", "Revenue", "Discounts", "Orders"}}
	for _, p := range s.OverTime {
		overTime = append(overTime, []any{p.Period, p.Revenue.InexactFloat64(), p.Discounts.InexactFloat64(), p.Orders})
	}
	if err := writeSheet(f, "Sales Over Time", overTime); err != nil {
		return nil, err
	}

	hourly := [][]any{{"Hour", "Revenue"}}
	for _, h := range s.Hourly {
		hourly = append(hourly, []any{h.Label, h.Revenue.InexactFloat64()})
	}
	if err := writeSheet(f, "Hourly", hourly); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

var salesHTMLTmpl = template.Must(template.New("sales-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Sales Report {{.From.Format "2006-01-02"}} to {{.To.Format "2006-01-02"}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Sales Report</h2>
  <p>{{.From.Format "2006-01-02 15:04"}} to {{.To.Format "2006-01-02 15:04"}}</p>
  <p>Orders: {{.OrderCount}} | Revenue: {{.TotalRevenue.StringFixed 2}} | Tax: {{.TotalTax.StringFixed 2}} | Discounts: {{.TotalDiscounts.StringFixed 2}}</p>

  <h3>By Payment</h3>
  <table>
    <thead><tr><th>Cash</th><th>Card</th><th>Bank</th></tr></thead>
    <tbody><tr><td style="text-align:right;">{{.ByPayment.Cash.StringFixed 2}}</td><td style="text-align:right;">{{.ByPayment.Card.StringFixed 2}}</td><td style="text-align:right;">{{.ByPayment.Bank.StringFixed 2}}</td></tr></tbody>
  </table>

  <h3>Top Items</h3>
  <table>
    <thead><tr><th>Item</th><th>Quantity</th></tr></thead>
    <tbody>{{range .TopItems}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.Quantity}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Sales Over Time</h3>
  <table>
    <thead><tr><th>Period</th><th>Revenue</th><th>Discounts</th></tr></thead>
    <tbody>{{range .OverTime}}<tr><td>{{.Period}}</td><td style="text-align:right;">{{.Revenue.StringFixed 2}}</td><td style="text-align:right;">{{.Discounts.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func (s SalesSummary) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := salesHTMLTmpl.Execute(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

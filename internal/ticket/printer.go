package ticket

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

const lineWidth = 42

var (
	ErrNoTicket = errors.New("order has no ticket for this station")
	ErrNoLines  = errors.New("no lines for this station")
)

var (
	escInit    = []byte{0x1b, 0x40}
	escBoldOn  = []byte{0x1b, 0x45, 0x01}
	escBoldOff = []byte{0x1b, 0x45, 0x00}
	escCenter  = []byte{0x1b, 0x61, 0x01}
	escLeft    = []byte{0x1b, 0x61, 0x00}
	escFullCut = []byte{0x1d, 0x56, 0x41, 0x10}
)

type BillType string

const (
	BillDetailed BillType = "detailed"
	BillSummary  BillType = "summary"
)

type BillOptions struct {
	Type         BillType
	ShowCustomer bool
	Copies       int
	// Location is the zone the bill date is printed in. Nil keeps the stored zone.
	Location *time.Location
}

// Document is a rendered print job: raw ESC/POS bytes plus a text preview.
type Document struct {
	OrderID      string `json:"order_id"`
	Title        string `json:"title"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
	FileName     string `json:"file_name"`
}

type printLine struct {
	text   string
	bold   bool
	center bool
}

// StationTicket renders the KOT or BOT of an order. The order must already
// carry a ticket number for the station.
func StationTicket(order domain.Order, station domain.Station, settings domain.Settings, at time.Time) (Document, error) {
	label, number := "KOT", order.KOTNumber
	if station == domain.StationBar {
		label, number = "BOT", order.BOTNumber
	}
	if number == 0 {
		return Document{}, ErrNoTicket
	}
	items := RouteItems(order.Items, settings.StationAssignments).For(station)
	if len(items) == 0 {
		return Document{}, ErrNoLines
	}

	lines := []printLine{
		{text: fmt.Sprintf("%s #%d", label, number), bold: true, center: true},
		{text: divider('-')},
	}
	switch order.OrderType {
	case domain.OrderTypeDineIn:
		lines = append(lines, printLine{text: "Table: " + tableLabel(order.TableID), bold: true})
	case domain.OrderTypeTakeaway:
		lines = append(lines, printLine{text: fmt.Sprintf("Takeaway #: %d", order.TakeawayNumber), bold: true})
	}
	lines = append(lines,
		printLine{text: "Time: " + at.Format("15:04:05")},
		printLine{text: "Server: " + order.CreatedBy},
		printLine{text: divider('-')},
		printLine{text: twoCol("QTY", "ITEM", 6)},
		printLine{text: divider('-')},
	)
	for _, item := range items {
		lines = append(lines, printLine{text: twoCol(fmt.Sprintf("%dx", item.Quantity), item.MenuItem.Name, 6), bold: true})
		if item.Note != "" {
			lines = append(lines, printLine{text: "      --> " + item.Note})
		}
		lines = append(lines, printLine{text: divider('-')})
	}
	lines = append(lines, printLine{})

	return Document{
		OrderID:      order.ID,
		Title:        fmt.Sprintf("%s #%d", label, number),
		EscposBase64: base64.StdEncoding.EncodeToString(encode(lines, 1)),
		PreviewText:  preview(lines),
		FileName:     fmt.Sprintf("%s-%d.bin", strings.ToLower(label), number),
	}, nil
}

// Bill renders the customer bill. A summary bill leaves out the item table.
func Bill(order domain.Order, settings domain.Settings, opts BillOptions) Document {
	if opts.Copies < 1 {
		opts.Copies = 1
	}
	money := func(d decimal.Decimal) string {
		return settings.CurrencySymbol + d.StringFixed(2)
	}

	lines := []printLine{
		{text: settings.RestaurantName, bold: true, center: true},
		{text: settings.Address, center: true},
		{text: "Tel: " + settings.Phone, center: true},
		{text: divider('=')},
	}
	if opts.ShowCustomer && order.Customer != nil {
		lines = append(lines,
			printLine{text: "Customer:", bold: true},
			printLine{text: order.Customer.Name},
			printLine{text: order.Customer.Phone},
			printLine{text: divider('-')},
		)
	}
	lines = append(lines,
		printLine{text: "Order ID: " + shortID(order.ID)},
		printLine{text: "Order Type: " + titleCase(string(order.OrderType))},
	)
	switch order.OrderType {
	case domain.OrderTypeDineIn:
		table := "Table: " + tableLabel(order.TableID)
		if order.SplitBillNumber > 0 {
			table += fmt.Sprintf(" (Bill %d of %d)", order.SplitBillNumber, order.TotalSplitBills)
		}
		lines = append(lines, printLine{text: table})
	case domain.OrderTypeTakeaway:
		lines = append(lines, printLine{text: fmt.Sprintf("Takeaway #: %d", order.TakeawayNumber)})
	}
	lines = append(lines,
		printLine{text: "Date: " + billTime(order, opts.Location).Format("2006-01-02 15:04")},
		printLine{text: "Server: " + order.CreatedBy},
	)
	if order.PaymentMethod != "" {
		lines = append(lines, printLine{text: "Payment: " + titleCase(string(order.PaymentMethod))})
	}
	lines = append(lines, printLine{text: divider('-')})

	if opts.Type != BillSummary {
		for _, item := range order.Items {
			lines = append(lines,
				printLine{text: item.MenuItem.Name},
				printLine{text: twoCol(
					fmt.Sprintf("  %d x %s", item.Quantity, money(item.MenuItem.Price)),
					money(item.LineTotal()), lineWidth,
				)},
			)
			if item.Note != "" {
				lines = append(lines, printLine{text: "  Note: " + item.Note})
			}
		}
		lines = append(lines, printLine{text: divider('-')})
	}

	lines = append(lines, printLine{text: twoCol("Subtotal:", money(order.Subtotal), lineWidth)})
	for _, d := range order.Discounts {
		amount := d.Value
		if d.Type == domain.DiscountPercentage {
			amount = order.Subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
		}
		lines = append(lines, printLine{text: twoCol("Discount ("+d.Description+"):", "-"+money(amount), lineWidth)})
	}
	if order.TotalDiscount.IsPositive() {
		lines = append(lines, printLine{text: twoCol("Total Discount:", "-"+money(order.TotalDiscount), lineWidth)})
	}
	lines = append(lines,
		printLine{text: twoCol("Tax ("+order.TaxRate.String()+"%):", money(order.Tax), lineWidth)},
		printLine{text: twoCol("TOTAL:", money(order.Total), lineWidth), bold: true},
		printLine{text: divider('=')},
	)
	if order.OrderType == domain.OrderTypeDineIn {
		lines = append(lines,
			printLine{text: twoCol("Tip:", "______________", lineWidth)},
			printLine{text: twoCol("Total:", "______________", lineWidth)},
		)
	}
	lines = append(lines, printLine{text: settings.FooterMessage, center: true}, printLine{})

	return Document{
		OrderID:      order.ID,
		Title:        "Bill " + shortID(order.ID),
		EscposBase64: base64.StdEncoding.EncodeToString(encode(lines, opts.Copies)),
		PreviewText:  preview(lines),
		FileName:     fmt.Sprintf("bill-%s.bin", order.ID),
	}
}

func encode(lines []printLine, copies int) []byte {
	out := append([]byte{}, escInit...)
	for i := 0; i < copies; i++ {
		for _, line := range lines {
			if line.center {
				out = append(out, escCenter...)
			}
			if line.bold {
				out = append(out, escBoldOn...)
			}
			out = append(out, []byte(line.text)...)
			out = append(out, '\n')
			if line.bold {
				out = append(out, escBoldOff...)
			}
			if line.center {
				out = append(out, escLeft...)
			}
		}
		out = append(out, escFullCut...)
	}
	return out
}

func preview(lines []printLine) string {
	texts := make([]string, len(lines))
	for i, line := range lines {
		if line.center {
			texts[i] = center(line.text)
			continue
		}
		texts[i] = line.text
	}
	return strings.Join(texts, "\n")
}

func billTime(order domain.Order, loc *time.Location) time.Time {
	if loc == nil {
		return order.ReportTime()
	}
	return order.ReportTime().In(loc)
}

func divider(ch byte) string {
	return strings.Repeat(string(ch), lineWidth)
}

func center(text string) string {
	if len(text) >= lineWidth {
		return text
	}
	return strings.Repeat(" ", (lineWidth-len(text))/2) + text
}

// twoCol pads left to width and appends right. When width equals the line
// width the right column is flush right.
func twoCol(left string, right string, width int) string {
	if width == lineWidth {
		gap := lineWidth - len(left) - len(right)
		if gap < 1 {
			gap = 1
		}
		return left + strings.Repeat(" ", gap) + right
	}
	if len(left) < width {
		left += strings.Repeat(" ", width-len(left))
	}
	return left + right
}

func tableLabel(tableID string) string {
	return strings.TrimPrefix(tableID, "T")
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   string       `json:"expires_at"`
	User        UserAccount  `json:"user"`
	Permissions []Capability `json:"permissions"`
}

type CreateOrderRequest struct {
	OrderType      OrderType `json:"order_type"`
	TableID        string    `json:"table_id,omitempty"`
	TakeawayNumber int       `json:"takeaway_number,omitempty"`
}

type AddItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note,omitempty"`
}

type UpdateLineRequest struct {
	Quantity *int    `json:"quantity,omitempty"`
	Note     *string `json:"note,omitempty"`
}

type AddDiscountRequest struct {
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

// AssignCustomerRequest either names an existing customer or carries the
// details of a new one to create and assign in one step.
type AssignCustomerRequest struct {
	CustomerID string `json:"customer_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type PayRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type SplitLine struct {
	CartItemID string `json:"cart_item_id"`
	Quantity   int    `json:"quantity"`
}

type SplitRequest struct {
	Bills [][]SplitLine `json:"bills"`
}

type SplitResult struct {
	Parent   Order   `json:"parent"`
	Children []Order `json:"children"`
}

type KitchenStatusRequest struct {
	Status KitchenStatus `json:"status"`
}

// TicketSlip is the station-specific subset of an order stamped with a ticket number.
type TicketSlip struct {
	Station Station    `json:"station"`
	Number  int        `json:"number"`
	Items   []CartItem `json:"items"`
}

type KitchenDispatch struct {
	Order Order       `json:"order"`
	KOT   *TicketSlip `json:"kot,omitempty"`
	BOT   *TicketSlip `json:"bot,omitempty"`
}

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableBilled    TableStatus = "billed"
)

type TableView struct {
	TableID string      `json:"table_id"`
	Number  int         `json:"number"`
	Status  TableStatus `json:"status"`
	Bills   []Order     `json:"bills"`
}

type TakeawayBoard struct {
	Orders          []Order `json:"orders"`
	Counter         int     `json:"counter"`
	SuggestedNumber int     `json:"suggested_number"`
}

type StationOrder struct {
	Order Order      `json:"order"`
	Items []CartItem `json:"items"`
}

type StockUpdateRequest struct {
	Stock         int   `json:"stock"`
	StockTracking *bool `json:"stock_tracking,omitempty"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

// StationAssignmentRequest routes a category to a station. An empty station
// removes the category from both lists.
type StationAssignmentRequest struct {
	Category string  `json:"category"`
	Station  Station `json:"station"`
}

type UserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	PIN      string `json:"pin,omitempty"`
	Role     Role   `json:"role"`
}

type CustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SettingsUpdateRequest struct {
	RestaurantName *string          `json:"restaurant_name,omitempty"`
	Address        *string          `json:"address,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	CurrencySymbol *string          `json:"currency_symbol,omitempty"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
	NumberOfTables *int             `json:"number_of_tables,omitempty"`
	FooterMessage  *string          `json:"footer_message,omitempty"`
	CommonNotes    []string         `json:"common_notes,omitempty"`
}

type DateRange struct {
	From time.Time
	To   time.Time
}

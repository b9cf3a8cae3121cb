package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleWaiter  Role = "Waiter"
	RoleCashier Role = "Cashier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleWaiter, RoleCashier:
		return true
	}
	return false
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeaway OrderType = "takeaway"
)

type OrderStatus string

const (
	StatusActive    OrderStatus = "active"
	StatusBilled    OrderStatus = "billed"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
	StatusSplit     OrderStatus = "split"
)

// Open reports whether the order still occupies a table or takeaway number.
func (s OrderStatus) Open() bool {
	return s == StatusActive || s == StatusBilled
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentBank PaymentMethod = "bank"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBank:
		return true
	}
	return false
}

type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "Pending"
	KitchenPreparing KitchenStatus = "Preparing"
	KitchenReady     KitchenStatus = "Ready"
)

func (k KitchenStatus) Valid() bool {
	switch k {
	case KitchenPending, KitchenPreparing, KitchenReady:
		return true
	}
	return false
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Station string

const (
	StationKitchen Station = "kitchen"
	StationBar     Station = "bar"
)

func (s Station) Valid() bool {
	return s == StationKitchen || s == StationBar
}

type MenuItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	StockTracking bool            `json:"stock_tracking"`
	Stock         int             `json:"stock"`
	CommonNotes   []string        `json:"common_notes,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemSnapshot is the copy of a menu item taken when it is added to a cart.
type ItemSnapshot struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	StockTracking bool            `json:"stock_tracking"`
}

type CartItem struct {
	ID       string       `json:"id"`
	MenuItem ItemSnapshot `json:"menu_item"`
	Quantity int          `json:"quantity"`
	Note     string       `json:"note,omitempty"`
}

func (c CartItem) LineTotal() decimal.Decimal {
	return c.MenuItem.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type Discount struct {
	ID          string          `json:"id"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

type CustomerSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Order struct {
	ID              string            `json:"id"`
	OrderType       OrderType         `json:"order_type"`
	TableID         string            `json:"table_id,omitempty"`
	TakeawayNumber  int               `json:"takeaway_number,omitempty"`
	Items           []CartItem        `json:"items"`
	Discounts       []Discount        `json:"discounts"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	Total           decimal.Decimal   `json:"total"`
	TotalDiscount   decimal.Decimal   `json:"total_discount"`
	TaxRate         decimal.Decimal   `json:"tax_rate"`
	Status          OrderStatus       `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	FinalizedAt     *time.Time        `json:"finalized_at,omitempty"`
	CreatedBy       string            `json:"created_by"`
	PaymentMethod   PaymentMethod     `json:"payment_method,omitempty"`
	Customer        *CustomerSnapshot `json:"customer,omitempty"`
	KOTNumber       int               `json:"kot_number,omitempty"`
	BOTNumber       int               `json:"bot_number,omitempty"`
	KitchenStatus   KitchenStatus     `json:"kitchen_status"`
	ParentOrderID   string            `json:"parent_order_id,omitempty"`
	SplitBillNumber int               `json:"split_bill_number,omitempty"`
	TotalSplitBills int               `json:"total_split_bills,omitempty"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
	CancelledBy     string            `json:"cancelled_by,omitempty"`
}

// ReportTime is the instant an order counts toward reports: its
// finalization when present, otherwise its creation.
func (o Order) ReportTime() time.Time {
	if o.FinalizedAt != nil {
		return *o.FinalizedAt
	}
	return o.CreatedAt
}

// Quantity returns the total quantity ordered of a menu item across all lines.
func (o Order) Quantity(menuItemID string) int {
	total := 0
	for _, item := range o.Items {
		if item.MenuItem.ID == menuItemID {
			total += item.Quantity
		}
	}
	return total
}

type StationAssignments struct {
	Kitchen []string `json:"kitchen"`
	Bar     []string `json:"bar"`
}

type ManagerPermissions struct {
	CanManageMenu       bool `json:"can_manage_menu"`
	CanManageUsers      bool `json:"can_manage_users"`
	CanViewReports      bool `json:"can_view_reports"`
	CanManageCustomers  bool `json:"can_manage_customers"`
	CanAccessAdminPanel bool `json:"can_access_admin_panel"`
}

type Settings struct {
	RestaurantName     string             `json:"restaurant_name"`
	Address            string             `json:"address"`
	Phone              string             `json:"phone"`
	CurrencySymbol     string             `json:"currency_symbol"`
	TaxRate            decimal.Decimal    `json:"tax_rate"`
	NumberOfTables     int                `json:"number_of_tables"`
	FooterMessage      string             `json:"footer_message"`
	CommonNotes        []string           `json:"common_notes"`
	StationAssignments StationAssignments `json:"station_assignments"`
	ManagerPermissions ManagerPermissions `json:"manager_permissions"`
}

type Counters struct {
	Takeaway int `json:"takeaway"`
	KOT      int `json:"kot"`
	BOT      int `json:"bot"`
}

type DaySession struct {
	StartTime time.Time `json:"start_time"`
	StartedBy string    `json:"started_by"`
}

type UserAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	PIN      string `json:"pin,omitempty"`
	Role     Role   `json:"role"`
}

// Public strips the PIN hash.
func (u UserAccount) Public() UserAccount {
	u.PIN = ""
	return u
}

type Actor struct {
	UserID      string
	Username    string
	Name        string
	Role        Role
	TokenID     string
	Permissions Permissions
}

type StockAdjustment struct {
	MenuItemID string `json:"menu_item_id"`
	Delta      int    `json:"delta"`
}

type OrderFilter struct {
	Statuses []OrderStatus
	Type     OrderType
	TableID  string
	From     *time.Time
	To       *time.Time
}

func (f OrderFilter) Match(o Order) bool {
	if len(f.Statuses) > 0 {
		matched := false
		for _, status := range f.Statuses {
			if o.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.Type != "" && o.OrderType != f.Type {
		return false
	}
	if f.TableID != "" && o.TableID != f.TableID {
		return false
	}
	at := o.ReportTime()
	if f.From != nil && at.Before(*f.From) {
		return false
	}
	if f.To != nil && at.After(*f.To) {
		return false
	}
	return true
}

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	SKU              string          `json:"sku"`
	Tags             []string        `json:"tags"`
	Stock            int             `json:"stock"`
	InPrice          decimal.Decimal `json:"in_price"`
	VendorPrice      decimal.Decimal `json:"vendor_price"`
	MinVendorPrice   decimal.Decimal `json:"min_vendor_price"`
	CustomerPrice    decimal.Decimal `json:"customer_price"`
	MinCustomerPrice decimal.Decimal `json:"min_customer_price"`
	Active           bool            `json:"active"`
	LastUpdated      time.Time       `json:"last_updated"`
}

type Customer struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Company string          `json:"company"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
	City    string          `json:"city"`
	Balance decimal.Decimal `json:"balance"`
	Status  string          `json:"status"`
}

type Vendor struct {
	ID            string          `json:"id"`
	Company       string          `json:"company"`
	Address       string          `json:"address"`
	ContactPerson string          `json:"contact_person"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	GSTIN         string          `json:"gstin"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
}

// LineItem freezes the product name and unit price at the moment the
// invoice or bill is written; later product renames or repricing never
// rewrite historical documents.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

type Invoice struct {
	ID           string          `json:"id"`
	InvoiceNo    string          `json:"invoice_no"`
	Date         string          `json:"date"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	DueAmount    decimal.Decimal `json:"due_amount"`
	Status       string          `json:"status"`
	PaymentMode  string          `json:"payment_mode"`
	Items        []LineItem      `json:"items"`
}

type Bill struct {
	ID          string          `json:"id"`
	BillNo      string          `json:"bill_no"`
	Date        string          `json:"date"`
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueAmount   decimal.Decimal `json:"due_amount"`
	Status      string          `json:"status"`
	PaymentMode string          `json:"payment_mode"`
	Items       []LineItem      `json:"items"`
}

// StockMovement is an append-only ledger line. Qty is always a positive
// magnitude; the movement type determines the sign (see MovementSign).
type StockMovement struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`
	Type      string    `json:"type"`
	Qty       int       `json:"qty"`
	Reason    string    `json:"reason"`
	User      string    `json:"user"`
}

type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type AuditLog struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Module    string        `json:"module"`
	Action    string        `json:"action"`
	Details   string        `json:"details"`
	EntityID  string        `json:"entity_id"`
	Changes   []FieldChange `json:"changes,omitempty"`
}

type Expense struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PaymentMode string          `json:"payment_mode"`
	RecordedBy  string          `json:"recorded_by"`
}

type DailyClosing struct {
	ID             string          `json:"id"`
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	OnlineSales    decimal.Decimal `json:"online_sales"`
	CashExpenses   decimal.Decimal `json:"cash_expenses"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	ActualCash     decimal.Decimal `json:"actual_cash"`
	Discrepancy    decimal.Decimal `json:"discrepancy"`
	Notes          string          `json:"notes"`
	ClosedBy       string          `json:"closed_by"`
}

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	IsSystem    bool     `json:"is_system"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RoleID       string    `json:"role_id"`
	RoleName     string    `json:"role_name"`
	Status       string    `json:"status"`
	LastLogin    time.Time `json:"last_login"`
	PasswordHash string    `json:"-"`
}

// Actor identifies who performed an operation, for audit attribution.
type Actor struct {
	Name string
	Role string
}

type ProductCreateRequest struct {
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	SKU              string          `json:"sku"`
	Tags             []string        `json:"tags"`
	Stock            int             `json:"stock"`
	InPrice          decimal.Decimal `json:"in_price"`
	VendorPrice      decimal.Decimal `json:"vendor_price"`
	MinVendorPrice   decimal.Decimal `json:"min_vendor_price"`
	CustomerPrice    decimal.Decimal `json:"customer_price"`
	MinCustomerPrice decimal.Decimal `json:"min_customer_price"`
}

type ProductUpdateRequest struct {
	Name             *string          `json:"name,omitempty"`
	Category         *string          `json:"category,omitempty"`
	SKU              *string          `json:"sku,omitempty"`
	Tags             *[]string        `json:"tags,omitempty"`
	Stock            *int             `json:"stock,omitempty"`
	InPrice          *decimal.Decimal `json:"in_price,omitempty"`
	VendorPrice      *decimal.Decimal `json:"vendor_price,omitempty"`
	MinVendorPrice   *decimal.Decimal `json:"min_vendor_price,omitempty"`
	CustomerPrice    *decimal.Decimal `json:"customer_price,omitempty"`
	MinCustomerPrice *decimal.Decimal `json:"min_customer_price,omitempty"`
	Active           *bool            `json:"active,omitempty"`
}

type StockAdjustRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Type      string `json:"type"`
	Notes     string `json:"notes"`
}

type StockInRequest struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	NewPrice  decimal.Decimal `json:"new_price"`
	Notes     string          `json:"notes"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

type VendorCreateRequest struct {
	Company       string `json:"company"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	GSTIN         string `json:"gstin"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   string          `json:"mode"`
	Notes  string          `json:"notes"`
}

type LineItemInput struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type InvoiceCreateRequest struct {
	InvoiceNo   string           `json:"invoice_no"`
	Date        string           `json:"date"`
	CustomerID  string           `json:"customer_id"`
	PaymentMode string           `json:"payment_mode"`
	PaidAmount  *decimal.Decimal `json:"paid_amount,omitempty"`
	// Status is the legacy flag consulted only when PaidAmount is absent:
	// "Paid" means paid in full, anything else means nothing paid yet.
	Status string          `json:"status,omitempty"`
	Items  []LineItemInput `json:"items"`
}

type BillCreateRequest struct {
	BillNo      string           `json:"bill_no"`
	Date        string           `json:"date"`
	VendorID    string           `json:"vendor_id"`
	PaymentMode string           `json:"payment_mode"`
	PaidAmount  *decimal.Decimal `json:"paid_amount,omitempty"`
	Status      string           `json:"status,omitempty"`
	Items       []LineItemInput  `json:"items"`
}

type ExpenseCreateRequest struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PaymentMode string          `json:"payment_mode"`
}

type DailyClosingRequest struct {
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ActualCash     decimal.Decimal `json:"actual_cash"`
	Notes          string          `json:"notes"`
}

type RoleCreateRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type UserCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleID   string `json:"role_id"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type SalesReportFilter struct {
	From        string
	To          string
	Status      string
	PaymentMode string
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
}

type SalesReport struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Invoices    []Invoice       `json:"invoices"`
	Count       int             `json:"count"`
	Gross       decimal.Decimal `json:"gross"`
	Received    decimal.Decimal `json:"received"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type CategoryValuation struct {
	Category string          `json:"category"`
	Units    int             `json:"units"`
	Value    decimal.Decimal `json:"value"`
}

type InventoryValuation struct {
	TotalUnits   int                 `json:"total_units"`
	TotalValue   decimal.Decimal     `json:"total_value"`
	OutOfStock   int                 `json:"out_of_stock"`
	LowStock     int                 `json:"low_stock"`
	ByCategory   []CategoryValuation `json:"by_category"`
	GeneratedAt  string              `json:"generated_at"`
	LowThreshold int                 `json:"low_threshold"`
}

type ExpenseSummary struct {
	From       string                     `json:"from"`
	To         string                     `json:"to"`
	Total      decimal.Decimal            `json:"total"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	ByMode     map[string]decimal.Decimal `json:"by_mode"`
}

type DashboardSummary struct {
	Products    int             `json:"products"`
	Customers   int             `json:"customers"`
	Vendors     int             `json:"vendors"`
	Invoices    int             `json:"invoices"`
	Receivables decimal.Decimal `json:"receivables"`
	Payables    decimal.Decimal `json:"payables"`
	TodaySales  decimal.Decimal `json:"today_sales"`
	StockValue  decimal.Decimal `json:"stock_value"`
}

type AuditLogFilter struct {
	Module   string
	EntityID string
	Limit    int
}

var ProductCategories = []string{
	"Electronics",
	"Mobile Accessories",
	"Computer Peripherals",
	"Home Appliances",
	"Cables & Adapters",
	"Storage Devices",
}

var ExpenseCategories = []string{
	"Rent",
	"Utilities",
	"Salaries",
	"Transport",
	"Maintenance",
	"Marketing",
	"Miscellaneous",
}

var PaymentModes = []string{"Cash", "Card", "UPI", "Bank Transfer"}

const (
	StatusPending = "Pending"
	StatusPartial = "Partial"
	StatusPaid    = "Paid"
)

const (
	MovementOpeningStock = "Opening Stock"
	MovementStockIn      = "Stock In"
	MovementSale         = "Sale"
	MovementManualIn     = "Manual Adjustment (In)"
	MovementManualOut    = "Manual Adjustment (Out)"
	MovementDamage       = "Damage"
	MovementLoss         = "Loss"
	MovementInternalUse  = "Internal Use"
	MovementCorrection   = "Correction"
	MovementExpired      = "Expired"
)

// AdjustmentTypes are the movement types a manual stock adjustment may use.
var AdjustmentTypes = []string{
	MovementDamage,
	MovementLoss,
	MovementInternalUse,
	MovementCorrection,
	MovementExpired,
}

// MovementSign maps a movement type to the direction it moves stock, so the
// signed sum over a product's movement log reproduces its stock delta.
func MovementSign(movementType string) int {
	switch movementType {
	case MovementOpeningStock, MovementStockIn, MovementManualIn:
		return 1
	default:
		return -1
	}
}

// PaymentStatusFor derives a document's status purely from its paid and
// total amounts: Paid when nothing remains due, Partial when something has
// been paid, Pending otherwise.
func PaymentStatusFor(paid, amount decimal.Decimal) string {
	if amount.Sub(paid).LessThanOrEqual(decimal.Zero) {
		return StatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return StatusPartial
	}
	return StatusPending
}

// Permission ids referenced by roles. They are catalogued and assigned but
// deliberately never enforced.
var PermissionIDs = []string{
	"inventory.view", "inventory.edit",
	"billing.view", "billing.create",
	"customers.manage", "vendors.manage",
	"expenses.manage", "closing.manage",
	"reports.view", "users.manage",
}

func ValidCategory(category string) bool {
	return containsFold(ProductCategories, category)
}

func ValidExpenseCategory(category string) bool {
	return containsFold(ExpenseCategories, category)
}

func ValidPaymentMode(mode string) bool {
	return containsFold(PaymentModes, mode)
}

func ValidAdjustmentType(movementType string) bool {
	for _, t := range AdjustmentTypes {
		if t == movementType {
			return true
		}
	}
	return false
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

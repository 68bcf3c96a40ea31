package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"retailbook/backend/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrInvariant  = errors.New("invariant violated")
)

// Repository is the storage contract for the retail ledger. Implementations
// must make each call all-or-nothing: a failed call leaves every collection
// untouched, and multi-collection mutations (CreateInvoice in particular)
// apply atomically.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product, opening domain.StockMovement) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product, movement *domain.StockMovement) (*domain.Product, error)
	HasProductName(ctx context.Context, name string, excludeID string) (bool, error)
	ApplyStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.Product, error)
	ListStockMovements(ctx context.Context, productID string) ([]domain.StockMovement, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	SettleCustomerBalance(ctx context.Context, customerID string, amount decimal.Decimal) (*domain.Customer, error)

	ListVendors(ctx context.Context) ([]domain.Vendor, error)
	GetVendor(ctx context.Context, id string) (*domain.Vendor, error)
	CreateVendor(ctx context.Context, vendor domain.Vendor) (*domain.Vendor, error)
	SettleVendorBalance(ctx context.Context, vendorID string, amount decimal.Decimal) (*domain.Vendor, error)

	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	CreateInvoice(ctx context.Context, invoice domain.Invoice, movements []domain.StockMovement) (*domain.Invoice, error)
	ReplaceInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)

	ListBills(ctx context.Context) ([]domain.Bill, error)
	GetBill(ctx context.Context, id string) (*domain.Bill, error)
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)

	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)

	ListDailyClosings(ctx context.Context) ([]domain.DailyClosing, error)
	CreateDailyClosing(ctx context.Context, closing domain.DailyClosing) (*domain.DailyClosing, error)

	ListRoles(ctx context.Context) ([]domain.Role, error)
	GetRole(ctx context.Context, id string) (*domain.Role, error)
	CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error)

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUserLastLogin(ctx context.Context, userID string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, filter domain.AuditLogFilter) ([]domain.AuditLog, error)
	ListAuditLogsByEntity(ctx context.Context, entityID string) ([]domain.AuditLog, error)
}

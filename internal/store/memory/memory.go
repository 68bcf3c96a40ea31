package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"retailbook/backend/internal/domain"
	"retailbook/backend/internal/seed"
	"retailbook/backend/internal/store"
	"retailbook/backend/internal/xid"
)

// Store keeps every collection as an ordered slice so the listing contracts
// fall out of storage order: products, invoices, bills and audit entries are
// prepended (newest first), stock movements are append-only, everything else
// keeps insertion order.
type Store struct {
	mu        sync.RWMutex
	products  []domain.Product
	movements []domain.StockMovement
	customers []domain.Customer
	vendors   []domain.Vendor
	invoices  []domain.Invoice
	bills     []domain.Bill
	expenses  []domain.Expense
	closings  []domain.DailyClosing
	roles     []domain.Role
	users     []domain.User
	auditLogs []domain.AuditLog
}

func New() *Store {
	return &Store{
		movements: make([]domain.StockMovement, 0, 128),
		auditLogs: make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded returns a store pre-populated with the demo dataset.
func NewSeeded() *Store {
	ds := seed.NewDataset()
	s := New()
	s.products = ds.Products
	s.movements = ds.Movements
	s.customers = ds.Customers
	s.vendors = ds.Vendors
	s.invoices = ds.Invoices
	s.bills = ds.Bills
	s.expenses = ds.Expenses
	s.roles = ds.Roles
	s.users = ds.Users
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	product := cloneProduct(s.products[idx])
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, opening domain.StockMovement) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: product id and name are required", store.ErrValidation)
	}
	if s.hasNameLocked(product.Name, "") {
		return nil, fmt.Errorf("%w: product name already exists", store.ErrValidation)
	}

	s.products = append([]domain.Product{cloneProduct(product)}, s.products...)
	if opening.Qty > 0 {
		s.movements = append(s.movements, opening)
	}
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product, movement *domain.StockMovement) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(product.ID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if s.hasNameLocked(product.Name, product.ID) {
		return nil, fmt.Errorf("%w: product name already exists", store.ErrValidation)
	}

	s.products[idx] = cloneProduct(product)
	if movement != nil {
		s.movements = append(s.movements, *movement)
	}
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) HasProductName(_ context.Context, name string, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasNameLocked(name, excludeID), nil
}

func (s *Store) ApplyStockMovement(_ context.Context, movement domain.StockMovement) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if movement.Qty <= 0 {
		return nil, fmt.Errorf("%w: movement quantity must be positive", store.ErrValidation)
	}
	idx := s.productIndex(movement.ProductID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}

	s.products[idx].Stock += domain.MovementSign(movement.Type) * movement.Qty
	s.products[idx].LastUpdated = movement.Date
	s.movements = append(s.movements, movement)
	updated := cloneProduct(s.products[idx])
	return &updated, nil
}

func (s *Store) ListStockMovements(_ context.Context, productID string) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockMovement, 0, 16)
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].ProductID == productID {
			result = append(result, s.movements[i])
		}
	}
	return result, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, len(s.customers))
	copy(customers, s.customers)
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.ID == id {
			customer := c
			return &customer, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer id and name are required", store.ErrValidation)
	}
	s.customers = append(s.customers, customer)
	created := customer
	return &created, nil
}

func (s *Store) SettleCustomerBalance(_ context.Context, customerID string, amount decimal.Decimal) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	for i := range s.customers {
		if s.customers[i].ID == customerID {
			balance := s.customers[i].Balance.Sub(amount)
			if balance.IsNegative() {
				balance = decimal.Zero
			}
			s.customers[i].Balance = balance
			updated := s.customers[i]
			return &updated, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListVendors(_ context.Context) ([]domain.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vendors := make([]domain.Vendor, len(s.vendors))
	copy(vendors, s.vendors)
	return vendors, nil
}

func (s *Store) GetVendor(_ context.Context, id string) (*domain.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.vendors {
		if v.ID == id {
			vendor := v
			return &vendor, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateVendor(_ context.Context, vendor domain.Vendor) (*domain.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vendor.ID == "" || strings.TrimSpace(vendor.Company) == "" {
		return nil, fmt.Errorf("%w: vendor id and company are required", store.ErrValidation)
	}
	s.vendors = append(s.vendors, vendor)
	created := vendor
	return &created, nil
}

func (s *Store) SettleVendorBalance(_ context.Context, vendorID string, amount decimal.Decimal) (*domain.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	for i := range s.vendors {
		if s.vendors[i].ID == vendorID {
			balance := s.vendors[i].Balance.Sub(amount)
			if balance.IsNegative() {
				balance = decimal.Zero
			}
			s.vendors[i].Balance = balance
			updated := s.vendors[i]
			return &updated, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListInvoices(_ context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		invoices = append(invoices, cloneInvoice(inv))
	}
	return invoices, nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.invoices {
		if inv.ID == id {
			invoice := cloneInvoice(inv)
			return &invoice, nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateInvoice applies the whole billing effect in one critical section:
// the invoice is prepended, the customer's receivable grows by the due
// portion, and each sale movement decrements its product's stock. All
// referenced ids are checked before anything is written.
func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice, movements []domain.StockMovement) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customerIdx := -1
	for i := range s.customers {
		if s.customers[i].ID == invoice.CustomerID {
			customerIdx = i
			break
		}
	}
	if customerIdx < 0 {
		return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, invoice.CustomerID)
	}
	productIdxs := make([]int, len(movements))
	for i, m := range movements {
		idx := s.productIndex(m.ProductID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, m.ProductID)
		}
		if m.Qty <= 0 {
			return nil, fmt.Errorf("%w: movement quantity must be positive", store.ErrValidation)
		}
		productIdxs[i] = idx
	}

	s.invoices = append([]domain.Invoice{cloneInvoice(invoice)}, s.invoices...)
	if invoice.DueAmount.GreaterThan(decimal.Zero) {
		s.customers[customerIdx].Balance = s.customers[customerIdx].Balance.Add(invoice.DueAmount)
	}
	for i, m := range movements {
		idx := productIdxs[i]
		s.products[idx].Stock += domain.MovementSign(m.Type) * m.Qty
		s.products[idx].LastUpdated = m.Date
		s.movements = append(s.movements, m)
	}
	created := cloneInvoice(invoice)
	return &created, nil
}

func (s *Store) ReplaceInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.invoices {
		if s.invoices[i].ID == invoice.ID {
			s.invoices[i] = cloneInvoice(invoice)
			updated := cloneInvoice(invoice)
			return &updated, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBills(_ context.Context) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := make([]domain.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		bills = append(bills, cloneBill(b))
	}
	return bills, nil
}

func (s *Store) GetBill(_ context.Context, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.ID == id {
			bill := cloneBill(b)
			return &bill, nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateBill mirrors CreateInvoice on the payable side, except purchases
// never move stock here. Goods enter through stock-in receipts.
func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vendorIdx := -1
	for i := range s.vendors {
		if s.vendors[i].ID == bill.VendorID {
			vendorIdx = i
			break
		}
	}
	if vendorIdx < 0 {
		return nil, fmt.Errorf("%w: vendor %s", store.ErrNotFound, bill.VendorID)
	}

	s.bills = append([]domain.Bill{cloneBill(bill)}, s.bills...)
	if bill.DueAmount.GreaterThan(decimal.Zero) {
		s.vendors[vendorIdx].Balance = s.vendors[vendorIdx].Balance.Add(bill.DueAmount)
	}
	created := cloneBill(bill)
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, len(s.expenses))
	copy(expenses, s.expenses)
	return expenses, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" || expense.Date == "" {
		return nil, fmt.Errorf("%w: expense id and date are required", store.ErrValidation)
	}
	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListDailyClosings(_ context.Context) ([]domain.DailyClosing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	closings := make([]domain.DailyClosing, len(s.closings))
	copy(closings, s.closings)
	return closings, nil
}

func (s *Store) CreateDailyClosing(_ context.Context, closing domain.DailyClosing) (*domain.DailyClosing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closing.ID == "" || closing.Date == "" {
		return nil, fmt.Errorf("%w: closing id and date are required", store.ErrValidation)
	}
	for _, c := range s.closings {
		if c.Date == closing.Date {
			return nil, fmt.Errorf("%w: closing already recorded for %s", store.ErrValidation, closing.Date)
		}
	}
	s.closings = append(s.closings, closing)
	created := closing
	return &created, nil
}

func (s *Store) ListRoles(_ context.Context) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]domain.Role, 0, len(s.roles))
	for _, r := range s.roles {
		roles = append(roles, cloneRole(r))
	}
	return roles, nil
}

func (s *Store) GetRole(_ context.Context, id string) (*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.ID == id {
			role := cloneRole(r)
			return &role, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateRole(_ context.Context, role domain.Role) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role.ID == "" || strings.TrimSpace(role.Name) == "" {
		return nil, fmt.Errorf("%w: role id and name are required", store.ErrValidation)
	}
	for _, r := range s.roles {
		if strings.EqualFold(r.Name, role.Name) {
			return nil, fmt.Errorf("%w: role name already exists", store.ErrValidation)
		}
	}
	s.roles = append(s.roles, cloneRole(role))
	created := cloneRole(role)
	return &created, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, len(s.users))
	copy(users, s.users)
	return users, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return nil, fmt.Errorf("%w: user id and email are required", store.ErrValidation)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, fmt.Errorf("%w: email already registered", store.ErrValidation)
		}
	}
	s.users = append(s.users, user)
	created := user
	return &created, nil
}

func (s *Store) UpdateUserLastLogin(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].LastLogin = time.Now().UTC()
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.auditLogs = append([]domain.AuditLog{cloneAuditLog(entry)}, s.auditLogs...)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, filter domain.AuditLogFilter) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 32)
	for _, entry := range s.auditLogs {
		if filter.Module != "" && !strings.EqualFold(entry.Module, filter.Module) {
			continue
		}
		if filter.EntityID != "" && entry.EntityID != filter.EntityID {
			continue
		}
		result = append(result, cloneAuditLog(entry))
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListAuditLogsByEntity(ctx context.Context, entityID string) ([]domain.AuditLog, error) {
	return s.ListAuditLogs(ctx, domain.AuditLogFilter{EntityID: entityID})
}

func (s *Store) productIndex(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) hasNameLocked(name string, excludeID string) bool {
	normalized := normalizeName(name)
	for _, p := range s.products {
		if p.ID == excludeID {
			continue
		}
		if normalizeName(p.Name) == normalized {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	tags := make([]string, len(src.Tags))
	copy(tags, src.Tags)
	dup.Tags = tags
	return dup
}

func cloneInvoice(src domain.Invoice) domain.Invoice {
	dup := src
	items := make([]domain.LineItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return dup
}

func cloneBill(src domain.Bill) domain.Bill {
	dup := src
	items := make([]domain.LineItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return dup
}

func cloneRole(src domain.Role) domain.Role {
	dup := src
	perms := make([]string, len(src.Permissions))
	copy(perms, src.Permissions)
	dup.Permissions = perms
	return dup
}

func cloneAuditLog(src domain.AuditLog) domain.AuditLog {
	dup := src
	if len(src.Changes) > 0 {
		changes := make([]domain.FieldChange, len(src.Changes))
		copy(changes, src.Changes)
		dup.Changes = changes
	}
	return dup
}

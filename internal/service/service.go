package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retailbook/backend/internal/cache"
	"retailbook/backend/internal/domain"
	"retailbook/backend/internal/store"
	"retailbook/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	moduleInventory = "Inventory"
	moduleBilling   = "Billing"
	moduleCustomers = "Customers"
	moduleVendors   = "Vendors"
	moduleExpenses  = "Expenses"
	moduleClosing   = "Daily Closing"
	moduleAccess    = "User Management"
)

const lowStockThreshold = 5

type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	cacheTTL time.Duration

	// reportEpoch versions the sales-report cache keys; invoice mutations
	// bump it so a cached report never outlives the ledger it summarized.
	reportEpoch atomic.Uint64
}

func New(repo store.Repository, reports cache.ReportCache, cacheTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if cacheTTL < time.Second {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:     repo,
		reports:  reports,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))

	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if !domain.ValidCategory(req.Category) {
		return domain.Product{}, fmt.Errorf("%w: unknown category %q", store.ErrValidation, req.Category)
	}
	if req.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: opening stock cannot be negative", store.ErrValidation)
	}
	if err := validatePrices(req.InPrice, req.VendorPrice, req.MinVendorPrice, req.CustomerPrice, req.MinCustomerPrice); err != nil {
		return domain.Product{}, err
	}

	duplicate, err := s.repo.HasProductName(ctx, req.Name, "")
	if err != nil {
		return domain.Product{}, err
	}
	if duplicate {
		return domain.Product{}, fmt.Errorf("%w: a product named %q already exists", store.ErrValidation, req.Name)
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:               xid.New("prd"),
		Name:             req.Name,
		Category:         req.Category,
		SKU:              req.SKU,
		Tags:             req.Tags,
		Stock:            req.Stock,
		InPrice:          req.InPrice.Round(2),
		VendorPrice:      req.VendorPrice.Round(2),
		MinVendorPrice:   req.MinVendorPrice.Round(2),
		CustomerPrice:    req.CustomerPrice.Round(2),
		MinCustomerPrice: req.MinCustomerPrice.Round(2),
		Active:           true,
		LastUpdated:      now,
	}
	opening := domain.StockMovement{
		ID:        xid.New("mov"),
		ProductID: product.ID,
		Date:      now,
		Type:      domain.MovementOpeningStock,
		Qty:       req.Stock,
		Reason:    "Initial stock entry",
		User:      s.actorName(ctx),
	}

	created, err := s.repo.CreateProduct(ctx, product, opening)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, moduleInventory, "Create", created.ID,
		fmt.Sprintf("Added product %q with opening stock %d", created.Name, created.Stock), nil)
	return *created, nil
}

// CheckDuplicateName reports whether another product already uses the name,
// ignoring case and surrounding whitespace. Pure query.
func (s *Service) CheckDuplicateName(ctx context.Context, name string, excludeID string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, nil
	}
	return s.repo.HasProductName(ctx, name, excludeID)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	changes := make([]domain.FieldChange, 0, 4)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrValidation)
		}
		duplicate, err := s.repo.HasProductName(ctx, name, id)
		if err != nil {
			return domain.Product{}, err
		}
		if duplicate {
			return domain.Product{}, fmt.Errorf("%w: a product named %q already exists", store.ErrValidation, name)
		}
		appendChange(&changes, "name", existing.Name, name)
		updated.Name = name
	}
	if req.Category != nil {
		if !domain.ValidCategory(*req.Category) {
			return domain.Product{}, fmt.Errorf("%w: unknown category %q", store.ErrValidation, *req.Category)
		}
		appendChange(&changes, "category", existing.Category, *req.Category)
		updated.Category = *req.Category
	}
	if req.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*req.SKU))
		appendChange(&changes, "sku", existing.SKU, sku)
		updated.SKU = sku
	}
	if req.Tags != nil {
		appendChange(&changes, "tags", strings.Join(existing.Tags, ","), strings.Join(*req.Tags, ","))
		updated.Tags = *req.Tags
	}
	if req.InPrice != nil {
		appendChange(&changes, "inPrice", existing.InPrice.String(), req.InPrice.Round(2).String())
		updated.InPrice = req.InPrice.Round(2)
	}
	if req.VendorPrice != nil {
		appendChange(&changes, "vendorPrice", existing.VendorPrice.String(), req.VendorPrice.Round(2).String())
		updated.VendorPrice = req.VendorPrice.Round(2)
	}
	if req.MinVendorPrice != nil {
		appendChange(&changes, "minVendorPrice", existing.MinVendorPrice.String(), req.MinVendorPrice.Round(2).String())
		updated.MinVendorPrice = req.MinVendorPrice.Round(2)
	}
	if req.CustomerPrice != nil {
		appendChange(&changes, "customerPrice", existing.CustomerPrice.String(), req.CustomerPrice.Round(2).String())
		updated.CustomerPrice = req.CustomerPrice.Round(2)
	}
	if req.MinCustomerPrice != nil {
		appendChange(&changes, "minCustomerPrice", existing.MinCustomerPrice.String(), req.MinCustomerPrice.Round(2).String())
		updated.MinCustomerPrice = req.MinCustomerPrice.Round(2)
	}
	if req.Active != nil {
		appendChange(&changes, "active", fmt.Sprintf("%t", existing.Active), fmt.Sprintf("%t", *req.Active))
		updated.Active = *req.Active
	}
	if err := validatePrices(updated.InPrice, updated.VendorPrice, updated.MinVendorPrice, updated.CustomerPrice, updated.MinCustomerPrice); err != nil {
		return domain.Product{}, err
	}

	var movement *domain.StockMovement
	if req.Stock != nil && *req.Stock != existing.Stock {
		appendChange(&changes, "stock", fmt.Sprintf("%d", existing.Stock), fmt.Sprintf("%d", *req.Stock))
		delta := *req.Stock - existing.Stock
		movementType := domain.MovementManualIn
		if delta < 0 {
			movementType = domain.MovementManualOut
			delta = -delta
		}
		movement = &domain.StockMovement{
			ID:        xid.New("mov"),
			ProductID: existing.ID,
			Date:      time.Now().UTC(),
			Type:      movementType,
			Qty:       delta,
			Reason:    "Stock corrected via product edit",
			User:      s.actorName(ctx),
		}
		updated.Stock = *req.Stock
	}

	if len(changes) == 0 {
		return *existing, nil
	}
	updated.LastUpdated = time.Now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated, movement)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, moduleInventory, "Update", saved.ID,
		fmt.Sprintf("Updated product %q (%d field(s))", saved.Name, len(changes)), changes)
	return *saved, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.Product, error) {
	if req.Qty <= 0 {
		return domain.Product{}, fmt.Errorf("%w: adjustment quantity must be positive", store.ErrValidation)
	}
	if !domain.ValidAdjustmentType(req.Type) {
		return domain.Product{}, fmt.Errorf("%w: unknown adjustment type %q", store.ErrValidation, req.Type)
	}

	movement := domain.StockMovement{
		ID:        xid.New("mov"),
		ProductID: req.ProductID,
		Date:      time.Now().UTC(),
		Type:      req.Type,
		Qty:       req.Qty,
		Reason:    req.Notes,
		User:      s.actorName(ctx),
	}

	updated, err := s.repo.ApplyStockMovement(ctx, movement)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, moduleInventory, "Adjustment", updated.ID,
		fmt.Sprintf("%s: removed %d unit(s) of %q", req.Type, req.Qty, updated.Name), nil)
	return *updated, nil
}

// StockIn receives goods: stock grows by the received quantity and the
// purchase price becomes the product's current in-price.
func (s *Service) StockIn(ctx context.Context, req domain.StockInRequest) (domain.Product, error) {
	if req.Qty <= 0 {
		return domain.Product{}, fmt.Errorf("%w: received quantity must be positive", store.ErrValidation)
	}
	if req.NewPrice.LessThanOrEqual(decimal.Zero) {
		return domain.Product{}, fmt.Errorf("%w: purchase price must be positive", store.ErrValidation)
	}

	existing, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	updated.Stock += req.Qty
	updated.InPrice = req.NewPrice.Round(2)
	updated.LastUpdated = time.Now().UTC()

	movement := &domain.StockMovement{
		ID:        xid.New("mov"),
		ProductID: existing.ID,
		Date:      updated.LastUpdated,
		Type:      domain.MovementStockIn,
		Qty:       req.Qty,
		Reason:    req.Notes,
		User:      s.actorName(ctx),
	}

	saved, err := s.repo.UpdateProduct(ctx, updated, movement)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, moduleInventory, "Stock In", saved.ID,
		fmt.Sprintf("Received %d unit(s) of %q at %s", req.Qty, saved.Name, saved.InPrice.StringFixed(2)), nil)
	return *saved, nil
}

// GetProductHistory returns the product's stock movements, newest first.
func (s *Service) GetProductHistory(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListStockMovements(ctx, productID)
}

// GetProductLogs returns the audit entries recorded against the product.
func (s *Service) GetProductLogs(ctx context.Context, productID string) ([]domain.AuditLog, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogsByEntity(ctx, productID)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) AddCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name is required", store.ErrValidation)
	}

	customer := domain.Customer{
		ID:      xid.New("cus"),
		Name:    req.Name,
		Company: strings.TrimSpace(req.Company),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		City:    strings.TrimSpace(req.City),
		Balance: decimal.Zero,
		Status:  "Active",
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, moduleCustomers, "Create", created.ID,
		fmt.Sprintf("Added customer %q", created.Name), nil)
	return *created, nil
}

func (s *Service) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	return s.repo.ListVendors(ctx)
}

func (s *Service) AddVendor(ctx context.Context, req domain.VendorCreateRequest) (domain.Vendor, error) {
	req.Company = strings.TrimSpace(req.Company)
	if req.Company == "" {
		return domain.Vendor{}, fmt.Errorf("%w: vendor company is required", store.ErrValidation)
	}

	vendor := domain.Vendor{
		ID:            xid.New("ven"),
		Company:       req.Company,
		Address:       strings.TrimSpace(req.Address),
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		GSTIN:         strings.ToUpper(strings.TrimSpace(req.GSTIN)),
		Balance:       decimal.Zero,
		Status:        "Active",
	}

	created, err := s.repo.CreateVendor(ctx, vendor)
	if err != nil {
		return domain.Vendor{}, err
	}

	s.logAudit(ctx, moduleVendors, "Create", created.ID,
		fmt.Sprintf("Added vendor %q", created.Company), nil)
	return *created, nil
}

// RecordPayment settles part of a customer's outstanding balance. The
// balance floors at zero; invoices are not retro-marked paid.
func (s *Service) RecordPayment(ctx context.Context, customerID string, req domain.PaymentRequest) (domain.Customer, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.Customer{}, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	if req.Mode != "" && !domain.ValidPaymentMode(req.Mode) {
		return domain.Customer{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, req.Mode)
	}

	updated, err := s.repo.SettleCustomerBalance(ctx, customerID, req.Amount.Round(2))
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, moduleCustomers, "Payment", updated.ID,
		paymentAuditDetails("Received", req, updated.Name, updated.Balance), nil)
	return *updated, nil
}

// RecordVendorPayment is the payable-side counterpart of RecordPayment.
func (s *Service) RecordVendorPayment(ctx context.Context, vendorID string, req domain.PaymentRequest) (domain.Vendor, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.Vendor{}, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	if req.Mode != "" && !domain.ValidPaymentMode(req.Mode) {
		return domain.Vendor{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, req.Mode)
	}

	updated, err := s.repo.SettleVendorBalance(ctx, vendorID, req.Amount.Round(2))
	if err != nil {
		return domain.Vendor{}, err
	}

	s.logAudit(ctx, moduleVendors, "Payment", updated.ID,
		paymentAuditDetails("Paid", req, updated.Company, updated.Balance), nil)
	return *updated, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) AddRole(ctx context.Context, req domain.RoleCreateRequest) (domain.Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Role{}, fmt.Errorf("%w: role name is required", store.ErrValidation)
	}
	for _, perm := range req.Permissions {
		if !knownPermission(perm) {
			return domain.Role{}, fmt.Errorf("%w: unknown permission %q", store.ErrValidation, perm)
		}
	}

	role := domain.Role{
		ID:          xid.New("rol"),
		Name:        req.Name,
		Permissions: req.Permissions,
	}

	created, err := s.repo.CreateRole(ctx, role)
	if err != nil {
		return domain.Role{}, err
	}

	s.logAudit(ctx, moduleAccess, "Create", created.ID,
		fmt.Sprintf("Added role %q with %d permission(s)", created.Name, len(created.Permissions)), nil)
	return *created, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) AddUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return domain.User{}, fmt.Errorf("%w: user name and email are required", store.ErrValidation)
	}
	if len(req.Password) < 8 {
		return domain.User{}, fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}

	role, err := s.repo.GetRole(ctx, req.RoleID)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           xid.New("usr"),
		Name:         req.Name,
		Email:        req.Email,
		RoleID:       role.ID,
		RoleName:     role.Name,
		Status:       "Active",
		PasswordHash: string(hash),
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return domain.User{}, err
	}

	s.logAudit(ctx, moduleAccess, "Create", created.ID,
		fmt.Sprintf("Added user %q with role %q", created.Name, created.RoleName), nil)
	return *created, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, filter domain.AuditLogFilter) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, filter)
}

func (s *Service) actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Name != "" {
		return actor.Name
	}
	return "System"
}

func (s *Service) logAudit(ctx context.Context, module string, action string, entityID string, details string, changes []domain.FieldChange) {
	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:        xid.New("log"),
		Timestamp: time.Now().UTC(),
		User:      s.actorName(ctx),
		Module:    module,
		Action:    action,
		Details:   details,
		EntityID:  entityID,
		Changes:   changes,
	}); err != nil {
		log.Warn().Err(err).Str("module", module).Str("action", action).Str("entity", entityID).
			Msg("failed to append audit log")
	}
}

func validatePrices(inPrice, vendorPrice, minVendorPrice, customerPrice, minCustomerPrice decimal.Decimal) error {
	for _, p := range []decimal.Decimal{inPrice, vendorPrice, minVendorPrice, customerPrice, minCustomerPrice} {
		if p.IsNegative() {
			return fmt.Errorf("%w: prices cannot be negative", store.ErrValidation)
		}
	}
	if minVendorPrice.GreaterThan(vendorPrice) {
		return fmt.Errorf("%w: minimum vendor price exceeds vendor price", store.ErrValidation)
	}
	if minCustomerPrice.GreaterThan(customerPrice) {
		return fmt.Errorf("%w: minimum customer price exceeds customer price", store.ErrValidation)
	}
	return nil
}

// paymentAuditDetails spells out the full payment record. The audit trail is
// the only place a payment's mode and notes persist, so both ride in the
// details string when present.
func paymentAuditDetails(verb string, req domain.PaymentRequest, party string, balance decimal.Decimal) string {
	details := fmt.Sprintf("%s %s", verb, req.Amount.StringFixed(2))
	if req.Mode != "" {
		details += " by " + req.Mode
	}
	details += fmt.Sprintf(" for %q, balance now %s", party, balance.StringFixed(2))
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		details += ", notes: " + notes
	}
	return details
}

func appendChange(changes *[]domain.FieldChange, field string, oldValue string, newValue string) {
	if oldValue == newValue {
		return
	}
	*changes = append(*changes, domain.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
}

func knownPermission(id string) bool {
	return slices.Contains(domain.PermissionIDs, id)
}

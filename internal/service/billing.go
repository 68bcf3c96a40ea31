package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailbook/backend/internal/domain"
	"retailbook/backend/internal/store"
	"retailbook/backend/internal/xid"
)

func (s *Service) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *invoice, nil
}

// AddInvoice writes a sale: the invoice itself, the customer's receivable
// for the unpaid portion, and one sale movement per line item, all applied
// atomically by the store. Line items freeze the product name and unit
// price at sale time.
func (s *Service) AddInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.Invoice, error) {
	req.InvoiceNo = strings.TrimSpace(req.InvoiceNo)
	if req.InvoiceNo == "" {
		return domain.Invoice{}, fmt.Errorf("%w: invoice number is required", store.ErrValidation)
	}
	if req.Date == "" {
		req.Date = todayDate()
	}
	if req.PaymentMode != "" && !domain.ValidPaymentMode(req.PaymentMode) {
		return domain.Invoice{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, req.PaymentMode)
	}
	if len(req.Items) == 0 {
		return domain.Invoice{}, fmt.Errorf("%w: invoice needs at least one line item", store.ErrValidation)
	}

	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("customer %s: %w", req.CustomerID, err)
	}

	items, amount, err := s.buildLineItems(ctx, req.Items)
	if err != nil {
		return domain.Invoice{}, err
	}
	paid, due, status, err := reconcilePayment(amount, req.PaidAmount, req.Status)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:           xid.New("inv"),
		InvoiceNo:    req.InvoiceNo,
		Date:         req.Date,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Amount:       amount,
		PaidAmount:   paid,
		DueAmount:    due,
		Status:       status,
		PaymentMode:  req.PaymentMode,
		Items:        items,
	}

	movements := make([]domain.StockMovement, 0, len(items))
	for _, item := range items {
		movements = append(movements, domain.StockMovement{
			ID:        xid.New("mov"),
			ProductID: item.ProductID,
			Date:      now,
			Type:      domain.MovementSale,
			Qty:       item.Qty,
			Reason:    invoice.InvoiceNo,
			User:      "System",
		})
	}

	created, err := s.repo.CreateInvoice(ctx, invoice, movements)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.reportEpoch.Add(1)

	s.logAudit(ctx, moduleBilling, "Create", created.ID,
		fmt.Sprintf("Invoice %s for %q: amount %s, paid %s, due %s", created.InvoiceNo, created.CustomerName,
			created.Amount.StringFixed(2), created.PaidAmount.StringFixed(2), created.DueAmount.StringFixed(2)), nil)
	return *created, nil
}

// UpdateInvoice replaces the stored document wholesale. The replacement's
// amount, paid, due and status must agree with each other; stock and the
// customer ledger are left untouched either way.
func (s *Service) UpdateInvoice(ctx context.Context, id string, invoice domain.Invoice) (domain.Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice.ID = existing.ID
	if !invoice.PaidAmount.Add(invoice.DueAmount).Equal(invoice.Amount) {
		return domain.Invoice{}, fmt.Errorf("%w: paid %s + due %s does not equal amount %s", store.ErrInvariant,
			invoice.PaidAmount.StringFixed(2), invoice.DueAmount.StringFixed(2), invoice.Amount.StringFixed(2))
	}
	if invoice.Status != domain.PaymentStatusFor(invoice.PaidAmount, invoice.Amount) {
		return domain.Invoice{}, fmt.Errorf("%w: status %q does not match paid/amount", store.ErrInvariant, invoice.Status)
	}
	if invoice.PaymentMode != "" && !domain.ValidPaymentMode(invoice.PaymentMode) {
		return domain.Invoice{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, invoice.PaymentMode)
	}

	changes := make([]domain.FieldChange, 0, 4)
	appendChange(&changes, "amount", existing.Amount.String(), invoice.Amount.String())
	appendChange(&changes, "paidAmount", existing.PaidAmount.String(), invoice.PaidAmount.String())
	appendChange(&changes, "dueAmount", existing.DueAmount.String(), invoice.DueAmount.String())
	appendChange(&changes, "status", existing.Status, invoice.Status)
	appendChange(&changes, "paymentMode", existing.PaymentMode, invoice.PaymentMode)

	updated, err := s.repo.ReplaceInvoice(ctx, invoice)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.reportEpoch.Add(1)

	s.logAudit(ctx, moduleBilling, "Update", updated.ID,
		fmt.Sprintf("Invoice %s updated", updated.InvoiceNo), changes)
	return *updated, nil
}

func (s *Service) ListBills(ctx context.Context) ([]domain.Bill, error) {
	return s.repo.ListBills(ctx)
}

// AddBill records a vendor purchase with the same payment reconciliation as
// invoices, on the payable side. Stock is not touched; received goods enter
// through StockIn.
func (s *Service) AddBill(ctx context.Context, req domain.BillCreateRequest) (domain.Bill, error) {
	req.BillNo = strings.TrimSpace(req.BillNo)
	if req.BillNo == "" {
		return domain.Bill{}, fmt.Errorf("%w: bill number is required", store.ErrValidation)
	}
	if req.Date == "" {
		req.Date = todayDate()
	}
	if req.PaymentMode != "" && !domain.ValidPaymentMode(req.PaymentMode) {
		return domain.Bill{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, req.PaymentMode)
	}
	if len(req.Items) == 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill needs at least one line item", store.ErrValidation)
	}

	vendor, err := s.repo.GetVendor(ctx, req.VendorID)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("vendor %s: %w", req.VendorID, err)
	}

	items, amount, err := s.buildLineItems(ctx, req.Items)
	if err != nil {
		return domain.Bill{}, err
	}
	paid, due, status, err := reconcilePayment(amount, req.PaidAmount, req.Status)
	if err != nil {
		return domain.Bill{}, err
	}

	bill := domain.Bill{
		ID:          xid.New("bil"),
		BillNo:      req.BillNo,
		Date:        req.Date,
		VendorID:    vendor.ID,
		VendorName:  vendor.Company,
		Amount:      amount,
		PaidAmount:  paid,
		DueAmount:   due,
		Status:      status,
		PaymentMode: req.PaymentMode,
		Items:       items,
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return domain.Bill{}, err
	}

	s.logAudit(ctx, moduleBilling, "Create", created.ID,
		fmt.Sprintf("Bill %s from %q: amount %s, due %s", created.BillNo, created.VendorName,
			created.Amount.StringFixed(2), created.DueAmount.StringFixed(2)), nil)
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.Expense{}, fmt.Errorf("%w: expense amount must be positive", store.ErrValidation)
	}
	if !domain.ValidExpenseCategory(req.Category) {
		return domain.Expense{}, fmt.Errorf("%w: unknown expense category %q", store.ErrValidation, req.Category)
	}
	if req.PaymentMode != "" && !domain.ValidPaymentMode(req.PaymentMode) {
		return domain.Expense{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, req.PaymentMode)
	}
	if req.Date == "" {
		req.Date = todayDate()
	}

	expense := domain.Expense{
		ID:          xid.New("exp"),
		Date:        req.Date,
		Category:    req.Category,
		Amount:      req.Amount.Round(2),
		Description: strings.TrimSpace(req.Description),
		PaymentMode: req.PaymentMode,
		RecordedBy:  s.actorName(ctx),
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, moduleExpenses, "Create", created.ID,
		fmt.Sprintf("%s expense of %s", created.Category, created.Amount.StringFixed(2)), nil)
	return *created, nil
}

func (s *Service) ListDailyClosings(ctx context.Context) ([]domain.DailyClosing, error) {
	return s.repo.ListDailyClosings(ctx)
}

// AddDailyClosing reconciles the cash drawer for one date. The sales and
// expense figures are derived from the ledger, never taken from the caller:
// cash sales are the date's fully paid cash invoices, online sales the
// fully paid non-cash ones, cash expenses the date's cash-mode expenses.
func (s *Service) AddDailyClosing(ctx context.Context, req domain.DailyClosingRequest) (domain.DailyClosing, error) {
	if req.Date == "" {
		req.Date = todayDate()
	}
	if req.OpeningBalance.IsNegative() {
		return domain.DailyClosing{}, fmt.Errorf("%w: opening balance cannot be negative", store.ErrValidation)
	}
	if req.ActualCash.IsNegative() {
		return domain.DailyClosing{}, fmt.Errorf("%w: actual cash cannot be negative", store.ErrValidation)
	}

	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		return domain.DailyClosing{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return domain.DailyClosing{}, err
	}

	cashSales := decimal.Zero
	onlineSales := decimal.Zero
	for _, inv := range invoices {
		if inv.Date != req.Date || inv.Status != domain.StatusPaid {
			continue
		}
		if inv.PaymentMode == "Cash" {
			cashSales = cashSales.Add(inv.Amount)
		} else {
			onlineSales = onlineSales.Add(inv.Amount)
		}
	}
	cashExpenses := decimal.Zero
	for _, exp := range expenses {
		if exp.Date == req.Date && exp.PaymentMode == "Cash" {
			cashExpenses = cashExpenses.Add(exp.Amount)
		}
	}

	expected := req.OpeningBalance.Add(cashSales).Sub(cashExpenses).Round(2)
	closing := domain.DailyClosing{
		ID:             xid.New("cls"),
		Date:           req.Date,
		OpeningBalance: req.OpeningBalance.Round(2),
		CashSales:      cashSales.Round(2),
		OnlineSales:    onlineSales.Round(2),
		CashExpenses:   cashExpenses.Round(2),
		ExpectedCash:   expected,
		ActualCash:     req.ActualCash.Round(2),
		Discrepancy:    req.ActualCash.Round(2).Sub(expected),
		Notes:          strings.TrimSpace(req.Notes),
		ClosedBy:       s.actorName(ctx),
	}

	created, err := s.repo.CreateDailyClosing(ctx, closing)
	if err != nil {
		return domain.DailyClosing{}, err
	}

	s.logAudit(ctx, moduleClosing, "Create", created.ID,
		fmt.Sprintf("Closed %s: expected %s, counted %s, discrepancy %s", created.Date,
			created.ExpectedCash.StringFixed(2), created.ActualCash.StringFixed(2), created.Discrepancy.StringFixed(2)), nil)
	return *created, nil
}

func (s *Service) buildLineItems(ctx context.Context, inputs []domain.LineItemInput) ([]domain.LineItem, decimal.Decimal, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	amount := decimal.Zero
	for _, input := range inputs {
		if input.Qty <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: line quantity must be positive", store.ErrValidation)
		}
		if input.Price.LessThanOrEqual(decimal.Zero) {
			return nil, decimal.Zero, fmt.Errorf("%w: line price must be positive", store.ErrValidation)
		}
		product, err := s.repo.GetProduct(ctx, input.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("product %s: %w", input.ProductID, err)
		}
		total := input.Price.Mul(decimal.NewFromInt(int64(input.Qty))).Round(2)
		items = append(items, domain.LineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Qty:         input.Qty,
			Price:       input.Price.Round(2),
			Total:       total,
		})
		amount = amount.Add(total)
	}
	return items, amount, nil
}

// reconcilePayment derives the paid/due/status triple for a new document.
// An explicit paid amount wins; otherwise the legacy status flag means paid
// in full ("Paid") or nothing paid (anything else). Payment beyond the total
// is treated as change given, so paid + due always equals the amount.
func reconcilePayment(amount decimal.Decimal, paidAmount *decimal.Decimal, legacyStatus string) (decimal.Decimal, decimal.Decimal, string, error) {
	var paid decimal.Decimal
	switch {
	case paidAmount != nil:
		if paidAmount.IsNegative() {
			return decimal.Zero, decimal.Zero, "", fmt.Errorf("%w: paid amount cannot be negative", store.ErrValidation)
		}
		paid = paidAmount.Round(2)
		if paid.GreaterThan(amount) {
			paid = amount
		}
	case legacyStatus == domain.StatusPaid:
		paid = amount
	default:
		paid = decimal.Zero
	}

	return paid, amount.Sub(paid), domain.PaymentStatusFor(paid, amount), nil
}

func todayDate() string {
	return time.Now().UTC().Format("2006-01-02")
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retailbook/backend/internal/cache"
	"retailbook/backend/internal/domain"
	"retailbook/backend/internal/store"
	"retailbook/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.New(), cache.NoopReportCache{}, 5*time.Second)
}

func testCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Name: "Store Admin", Role: "Admin"})
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func mustAddProduct(t *testing.T, svc *Service, name string, stock int, customerPrice string) domain.Product {
	t.Helper()
	product, err := svc.AddProduct(testCtx(), domain.ProductCreateRequest{
		Name:             name,
		Category:         "Electronics",
		Stock:            stock,
		InPrice:          dec("100"),
		VendorPrice:      dec("110"),
		MinVendorPrice:   dec("105"),
		CustomerPrice:    dec(customerPrice),
		MinCustomerPrice: dec(customerPrice),
	})
	if err != nil {
		t.Fatalf("add product failed: %v", err)
	}
	return product
}

func mustAddCustomer(t *testing.T, svc *Service, name string) domain.Customer {
	t.Helper()
	customer, err := svc.AddCustomer(testCtx(), domain.CustomerCreateRequest{Name: name, City: "Bengaluru"})
	if err != nil {
		t.Fatalf("add customer failed: %v", err)
	}
	return customer
}

func mustAddVendor(t *testing.T, svc *Service, company string) domain.Vendor {
	t.Helper()
	vendor, err := svc.AddVendor(testCtx(), domain.VendorCreateRequest{Company: company})
	if err != nil {
		t.Fatalf("add vendor failed: %v", err)
	}
	return vendor
}

func TestAddProductRejectsDuplicateName(t *testing.T) {
	svc := newTestService()
	mustAddProduct(t, svc, "Wireless Mouse", 10, "450")

	_, err := svc.AddProduct(testCtx(), domain.ProductCreateRequest{
		Name:          "  wireless MOUSE ",
		Category:      "Computer Peripherals",
		CustomerPrice: dec("500"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}

	duplicate, err := svc.CheckDuplicateName(testCtx(), "WIRELESS mouse", "")
	if err != nil || !duplicate {
		t.Fatalf("expected duplicate=true, got %v err=%v", duplicate, err)
	}
}

func TestCheckDuplicateNameExcludesOwnID(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Steam Iron", 5, "900")

	duplicate, err := svc.CheckDuplicateName(testCtx(), "steam iron", product.ID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if duplicate {
		t.Fatalf("a product should not collide with its own name")
	}
}

func TestAddProductRecordsOpeningStock(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Table Fan", 8, "1500")

	history, err := svc.GetProductHistory(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(history))
	}
	if history[0].Type != domain.MovementOpeningStock || history[0].Qty != 8 {
		t.Fatalf("unexpected opening movement: %+v", history[0])
	}

	logs, err := svc.GetProductLogs(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "Create" {
		t.Fatalf("expected a single Create audit entry, got %+v", logs)
	}
}

func TestUpdateProductDiffsFieldsAndMovesStock(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Electric Kettle", 10, "1200")

	newPrice := dec("1350")
	newStock := 6
	updated, err := svc.UpdateProduct(testCtx(), product.ID, domain.ProductUpdateRequest{
		CustomerPrice: &newPrice,
		Stock:         &newStock,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Stock != 6 || !updated.CustomerPrice.Equal(dec("1350")) {
		t.Fatalf("update not applied: %+v", updated)
	}

	history, err := svc.GetProductHistory(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	// Newest first: the manual adjustment precedes the opening entry.
	if history[0].Type != domain.MovementManualOut || history[0].Qty != 4 {
		t.Fatalf("expected Manual Adjustment (Out) of 4, got %+v", history[0])
	}

	logs, err := svc.GetProductLogs(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if logs[0].Action != "Update" || len(logs[0].Changes) != 2 {
		t.Fatalf("expected Update entry with 2 field changes, got %+v", logs[0])
	}
}

func TestAdjustStockCanGoNegative(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "USB-C Adapter", 2, "350")

	updated, err := svc.AdjustStock(testCtx(), domain.StockAdjustRequest{
		ProductID: product.ID,
		Qty:       5,
		Type:      domain.MovementDamage,
		Notes:     "water damage in storage",
	})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if updated.Stock != -3 {
		t.Fatalf("expected stock -3, got %d", updated.Stock)
	}
}

func TestAdjustStockRejectsUnknownType(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Pen Drive", 4, "550")

	_, err := svc.AdjustStock(testCtx(), domain.StockAdjustRequest{
		ProductID: product.ID,
		Qty:       1,
		Type:      "Shrinkage",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInvoiceReconciliationWorkedExample(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Braided Cable", 10, "120")
	customer := mustAddCustomer(t, svc, "Asha Traders")

	if _, err := svc.StockIn(testCtx(), domain.StockInRequest{
		ProductID: product.ID,
		Qty:       5,
		NewPrice:  dec("120"),
	}); err != nil {
		t.Fatalf("stock in failed: %v", err)
	}

	paid := dec("100")
	invoice, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:   "INV-1001",
		CustomerID:  customer.ID,
		PaymentMode: "Cash",
		PaidAmount:  &paid,
		Items: []domain.LineItemInput{
			{ProductID: product.ID, Qty: 2, Price: dec("120")},
		},
	})
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	if !invoice.Amount.Equal(dec("240")) || !invoice.DueAmount.Equal(dec("140")) {
		t.Fatalf("expected amount 240 due 140, got %s / %s", invoice.Amount, invoice.DueAmount)
	}
	if invoice.Status != domain.StatusPartial {
		t.Fatalf("expected Partial, got %s", invoice.Status)
	}

	got, err := svc.GetProduct(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if got.Stock != 13 {
		t.Fatalf("expected stock 13, got %d", got.Stock)
	}

	customers, err := svc.ListCustomers(testCtx())
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if !customers[0].Balance.Equal(dec("140")) {
		t.Fatalf("expected balance 140, got %s", customers[0].Balance)
	}

	history, err := svc.GetProductHistory(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	sale := history[0]
	if sale.Type != domain.MovementSale || sale.Qty != 2 || sale.User != "System" || sale.Reason != "INV-1001" {
		t.Fatalf("unexpected sale movement: %+v", sale)
	}
}

func TestPaymentFloorsBalanceAtZero(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Portable HDD", 20, "120")
	customer := mustAddCustomer(t, svc, "Nile Retail")

	paid := dec("100")
	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-2001",
		CustomerID: customer.ID,
		PaidAmount: &paid,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("120")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	after, err := svc.RecordPayment(testCtx(), customer.ID, domain.PaymentRequest{Amount: dec("140"), Mode: "Cash"})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if !after.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", after.Balance)
	}

	after, err = svc.RecordPayment(testCtx(), customer.ID, domain.PaymentRequest{Amount: dec("50"), Mode: "Cash"})
	if err != nil {
		t.Fatalf("second payment failed: %v", err)
	}
	if !after.Balance.IsZero() {
		t.Fatalf("balance must floor at zero, got %s", after.Balance)
	}
}

func TestPaymentAuditCarriesModeAndNotes(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Ethernet Cable", 20, "250")
	customer := mustAddCustomer(t, svc, "Harbor Mart")
	vendor := mustAddVendor(t, svc, "Canal Supply")

	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-2101",
		CustomerID: customer.ID,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("250")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	if _, err := svc.RecordPayment(testCtx(), customer.ID, domain.PaymentRequest{
		Amount: dec("250"),
		Mode:   "UPI",
		Notes:  "final settlement",
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(testCtx(), domain.AuditLogFilter{Module: "Customers"})
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	if logs[0].Action != "Payment" {
		t.Fatalf("expected Payment entry first, got %+v", logs[0])
	}
	for _, want := range []string{"250.00", "UPI", "final settlement"} {
		if !strings.Contains(logs[0].Details, want) {
			t.Fatalf("payment details missing %q: %s", want, logs[0].Details)
		}
	}

	if _, err := svc.AddBill(testCtx(), domain.BillCreateRequest{
		BillNo:   "BILL-2101",
		VendorID: vendor.ID,
		Items:    []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("110")}},
	}); err != nil {
		t.Fatalf("bill failed: %v", err)
	}
	if _, err := svc.RecordVendorPayment(testCtx(), vendor.ID, domain.PaymentRequest{
		Amount: dec("220"),
		Mode:   "Bank Transfer",
		Notes:  "cleared in full",
	}); err != nil {
		t.Fatalf("vendor payment failed: %v", err)
	}

	vendorLogs, err := svc.ListAuditLogs(testCtx(), domain.AuditLogFilter{Module: "Vendors"})
	if err != nil {
		t.Fatalf("list vendor logs failed: %v", err)
	}
	for _, want := range []string{"220.00", "Bank Transfer", "cleared in full"} {
		if !strings.Contains(vendorLogs[0].Details, want) {
			t.Fatalf("vendor payment details missing %q: %s", want, vendorLogs[0].Details)
		}
	}
}

func TestAddProductZeroStockHasNoOpeningMovement(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Lightning Cable", 0, "550")

	history, err := svc.GetProductHistory(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	// Movement quantities are positive magnitudes, so a zero opening stock
	// records nothing; the log's signed sum still equals the stock.
	if len(history) != 0 {
		t.Fatalf("expected no movements for zero opening stock, got %+v", history)
	}
}

func TestInvoiceOverpaymentClampsToTotal(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Phone Stand", 10, "120")
	customer := mustAddCustomer(t, svc, "Corner Kiosk")

	paid := dec("500")
	invoice, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-2201",
		CustomerID: customer.ID,
		PaidAmount: &paid,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("120")}},
	})
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	// Payment beyond the total is change given: paid clamps to the amount.
	if !invoice.PaidAmount.Equal(dec("240")) || !invoice.DueAmount.IsZero() {
		t.Fatalf("expected paid 240 due 0, got %s / %s", invoice.PaidAmount, invoice.DueAmount)
	}
	if invoice.Status != domain.StatusPaid {
		t.Fatalf("expected Paid, got %s", invoice.Status)
	}
	if !invoice.PaidAmount.Add(invoice.DueAmount).Equal(invoice.Amount) {
		t.Fatalf("paid+due must equal amount: %+v", invoice)
	}

	customers, _ := svc.ListCustomers(testCtx())
	if !customers[0].Balance.IsZero() {
		t.Fatalf("overpaid invoice must not touch the balance, got %s", customers[0].Balance)
	}
}

func TestInvoiceLegacyStatusPaid(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "microSD Card", 10, "650")
	customer := mustAddCustomer(t, svc, "Quick Mart")

	invoice, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-3001",
		CustomerID: customer.ID,
		Status:     domain.StatusPaid,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("650")}},
	})
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	if invoice.Status != domain.StatusPaid || !invoice.DueAmount.IsZero() || !invoice.PaidAmount.Equal(dec("650")) {
		t.Fatalf("legacy Paid flag not honored: %+v", invoice)
	}

	customers, _ := svc.ListCustomers(testCtx())
	if !customers[0].Balance.IsZero() {
		t.Fatalf("paid invoice must not touch the balance, got %s", customers[0].Balance)
	}
}

func TestInvoiceUnknownProductLeavesStateUntouched(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Webcam", 7, "2200")
	customer := mustAddCustomer(t, svc, "Vista Stores")

	_, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-4001",
		CustomerID: customer.ID,
		Items: []domain.LineItemInput{
			{ProductID: product.ID, Qty: 1, Price: dec("2200")},
			{ProductID: "prd-missing", Qty: 1, Price: dec("100")},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	got, _ := svc.GetProduct(testCtx(), product.ID)
	if got.Stock != 7 {
		t.Fatalf("failed invoice must not move stock, got %d", got.Stock)
	}
	invoices, _ := svc.ListInvoices(testCtx())
	if len(invoices) != 0 {
		t.Fatalf("failed invoice must not be stored")
	}
	customers, _ := svc.ListCustomers(testCtx())
	if !customers[0].Balance.IsZero() {
		t.Fatalf("failed invoice must not touch the balance")
	}
}

func TestMovementSignedSumEqualsStock(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Mechanical Keyboard", 12, "3200")
	customer := mustAddCustomer(t, svc, "Pixel Traders")

	if _, err := svc.StockIn(testCtx(), domain.StockInRequest{ProductID: product.ID, Qty: 6, NewPrice: dec("2100")}); err != nil {
		t.Fatalf("stock in failed: %v", err)
	}
	if _, err := svc.AdjustStock(testCtx(), domain.StockAdjustRequest{ProductID: product.ID, Qty: 2, Type: domain.MovementLoss}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-5001",
		CustomerID: customer.ID,
		Status:     domain.StatusPaid,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 3, Price: dec("3200")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	history, err := svc.GetProductHistory(testCtx(), product.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	sum := 0
	for _, m := range history {
		sum += domain.MovementSign(m.Type) * m.Qty
	}

	got, _ := svc.GetProduct(testCtx(), product.ID)
	if sum != got.Stock {
		t.Fatalf("signed movement sum %d != stock %d", sum, got.Stock)
	}
}

func TestUpdateInvoiceRejectsInconsistentFigures(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Smart Bulb", 10, "400")
	customer := mustAddCustomer(t, svc, "Lumen House")

	invoice, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-6001",
		CustomerID: customer.ID,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("400")}},
	})
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	broken := invoice
	broken.PaidAmount = dec("100")
	broken.DueAmount = dec("100")
	_, err = svc.UpdateInvoice(testCtx(), invoice.ID, broken)
	if !errors.Is(err, store.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}

	fixed := invoice
	fixed.PaidAmount = dec("100")
	fixed.DueAmount = dec("300")
	fixed.Status = domain.StatusPartial
	updated, err := svc.UpdateInvoice(testCtx(), invoice.ID, fixed)
	if err != nil {
		t.Fatalf("consistent update failed: %v", err)
	}
	if updated.Status != domain.StatusPartial {
		t.Fatalf("expected Partial after update, got %s", updated.Status)
	}
}

func TestAddBillCreditsVendorWithoutStockEffect(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Cooling Pad", 9, "950")
	vendor := mustAddVendor(t, svc, "Meru Components")

	paid := dec("500")
	bill, err := svc.AddBill(testCtx(), domain.BillCreateRequest{
		BillNo:     "BILL-101",
		VendorID:   vendor.ID,
		PaidAmount: &paid,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 10, Price: dec("110")}},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}
	if !bill.Amount.Equal(dec("1100")) || !bill.DueAmount.Equal(dec("600")) || bill.Status != domain.StatusPartial {
		t.Fatalf("unexpected bill reconciliation: %+v", bill)
	}

	vendors, _ := svc.ListVendors(testCtx())
	if !vendors[0].Balance.Equal(dec("600")) {
		t.Fatalf("expected vendor balance 600, got %s", vendors[0].Balance)
	}

	got, _ := svc.GetProduct(testCtx(), product.ID)
	if got.Stock != 9 {
		t.Fatalf("bills must not move stock, got %d", got.Stock)
	}

	after, err := svc.RecordVendorPayment(testCtx(), vendor.ID, domain.PaymentRequest{Amount: dec("700"), Mode: "Bank Transfer"})
	if err != nil {
		t.Fatalf("vendor payment failed: %v", err)
	}
	if !after.Balance.IsZero() {
		t.Fatalf("vendor balance must floor at zero, got %s", after.Balance)
	}
}

func TestDailyClosingMath(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Travel Adapter", 30, "300")
	customer := mustAddCustomer(t, svc, "Dawn Mart")

	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:   "INV-7001",
		CustomerID:  customer.ID,
		Status:      domain.StatusPaid,
		PaymentMode: "Cash",
		Items:       []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("300")}},
	}); err != nil {
		t.Fatalf("cash invoice failed: %v", err)
	}
	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:   "INV-7002",
		CustomerID:  customer.ID,
		Status:      domain.StatusPaid,
		PaymentMode: "UPI",
		Items:       []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("300")}},
	}); err != nil {
		t.Fatalf("upi invoice failed: %v", err)
	}
	// A pending invoice never counts toward the day's sales.
	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:   "INV-7003",
		CustomerID:  customer.ID,
		PaymentMode: "Cash",
		Items:       []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("300")}},
	}); err != nil {
		t.Fatalf("pending invoice failed: %v", err)
	}
	if _, err := svc.AddExpense(testCtx(), domain.ExpenseCreateRequest{
		Category:    "Transport",
		Amount:      dec("150"),
		PaymentMode: "Cash",
	}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	closing, err := svc.AddDailyClosing(testCtx(), domain.DailyClosingRequest{
		OpeningBalance: dec("1000"),
		ActualCash:     dec("1400"),
	})
	if err != nil {
		t.Fatalf("closing failed: %v", err)
	}
	if !closing.CashSales.Equal(dec("600")) || !closing.OnlineSales.Equal(dec("300")) {
		t.Fatalf("sales split wrong: cash=%s online=%s", closing.CashSales, closing.OnlineSales)
	}
	if !closing.ExpectedCash.Equal(dec("1450")) {
		t.Fatalf("expected cash 1450, got %s", closing.ExpectedCash)
	}
	if !closing.Discrepancy.Equal(dec("-50")) {
		t.Fatalf("expected discrepancy -50, got %s", closing.Discrepancy)
	}

	_, err = svc.AddDailyClosing(testCtx(), domain.DailyClosingRequest{
		OpeningBalance: dec("500"),
		ActualCash:     dec("500"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected duplicate-date rejection, got %v", err)
	}
}

func TestAuditCompletenessAndQueryPurity(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Alarm Clock", 5, "700")
	customer := mustAddCustomer(t, svc, "Nova Stores")
	mustAddVendor(t, svc, "Delta Supply")

	if _, err := svc.StockIn(testCtx(), domain.StockInRequest{ProductID: product.ID, Qty: 3, NewPrice: dec("450")}); err != nil {
		t.Fatalf("stock in failed: %v", err)
	}
	if _, err := svc.RecordPayment(testCtx(), customer.ID, domain.PaymentRequest{Amount: dec("10")}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(testCtx(), domain.AuditLogFilter{})
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	if len(logs) != 5 {
		t.Fatalf("expected exactly 5 audit entries for 5 mutations, got %d", len(logs))
	}
	if logs[0].User != "Store Admin" {
		t.Fatalf("audit user attribution missing: %+v", logs[0])
	}

	// Queries leave the trail untouched.
	if _, err := svc.ListProducts(testCtx()); err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if _, err := svc.GetProductHistory(testCtx(), product.ID); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if _, err := svc.DashboardSummary(testCtx()); err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}

	after, _ := svc.ListAuditLogs(testCtx(), domain.AuditLogFilter{})
	if len(after) != len(logs) {
		t.Fatalf("queries must not append audit entries: %d -> %d", len(logs), len(after))
	}
}

func TestAddRoleAndUser(t *testing.T) {
	svc := newTestService()

	role, err := svc.AddRole(testCtx(), domain.RoleCreateRequest{
		Name:        "Auditor",
		Permissions: []string{"reports.view", "inventory.view"},
	})
	if err != nil {
		t.Fatalf("add role failed: %v", err)
	}

	user, err := svc.AddUser(testCtx(), domain.UserCreateRequest{
		Name:     "Kiran Rao",
		Email:    "Kiran@Example.com",
		RoleID:   role.ID,
		Password: "long-enough-password",
	})
	if err != nil {
		t.Fatalf("add user failed: %v", err)
	}
	if user.Email != "kiran@example.com" || user.RoleName != "Auditor" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "long-enough-password" {
		t.Fatalf("password must be stored hashed")
	}

	_, err = svc.AddRole(testCtx(), domain.RoleCreateRequest{Name: "Ops", Permissions: []string{"not.a.permission"}})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected unknown-permission rejection, got %v", err)
	}
}

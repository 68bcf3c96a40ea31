package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retailbook/backend/internal/domain"
	"retailbook/backend/internal/store/memory"
)

// mapReportCache is a ReportCache over a plain map with no expiry, so tests
// can tell a recompute from a cached read.
type mapReportCache struct {
	entries map[string]*domain.SalesReport
}

func newMapReportCache() *mapReportCache {
	return &mapReportCache{entries: map[string]*domain.SalesReport{}}
}

func (c *mapReportCache) Get(_ context.Context, key string) (*domain.SalesReport, bool, error) {
	report, ok := c.entries[key]
	return report, ok, nil
}

func (c *mapReportCache) Set(_ context.Context, key string, value *domain.SalesReport, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func TestSalesReportFiltersAndTotals(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Ring Stand", 50, "250")
	customer := mustAddCustomer(t, svc, "Orbit Mart")

	paid := dec("100")
	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:   "INV-8001",
		CustomerID:  customer.ID,
		PaymentMode: "Cash",
		PaidAmount:  &paid,
		Items:       []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("250")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:   "INV-8002",
		CustomerID:  customer.ID,
		PaymentMode: "UPI",
		Status:      domain.StatusPaid,
		Items:       []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("250")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	report, err := svc.SalesReport(testCtx(), domain.SalesReportFilter{})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.Count != 2 {
		t.Fatalf("expected 2 invoices, got %d", report.Count)
	}
	if !report.Gross.Equal(dec("750")) || !report.Received.Equal(dec("350")) || !report.Outstanding.Equal(dec("400")) {
		t.Fatalf("totals wrong: gross=%s received=%s outstanding=%s", report.Gross, report.Received, report.Outstanding)
	}

	partials, err := svc.SalesReport(testCtx(), domain.SalesReportFilter{Status: domain.StatusPartial})
	if err != nil {
		t.Fatalf("filtered report failed: %v", err)
	}
	if partials.Count != 1 || partials.Invoices[0].InvoiceNo != "INV-8001" {
		t.Fatalf("status filter wrong: %+v", partials)
	}

	minAmount := dec("600")
	large, err := svc.SalesReport(testCtx(), domain.SalesReportFilter{MinAmount: &minAmount})
	if err != nil {
		t.Fatalf("amount-filtered report failed: %v", err)
	}
	if large.Count != 0 {
		t.Fatalf("expected no invoices at or above 600, got %d", large.Count)
	}
}

func TestSalesReportRefreshesAfterInvoiceMutation(t *testing.T) {
	svc := New(memory.New(), newMapReportCache(), time.Minute)
	product := mustAddProduct(t, svc, "Cooling Fan", 30, "400")
	customer := mustAddCustomer(t, svc, "Dockside Mart")

	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-8101",
		CustomerID: customer.ID,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("400")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	first, err := svc.SalesReport(testCtx(), domain.SalesReportFilter{})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if first.Count != 1 {
		t.Fatalf("expected 1 invoice, got %d", first.Count)
	}

	// A second invoice must show up immediately even though the first
	// report was cached without a TTL.
	invoice, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-8102",
		CustomerID: customer.ID,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("400")}},
	})
	if err != nil {
		t.Fatalf("second invoice failed: %v", err)
	}

	second, err := svc.SalesReport(testCtx(), domain.SalesReportFilter{})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if second.Count != 2 || !second.Gross.Equal(dec("1200")) {
		t.Fatalf("report served stale data: count=%d gross=%s", second.Count, second.Gross)
	}

	// Updating an invoice retires cached reports the same way.
	replacement := invoice
	replacement.PaidAmount = dec("800")
	replacement.DueAmount = decimal.Zero
	replacement.Status = domain.StatusPaid
	if _, err := svc.UpdateInvoice(testCtx(), invoice.ID, replacement); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	third, err := svc.SalesReport(testCtx(), domain.SalesReportFilter{})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !third.Received.Equal(dec("800")) {
		t.Fatalf("expected received 800 after update, got %s", third.Received)
	}
}

func TestInventoryValuationCountsAndValue(t *testing.T) {
	svc := newTestService()
	mustAddProduct(t, svc, "Doorbell", 10, "800")
	mustAddProduct(t, svc, "Phone Case", 3, "250")
	mustAddProduct(t, svc, "SATA SSD", 0, "3400")

	valuation, err := svc.InventoryValuation(testCtx())
	if err != nil {
		t.Fatalf("valuation failed: %v", err)
	}
	if valuation.TotalUnits != 13 {
		t.Fatalf("expected 13 units, got %d", valuation.TotalUnits)
	}
	// All three products carry in-price 100.
	if !valuation.TotalValue.Equal(dec("1300")) {
		t.Fatalf("expected value 1300, got %s", valuation.TotalValue)
	}
	if valuation.LowStock != 1 || valuation.OutOfStock != 1 {
		t.Fatalf("low/out counts wrong: %d/%d", valuation.LowStock, valuation.OutOfStock)
	}
	if len(valuation.ByCategory) != 1 || valuation.ByCategory[0].Category != "Electronics" {
		t.Fatalf("category rollup wrong: %+v", valuation.ByCategory)
	}
}

func TestExpenseSummaryGroupsByCategoryAndMode(t *testing.T) {
	svc := newTestService()

	for _, e := range []domain.ExpenseCreateRequest{
		{Category: "Rent", Amount: dec("5000"), PaymentMode: "Bank Transfer"},
		{Category: "Transport", Amount: dec("300"), PaymentMode: "Cash"},
		{Category: "Transport", Amount: dec("200"), PaymentMode: "Cash"},
	} {
		if _, err := svc.AddExpense(testCtx(), e); err != nil {
			t.Fatalf("expense failed: %v", err)
		}
	}

	summary, err := svc.ExpenseSummary(testCtx(), "", "")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !summary.Total.Equal(dec("5500")) {
		t.Fatalf("expected total 5500, got %s", summary.Total)
	}
	if !summary.ByCategory["Transport"].Equal(dec("500")) {
		t.Fatalf("transport rollup wrong: %s", summary.ByCategory["Transport"])
	}
	if !summary.ByMode["Cash"].Equal(dec("500")) {
		t.Fatalf("cash rollup wrong: %s", summary.ByMode["Cash"])
	}
}

func TestDashboardSummaryLedgers(t *testing.T) {
	svc := newTestService()
	product := mustAddProduct(t, svc, "Mixer Jar", 10, "600")
	customer := mustAddCustomer(t, svc, "Hill Mart")
	vendor := mustAddVendor(t, svc, "Crest Traders")

	if _, err := svc.AddInvoice(testCtx(), domain.InvoiceCreateRequest{
		InvoiceNo:  "INV-9001",
		CustomerID: customer.ID,
		Items:      []domain.LineItemInput{{ProductID: product.ID, Qty: 1, Price: dec("600")}},
	}); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	if _, err := svc.AddBill(testCtx(), domain.BillCreateRequest{
		BillNo:   "BILL-901",
		VendorID: vendor.ID,
		Items:    []domain.LineItemInput{{ProductID: product.ID, Qty: 2, Price: dec("110")}},
	}); err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	summary, err := svc.DashboardSummary(testCtx())
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if summary.Products != 1 || summary.Customers != 1 || summary.Vendors != 1 || summary.Invoices != 1 {
		t.Fatalf("counts wrong: %+v", summary)
	}
	if !summary.Receivables.Equal(dec("600")) || !summary.Payables.Equal(dec("220")) {
		t.Fatalf("ledgers wrong: receivables=%s payables=%s", summary.Receivables, summary.Payables)
	}
	if !summary.TodaySales.Equal(dec("600")) {
		t.Fatalf("today sales wrong: %s", summary.TodaySales)
	}
}

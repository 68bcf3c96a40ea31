package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"retailbook/backend/internal/domain"
)

// SalesReport filters the invoice ledger and totals it. Results are served
// from the report cache when one is configured; a cache failure degrades to
// a recompute, never to an error.
func (s *Service) SalesReport(ctx context.Context, filter domain.SalesReportFilter) (domain.SalesReport, error) {
	key := s.salesReportCacheKey(filter)
	if cached, ok, err := s.reports.Get(ctx, key); err != nil {
		log.Warn().Err(err).Msg("report cache read failed")
	} else if ok {
		return *cached, nil
	}

	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}

	report := domain.SalesReport{
		From:        filter.From,
		To:          filter.To,
		Invoices:    make([]domain.Invoice, 0, len(invoices)),
		Gross:       decimal.Zero,
		Received:    decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, inv := range invoices {
		if !matchesSalesFilter(inv, filter) {
			continue
		}
		report.Invoices = append(report.Invoices, inv)
		report.Gross = report.Gross.Add(inv.Amount)
		report.Received = report.Received.Add(inv.PaidAmount)
		report.Outstanding = report.Outstanding.Add(inv.DueAmount)
	}
	report.Count = len(report.Invoices)

	if err := s.reports.Set(ctx, key, &report, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("report cache write failed")
	}
	return report, nil
}

func matchesSalesFilter(inv domain.Invoice, filter domain.SalesReportFilter) bool {
	if filter.From != "" && inv.Date < filter.From {
		return false
	}
	if filter.To != "" && inv.Date > filter.To {
		return false
	}
	if filter.Status != "" && inv.Status != filter.Status {
		return false
	}
	if filter.PaymentMode != "" && inv.PaymentMode != filter.PaymentMode {
		return false
	}
	if filter.MinAmount != nil && inv.Amount.LessThan(*filter.MinAmount) {
		return false
	}
	if filter.MaxAmount != nil && inv.Amount.GreaterThan(*filter.MaxAmount) {
		return false
	}
	return true
}

// salesReportCacheKey includes the current report epoch, so invoice
// mutations retire every previously cached report in one counter bump.
func (s *Service) salesReportCacheKey(filter domain.SalesReportFilter) string {
	minPart, maxPart := "", ""
	if filter.MinAmount != nil {
		minPart = filter.MinAmount.String()
	}
	if filter.MaxAmount != nil {
		maxPart = filter.MaxAmount.String()
	}
	return fmt.Sprintf("reports:sales:v%d:%s:%s:%s:%s:%s:%s",
		s.reportEpoch.Load(), filter.From, filter.To, filter.Status, filter.PaymentMode, minPart, maxPart)
}

// InventoryValuation values stock at in-price. Negative stock contributes
// negatively, keeping the total honest about oversold positions.
func (s *Service) InventoryValuation(ctx context.Context) (domain.InventoryValuation, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.InventoryValuation{}, err
	}

	valuation := domain.InventoryValuation{
		TotalValue:   decimal.Zero,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		LowThreshold: lowStockThreshold,
	}
	byCategory := map[string]*domain.CategoryValuation{}
	for _, p := range products {
		value := p.InPrice.Mul(decimal.NewFromInt(int64(p.Stock))).Round(2)
		valuation.TotalUnits += p.Stock
		valuation.TotalValue = valuation.TotalValue.Add(value)
		if p.Stock <= 0 {
			valuation.OutOfStock++
		} else if p.Stock <= lowStockThreshold {
			valuation.LowStock++
		}

		entry, ok := byCategory[p.Category]
		if !ok {
			entry = &domain.CategoryValuation{Category: p.Category, Value: decimal.Zero}
			byCategory[p.Category] = entry
		}
		entry.Units += p.Stock
		entry.Value = entry.Value.Add(value)
	}

	valuation.ByCategory = make([]domain.CategoryValuation, 0, len(byCategory))
	for _, entry := range byCategory {
		valuation.ByCategory = append(valuation.ByCategory, *entry)
	}
	sort.Slice(valuation.ByCategory, func(i, j int) bool {
		return valuation.ByCategory[i].Category < valuation.ByCategory[j].Category
	})
	return valuation, nil
}

func (s *Service) ExpenseSummary(ctx context.Context, from string, to string) (domain.ExpenseSummary, error) {
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}

	summary := domain.ExpenseSummary{
		From:       from,
		To:         to,
		Total:      decimal.Zero,
		ByCategory: map[string]decimal.Decimal{},
		ByMode:     map[string]decimal.Decimal{},
	}
	for _, exp := range expenses {
		if from != "" && exp.Date < from {
			continue
		}
		if to != "" && exp.Date > to {
			continue
		}
		summary.Total = summary.Total.Add(exp.Amount)
		summary.ByCategory[exp.Category] = summary.ByCategory[exp.Category].Add(exp.Amount)
		if exp.PaymentMode != "" {
			summary.ByMode[exp.PaymentMode] = summary.ByMode[exp.PaymentMode].Add(exp.Amount)
		}
	}
	return summary, nil
}

func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	vendors, err := s.repo.ListVendors(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := domain.DashboardSummary{
		Products:    len(products),
		Customers:   len(customers),
		Vendors:     len(vendors),
		Invoices:    len(invoices),
		Receivables: decimal.Zero,
		Payables:    decimal.Zero,
		TodaySales:  decimal.Zero,
		StockValue:  decimal.Zero,
	}
	for _, c := range customers {
		summary.Receivables = summary.Receivables.Add(c.Balance)
	}
	for _, v := range vendors {
		summary.Payables = summary.Payables.Add(v.Balance)
	}
	today := todayDate()
	for _, inv := range invoices {
		if inv.Date == today {
			summary.TodaySales = summary.TodaySales.Add(inv.Amount)
		}
	}
	for _, p := range products {
		summary.StockValue = summary.StockValue.Add(p.InPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	summary.StockValue = summary.StockValue.Round(2)
	return summary, nil
}

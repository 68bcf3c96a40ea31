// Package seed builds the randomized demo dataset the in-memory store
// starts with. Values are plausible rather than reproducible; every
// generated document satisfies the ledger invariants (paid + due == amount,
// status derived from the pair, party balances equal to the sum of their
// open dues) so property checks hold on a fresh store.
package seed

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retailbook/backend/internal/domain"
	"retailbook/backend/internal/xid"
)

type Dataset struct {
	Products  []domain.Product
	Movements []domain.StockMovement
	Customers []domain.Customer
	Vendors   []domain.Vendor
	Invoices  []domain.Invoice
	Bills     []domain.Bill
	Expenses  []domain.Expense
	Roles     []domain.Role
	Users     []domain.User
}

var productNames = map[string][]string{
	"Electronics":          {"Bluetooth Speaker", "Smart LED Bulb", "Digital Alarm Clock", "Wireless Doorbell"},
	"Mobile Accessories":   {"Tempered Glass Screen Guard", "Silicone Phone Case", "Fast Charger 25W", "Ring Holder Stand"},
	"Computer Peripherals": {"Wireless Mouse", "Mechanical Keyboard", "Full HD Webcam", "Laptop Cooling Pad"},
	"Home Appliances":      {"Electric Kettle 1.5L", "Steam Iron", "Table Fan", "Mixer Grinder Jar"},
	"Cables & Adapters":    {"USB-C to HDMI Adapter", "Braided Lightning Cable", "3-Pin Travel Adapter", "Ethernet Cable 5m"},
	"Storage Devices":      {"64GB Pen Drive", "1TB Portable HDD", "128GB microSD Card", "256GB SATA SSD"},
}

var tagPool = []string{"bestseller", "new-arrival", "clearance", "premium", "budget", "gift", "warranty", "imported"}

// NewDataset generates the startup data: 12 products with opening-stock
// movements, 10 customers, 8 vendors, 10 invoices, 8 bills, a handful of
// expenses, the built-in roles, and two login users.
func NewDataset() *Dataset {
	f := gofakeit.New(0)
	ds := &Dataset{}

	ds.Products, ds.Movements = seedProducts(f)
	ds.Customers = seedCustomers(f)
	ds.Vendors = seedVendors(f)
	ds.Invoices = seedInvoices(f, ds.Products, ds.Customers)
	ds.Bills = seedBills(f, ds.Products, ds.Vendors)
	ds.Expenses = seedExpenses(f)
	ds.Roles = seedRoles()
	ds.Users = seedUsers(ds.Roles)

	// Open dues flow into party ledgers the same way live invoices and
	// bills would.
	for _, inv := range ds.Invoices {
		for i := range ds.Customers {
			if ds.Customers[i].ID == inv.CustomerID {
				ds.Customers[i].Balance = ds.Customers[i].Balance.Add(inv.DueAmount)
			}
		}
	}
	for _, bill := range ds.Bills {
		for i := range ds.Vendors {
			if ds.Vendors[i].ID == bill.VendorID {
				ds.Vendors[i].Balance = ds.Vendors[i].Balance.Add(bill.DueAmount)
			}
		}
	}
	return ds
}

func seedProducts(f *gofakeit.Faker) ([]domain.Product, []domain.StockMovement) {
	products := make([]domain.Product, 0, 12)
	movements := make([]domain.StockMovement, 0, 12)
	used := map[string]bool{}
	now := time.Now().UTC()

	for len(products) < 12 {
		category := domain.ProductCategories[f.Number(0, len(domain.ProductCategories)-1)]
		names := productNames[category]
		name := names[f.Number(0, len(names)-1)]
		if used[name] {
			continue
		}
		used[name] = true

		inPrice := decimal.NewFromFloat(f.Price(80, 2400)).Round(2)
		customerPrice := inPrice.Mul(decimal.NewFromFloat(1 + f.Float64Range(0.20, 0.45))).Round(2)
		vendorPrice := inPrice.Mul(decimal.NewFromFloat(1 + f.Float64Range(0.08, 0.18))).Round(2)
		stock := f.Number(4, 60)

		p := domain.Product{
			ID:               xid.New("prd"),
			Name:             name,
			Category:         category,
			SKU:              fmt.Sprintf("SKU-%s", f.LetterN(6)),
			Tags:             pickTags(f),
			Stock:            stock,
			InPrice:          inPrice,
			VendorPrice:      vendorPrice,
			MinVendorPrice:   vendorPrice.Mul(decimal.NewFromFloat(0.95)).Round(2),
			CustomerPrice:    customerPrice,
			MinCustomerPrice: customerPrice.Mul(decimal.NewFromFloat(0.90)).Round(2),
			Active:           true,
			LastUpdated:      now,
		}
		products = append(products, p)
		movements = append(movements, domain.StockMovement{
			ID:        xid.New("mov"),
			ProductID: p.ID,
			Date:      now,
			Type:      domain.MovementOpeningStock,
			Qty:       stock,
			Reason:    "Initial stock entry",
			User:      "System",
		})
	}
	return products, movements
}

func pickTags(f *gofakeit.Faker) []string {
	count := f.Number(0, 3)
	tags := make([]string, 0, count)
	for len(tags) < count {
		tag := tagPool[f.Number(0, len(tagPool)-1)]
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

func seedCustomers(f *gofakeit.Faker) []domain.Customer {
	customers := make([]domain.Customer, 0, 10)
	for i := 0; i < 10; i++ {
		customers = append(customers, domain.Customer{
			ID:      xid.New("cus"),
			Name:    f.Name(),
			Company: f.Company(),
			Email:   f.Email(),
			Phone:   f.Phone(),
			City:    f.City(),
			Balance: decimal.Zero,
			Status:  "Active",
		})
	}
	return customers
}

func seedVendors(f *gofakeit.Faker) []domain.Vendor {
	vendors := make([]domain.Vendor, 0, 8)
	for i := 0; i < 8; i++ {
		vendors = append(vendors, domain.Vendor{
			ID:            xid.New("ven"),
			Company:       f.Company(),
			Address:       f.Address().Address,
			ContactPerson: f.Name(),
			Phone:         f.Phone(),
			Email:         f.Email(),
			GSTIN:         "29" + f.Regex("[0-9A-Z]{13}"),
			Balance:       decimal.Zero,
			Status:        "Active",
		})
	}
	return vendors
}

// Seeded invoices predate the movement ledger, so no sale movements are
// synthesized and stock is not retro-decremented for them.
func seedInvoices(f *gofakeit.Faker, products []domain.Product, customers []domain.Customer) []domain.Invoice {
	invoices := make([]domain.Invoice, 0, 10)
	for i := 0; i < 10; i++ {
		customer := customers[f.Number(0, len(customers)-1)]
		items := seedLineItems(f, products, func(p domain.Product) decimal.Decimal { return p.CustomerPrice })
		amount := sumLineItems(items)
		paid := pickPaid(f, amount)
		due := amount.Sub(paid)

		invoices = append(invoices, domain.Invoice{
			ID:           xid.New("inv"),
			InvoiceNo:    fmt.Sprintf("INV-2026-%04d", 1000+i),
			Date:         recentDate(f),
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			Amount:       amount,
			PaidAmount:   paid,
			DueAmount:    due,
			Status:       domain.PaymentStatusFor(paid, amount),
			PaymentMode:  f.RandomString(domain.PaymentModes),
			Items:        items,
		})
	}
	return invoices
}

func seedBills(f *gofakeit.Faker, products []domain.Product, vendors []domain.Vendor) []domain.Bill {
	bills := make([]domain.Bill, 0, 8)
	for i := 0; i < 8; i++ {
		vendor := vendors[f.Number(0, len(vendors)-1)]
		items := seedLineItems(f, products, func(p domain.Product) decimal.Decimal { return p.VendorPrice })
		amount := sumLineItems(items)
		paid := pickPaid(f, amount)
		due := amount.Sub(paid)

		bills = append(bills, domain.Bill{
			ID:          xid.New("bil"),
			BillNo:      fmt.Sprintf("BILL-2026-%04d", 500+i),
			Date:        recentDate(f),
			VendorID:    vendor.ID,
			VendorName:  vendor.Company,
			Amount:      amount,
			PaidAmount:  paid,
			DueAmount:   due,
			Status:      domain.PaymentStatusFor(paid, amount),
			PaymentMode: f.RandomString(domain.PaymentModes),
			Items:       items,
		})
	}
	return bills
}

func seedLineItems(f *gofakeit.Faker, products []domain.Product, priceOf func(domain.Product) decimal.Decimal) []domain.LineItem {
	count := f.Number(1, 3)
	items := make([]domain.LineItem, 0, count)
	for i := 0; i < count; i++ {
		p := products[f.Number(0, len(products)-1)]
		qty := f.Number(1, 5)
		price := priceOf(p)
		items = append(items, domain.LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Qty:         qty,
			Price:       price,
			Total:       price.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		})
	}
	return items
}

func sumLineItems(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}

// pickPaid returns a paid amount that is zero, full, or a strict partial of
// the total so every derived status occurs in the seed data.
func pickPaid(f *gofakeit.Faker, amount decimal.Decimal) decimal.Decimal {
	switch f.Number(0, 2) {
	case 0:
		return decimal.Zero
	case 1:
		return amount
	default:
		return amount.Mul(decimal.NewFromFloat(f.Float64Range(0.2, 0.8))).Round(2)
	}
}

func seedExpenses(f *gofakeit.Faker) []domain.Expense {
	expenses := make([]domain.Expense, 0, 6)
	for i := 0; i < 6; i++ {
		expenses = append(expenses, domain.Expense{
			ID:          xid.New("exp"),
			Date:        recentDate(f),
			Category:    f.RandomString(domain.ExpenseCategories),
			Amount:      decimal.NewFromFloat(f.Price(150, 9000)).Round(2),
			Description: f.Sentence(5),
			PaymentMode: f.RandomString(domain.PaymentModes),
			RecordedBy:  "System",
		})
	}
	return expenses
}

func seedRoles() []domain.Role {
	return []domain.Role{
		{
			ID:          xid.New("rol"),
			Name:        "Admin",
			Permissions: append([]string(nil), domain.PermissionIDs...),
			IsSystem:    true,
		},
		{
			ID:   xid.New("rol"),
			Name: "Billing Staff",
			Permissions: []string{
				"billing.view", "billing.create", "customers.manage", "closing.manage",
			},
			IsSystem: true,
		},
		{
			ID:   xid.New("rol"),
			Name: "Inventory Manager",
			Permissions: []string{
				"inventory.view", "inventory.edit", "vendors.manage", "reports.view",
			},
			IsSystem: false,
		},
	}
}

// seedUsers builds the two demo login accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; unset vars fall back to dev
// defaults with a warning.
func seedUsers(roles []domain.Role) []domain.User {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Warn().Msg("seed: using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	users := make([]domain.User, 0, 2)
	for _, u := range []struct {
		name     string
		email    string
		password string
		roleName string
	}{
		{"Store Admin", "admin@retailbook.local", adminPwd, "Admin"},
		{"Billing Desk", "staff@retailbook.local", staffPwd, "Billing Staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("user", u.email).Msg("seed: failed to hash password")
		}
		users = append(users, domain.User{
			ID:           xid.New("usr"),
			Name:         u.name,
			Email:        u.email,
			RoleID:       roleIDByName(roles, u.roleName),
			RoleName:     u.roleName,
			Status:       "Active",
			PasswordHash: string(hash),
		})
	}
	return users
}

func roleIDByName(roles []domain.Role, name string) string {
	for _, r := range roles {
		if r.Name == name {
			return r.ID
		}
	}
	return ""
}

func recentDate(f *gofakeit.Faker) string {
	daysAgo := f.Number(0, 28)
	return time.Now().UTC().AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

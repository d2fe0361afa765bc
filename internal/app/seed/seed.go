// Package seed loads the demo storefront: an admin, two merchants, a funded buyer
// and a small catalog spread across both merchants.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	accountdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

// Fixed identifiers of the demo data. Account and product ids live in separate tables.
const (
	AdminID         int64 = 1
	AppleMerchantID int64 = 2
	MiMerchantID    int64 = 3
	BuyerID         int64 = 4

	LaptopID     int64 = 1
	HeadphonesID int64 = 2
	KeyboardID   int64 = 3
	WatchID      int64 = 4
	MonitorID    int64 = 5
	TShirtID     int64 = 6
)

// BuyerBalance is the demo buyer's starting balance.
var BuyerBalance = decimal.NewFromInt(10000)

type accountSeed struct {
	id      int64
	name    string
	email   string
	role    accountdomain.Role
	balance decimal.Decimal
}

type productSeed struct {
	id       int64
	name     string
	price    string
	stock    int64
	merchant int64
	origin   address.Address
}

var (
	shenzhen = address.Address{Province: "Guangdong", City: "Shenzhen", District: "Nanshan", Detail: "Keyuan Road Warehouse 3"}
	beijing  = address.Address{Province: "Beijing", City: "Beijing", District: "Haidian", Detail: "Anningzhuang Road 10"}
)

var demoAccounts = []accountSeed{
	{AdminID, "Admin", "admin@checkout.local", accountdomain.RoleAdmin, decimal.Zero},
	{AppleMerchantID, "Apple Authorized Store", "apple@checkout.local", accountdomain.RoleMerchant, decimal.Zero},
	{MiMerchantID, "Xiaomi Official Store", "xiaomi@checkout.local", accountdomain.RoleMerchant, decimal.Zero},
	{BuyerID, "Demo Buyer", "buyer@checkout.local", accountdomain.RoleBuyer, BuyerBalance},
}

var demoProducts = []productSeed{
	{LaptopID, "Performance Laptop", "5999.00", 20, AppleMerchantID, shenzhen},
	{HeadphonesID, "Noise Cancelling Headphones", "1299.00", 50, AppleMerchantID, shenzhen},
	{KeyboardID, "Mechanical Keyboard", "399.00", 100, MiMerchantID, beijing},
	{WatchID, "Smart Watch", "899.00", 40, MiMerchantID, beijing},
	{MonitorID, "4K Monitor", "2499.00", 15, AppleMerchantID, shenzhen},
	{TShirtID, "Cotton T-Shirt", "99.00", 1, MiMerchantID, beijing},
}

// Load inserts every demo record that does not exist yet. Existing rows are left
// untouched, so balances and stock survive restarts.
func Load(ctx context.Context, accounts accountports.Repository, products catalogports.Repository, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	merchants := make(map[int64]string, len(demoAccounts))
	created := 0
	for _, s := range demoAccounts {
		if s.role == accountdomain.RoleMerchant {
			merchants[s.id] = s.name
		}
		if _, err := accounts.GetByID(ctx, s.id); err == nil {
			continue
		} else if !errors.Is(err, accountports.ErrNotFound) {
			return fmt.Errorf("look up account %d: %w", s.id, err)
		}
		account, err := accountdomain.NewAccount(s.id, s.name, s.email, s.role, s.balance)
		if err != nil {
			return fmt.Errorf("build account %d: %w", s.id, err)
		}
		if _, err := accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("save account %d: %w", s.id, err)
		}
		created++
	}
	for _, s := range demoProducts {
		if _, err := products.GetByID(ctx, s.id); err == nil {
			continue
		} else if !errors.Is(err, catalogports.ErrNotFound) {
			return fmt.Errorf("look up product %d: %w", s.id, err)
		}
		product, err := catalogdomain.NewProduct(s.id, s.name, decimal.RequireFromString(s.price), s.stock,
			catalogdomain.Merchant{ID: s.merchant, Name: merchants[s.merchant]}, s.origin)
		if err != nil {
			return fmt.Errorf("build product %d: %w", s.id, err)
		}
		if _, err := products.Save(ctx, product); err != nil {
			return fmt.Errorf("save product %d: %w", s.id, err)
		}
		created++
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "demo data loaded", slog.Int("created", created))
	return nil
}

package migrations

import (
	"gorm.io/gorm"

	accountspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/persistence/postgres"
	catalogpostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/persistence/postgres"
	orderspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/adapters/persistence/postgres"
)

// Run applies the schema for every bounded context, leaf stores first.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	for _, migrate := range []func(*gorm.DB) error{
		accountspostgres.Migrate,
		catalogpostgres.Migrate,
		orderspostgres.Migrate,
	} {
		if err := migrate(db); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-gin-checkout-server/internal/app/checkout"
	"github.com/Apurer/go-gin-checkout-server/internal/app/seed"
	accountspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/persistence/postgres"
	catalogpostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/persistence/postgres"
	"github.com/Apurer/go-gin-checkout-server/internal/platform/migrations"
	platformpostgres "github.com/Apurer/go-gin-checkout-server/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := checkout.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; nothing to seed")
	}
	if err := migrations.Run(db.WithContext(ctx)); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	if err := seed.Load(ctx, accountspostgres.NewRepository(db), catalogpostgres.NewRepository(db), logger); err != nil {
		log.Fatalf("failed to seed demo data: %v", err)
	}
	log.Printf("demo data seeded")
}

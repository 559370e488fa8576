// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobopos/ledger-be/internal/adapters/db"
	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
	"github.com/kobopos/ledger-be/internal/pkg/config"
	"github.com/kobopos/ledger-be/internal/pkg/logger"
)

// Seeds a development database with a store configuration, a handful of
// products, and an open tax period for the current month.
func main() {
	storeIDFlag := flag.String("store", "00000000-0000-0000-0000-000000000001", "store UUID to seed")
	flag.Parse()

	slogger := logger.SetupLogger("info", "text")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.IsProduction() {
		slogger.Error("refusing to seed a production database")
		os.Exit(1)
	}

	storeID, err := uuid.Parse(*storeIDFlag)
	if err != nil {
		slogger.Error("invalid store UUID", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}, slogger)
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	store := db.NewLedgerRepository(database, slogger)

	if err := seed(ctx, store, storeID, slogger); err != nil {
		slogger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("seeding complete", slog.String("store_id", storeID.String()))
}

func seed(ctx context.Context, store ports.LedgerStore, storeID uuid.UUID, slogger *slog.Logger) error {
	taxCfg := domain.TaxConfig{
		VATRegistered: true,
		ChargeVAT:     true,
		VATRate:       decimal.NewFromFloat(0.075),
		Currency:      "NGN",
	}
	if err := store.SaveTaxConfig(ctx, storeID, taxCfg); err != nil {
		return err
	}
	slogger.Info("tax config saved", slog.String("rate", taxCfg.VATRate.String()))

	products := []domain.Product{
		{Name: "Bag of Rice 50kg", SKU: "RICE-50", SellingPrice: 6_500_000, StockQuantity: 40, LowStockThreshold: 10},
		{Name: "Vegetable Oil 5L", SKU: "OIL-5L", SellingPrice: 1_450_000, StockQuantity: 60, LowStockThreshold: 15},
		{Name: "Spaghetti 500g", SKU: "SPAG-500", SellingPrice: 95_000, StockQuantity: 200, LowStockThreshold: 48},
		{Name: "Peak Milk Tin", SKU: "MILK-TIN", SellingPrice: 120_000, StockQuantity: 150, LowStockThreshold: 30},
		{Name: "Delivery Crate", SKU: "CRATE-1", SellingPrice: 350_000, StockQuantity: 12, LowStockThreshold: 3},
	}
	for i := range products {
		p := products[i]
		p.ID = uuid.New()
		p.StoreID = storeID
		p.Taxable = true
		p.Active = true
		if err := store.SaveProduct(ctx, &p); err != nil {
			return err
		}
		slogger.Info("product seeded",
			slog.String("id", p.ID.String()),
			slog.String("sku", p.SKU),
			slog.Int("stock", p.StockQuantity))
	}

	// One open period covering the current calendar month.
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	period := &domain.TaxPeriod{
		ID:        uuid.New(),
		StoreID:   storeID,
		StartDate: start,
		EndDate:   end,
		Status:    domain.PeriodOpen,
	}
	if err := store.CreatePeriod(ctx, period); err != nil {
		return err
	}
	slogger.Info("tax period opened",
		slog.String("id", period.ID.String()),
		slog.Time("start", start),
		slog.Time("end", end))

	return nil
}

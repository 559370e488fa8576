// internal/adapters/db/ledger_repository.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// ledgerRepository implements ports.LedgerStore on Postgres. Methods are
// spread across ledger_repository.go, sale_repository.go and
// period_repository.go.
type ledgerRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewLedgerRepository creates the Postgres-backed ledger store.
func NewLedgerRepository(db *Database, logger *slog.Logger) ports.LedgerStore {
	return &ledgerRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "ledger")),
	}
}

// Statically assert that *ledgerRepository implements the LedgerStore interface.
var _ ports.LedgerStore = (*ledgerRepository)(nil)

// translateError maps driver-level failures onto domain sentinels.
// Serialization failures and invoice-number unique violations both mean the
// caller raced another writer and may retry.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return domain.ErrConcurrencyConflict
		case "23505":
			return domain.ErrConcurrencyConflict
		case "23P01": // exclusion_violation on the period window constraint
			return domain.ErrPeriodOverlap
		}
	}
	return err
}

// SaveProduct inserts or replaces a product's ledger-owned fields.
func (r *ledgerRepository) SaveProduct(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO products (
			id, store_id, name, sku, selling_price, stock_quantity,
			low_stock_threshold, taxable, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sku = EXCLUDED.sku,
			selling_price = EXCLUDED.selling_price,
			stock_quantity = EXCLUDED.stock_quantity,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			taxable = EXCLUDED.taxable,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		product.ID, product.StoreID, product.Name, product.SKU,
		int64(product.SellingPrice), product.StockQuantity,
		product.LowStockThreshold, product.Taxable, product.Active,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	r.logger.DebugContext(ctx, "product saved",
		slog.String("product_id", product.ID.String()))
	return nil
}

const productColumns = `
	id, store_id, name, sku, selling_price, stock_quantity,
	low_stock_threshold, taxable, active, created_at, updated_at, deleted_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var price int64
	err := row.Scan(
		&p.ID, &p.StoreID, &p.Name, &p.SKU, &price, &p.StockQuantity,
		&p.LowStockThreshold, &p.Taxable, &p.Active,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SellingPrice = domain.Money(price)
	return &p, nil
}

// FindProduct retrieves a product by ID.
func (r *ledgerRepository) FindProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return p, nil
}

// FindProducts retrieves the requested products belonging to a store.
// Missing IDs are simply absent from the result map.
func (r *ledgerRepository) FindProducts(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.Product{}, nil
	}

	query := `SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1 AND id = ANY($2) AND deleted_at IS NULL`

	rows, err := r.db.Query(ctx, query, storeID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return out, nil
}

// NextInvoiceNumber atomically bumps and returns the store's invoice
// counter. Numbers consumed by sales that roll back stay consumed.
func (r *ledgerRepository) NextInvoiceNumber(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, nextInvoiceSQL, storeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return n, nil
}

const nextInvoiceSQL = `
	INSERT INTO invoice_counters (store_id, last_number)
	VALUES ($1, 1)
	ON CONFLICT (store_id) DO UPDATE SET last_number = invoice_counters.last_number + 1
	RETURNING last_number`

// TaxConfig loads the store's tax settings, falling back to the defaults
// when the store never saved any.
func (r *ledgerRepository) TaxConfig(ctx context.Context, storeID uuid.UUID) (domain.TaxConfig, error) {
	query := `
		SELECT vat_registered, charge_vat, vat_rate, currency
		FROM store_settings WHERE store_id = $1`

	var cfg domain.TaxConfig
	var rate decimal.Decimal
	err := r.db.QueryRow(ctx, query, storeID).Scan(
		&cfg.VATRegistered, &cfg.ChargeVAT, &rate, &cfg.Currency,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultTaxConfig(), nil
		}
		return domain.TaxConfig{}, fmt.Errorf("failed to load tax config: %w", err)
	}
	cfg.VATRate = rate
	return cfg, nil
}

// SaveTaxConfig upserts the store's tax settings.
func (r *ledgerRepository) SaveTaxConfig(ctx context.Context, storeID uuid.UUID, cfg domain.TaxConfig) error {
	query := `
		INSERT INTO store_settings (store_id, vat_registered, charge_vat, vat_rate, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (store_id) DO UPDATE SET
			vat_registered = EXCLUDED.vat_registered,
			charge_vat = EXCLUDED.charge_vat,
			vat_rate = EXCLUDED.vat_rate,
			currency = EXCLUDED.currency,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query,
		storeID, cfg.VATRegistered, cfg.ChargeVAT, cfg.VATRate, cfg.Currency,
	); err != nil {
		return fmt.Errorf("failed to save tax config: %w", err)
	}
	return nil
}

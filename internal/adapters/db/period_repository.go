// internal/adapters/db/period_repository.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

// CreatePeriod inserts a new reporting window. An advisory lock on the
// store serializes the overlap check against concurrent creations.
func (r *ledgerRepository) CreatePeriod(ctx context.Context, period *domain.TaxPeriod) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1::text))`,
			period.StoreID,
		); err != nil {
			return fmt.Errorf("failed to lock store: %w", err)
		}

		var overlaps bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM tax_periods
				WHERE store_id = $1 AND start_date < $3 AND $2 < end_date
			)`,
			period.StoreID, period.StartDate, period.EndDate,
		).Scan(&overlaps)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if overlaps {
			return domain.ErrPeriodOverlap
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tax_periods (
				id, store_id, start_date, end_date, status,
				total_sales, taxable_sales, output_vat, input_vat, vat_payable,
				created_at
			) VALUES ($1, $2, $3, $4, $5, 0, 0, 0, 0, 0, $6)`,
			period.ID, period.StoreID, period.StartDate, period.EndDate,
			string(period.Status), period.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert period: %w", err)
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}

	r.logger.DebugContext(ctx, "period created",
		slog.String("period_id", period.ID.String()))
	return nil
}

const periodColumns = `
	id, store_id, start_date, end_date, status,
	total_sales, taxable_sales, output_vat, input_vat, vat_payable,
	closed_at, created_at`

func scanPeriod(row pgx.Row) (*domain.TaxPeriod, error) {
	var p domain.TaxPeriod
	var status string
	var totalSales, taxableSales, outputVAT, inputVAT, vatPayable int64
	err := row.Scan(
		&p.ID, &p.StoreID, &p.StartDate, &p.EndDate, &status,
		&totalSales, &taxableSales, &outputVAT, &inputVAT, &vatPayable,
		&p.ClosedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PeriodStatus(status)
	p.Aggregates = domain.PeriodAggregates{
		TotalSales:   domain.Money(totalSales),
		TaxableSales: domain.Money(taxableSales),
		OutputVAT:    domain.Money(outputVAT),
		InputVAT:     domain.Money(inputVAT),
		VATPayable:   domain.Money(vatPayable),
	}
	return &p, nil
}

// FindPeriod retrieves a period by ID.
func (r *ledgerRepository) FindPeriod(ctx context.Context, id uuid.UUID) (*domain.TaxPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM tax_periods WHERE id = $1`

	p, err := scanPeriod(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find period: %w", err)
	}
	return p, nil
}

// FindCoveringPeriod resolves the period whose [start, end) window covers
// the timestamp. No covering period means ErrNoOpenPeriod.
func (r *ledgerRepository) FindCoveringPeriod(ctx context.Context, storeID uuid.UUID, at time.Time) (*domain.TaxPeriod, error) {
	query := `SELECT ` + periodColumns + `
		FROM tax_periods
		WHERE store_id = $1 AND start_date <= $2 AND $2 < end_date`

	p, err := scanPeriod(r.db.QueryRow(ctx, query, storeID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoOpenPeriod
		}
		return nil, fmt.Errorf("failed to find covering period: %w", err)
	}
	return p, nil
}

// ListPeriods returns every period for a store, newest first.
func (r *ledgerRepository) ListPeriods(ctx context.Context, storeID uuid.UUID) ([]domain.TaxPeriod, error) {
	query := `SELECT ` + periodColumns + `
		FROM tax_periods WHERE store_id = $1 ORDER BY start_date DESC`

	rows, err := r.db.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TaxPeriod, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ClosePeriod finalizes a period. The exclusive row lock waits out any
// in-flight RecordSale holding a share lock, then the aggregates are
// recomputed from the sales and purchases actually stored, replacing the
// incrementally maintained figures.
func (r *ledgerRepository) ClosePeriod(ctx context.Context, periodID uuid.UUID, now time.Time) (*domain.TaxPeriod, error) {
	var closed *domain.TaxPeriod

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		period, err := scanPeriod(tx.QueryRow(ctx,
			`SELECT `+periodColumns+` FROM tax_periods WHERE id = $1 FOR UPDATE`,
			periodID,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to lock period: %w", err)
		}
		if !period.Open() {
			return domain.ErrPeriodClosed
		}

		var agg domain.PeriodAggregates
		var totalSales, taxableSales, outputVAT, inputVAT int64
		err = tx.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(total), 0),
				COALESCE(SUM(subtotal - discount) FILTER (WHERE tax_amount > 0), 0),
				COALESCE(SUM(tax_amount), 0)
			FROM sales WHERE tax_period_id = $1`,
			periodID,
		).Scan(&totalSales, &taxableSales, &outputVAT)
		if err != nil {
			return fmt.Errorf("failed to recompute sales aggregates: %w", err)
		}

		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(input_vat), 0) FROM purchases WHERE tax_period_id = $1`,
			periodID,
		).Scan(&inputVAT)
		if err != nil {
			return fmt.Errorf("failed to recompute purchase aggregates: %w", err)
		}

		agg = domain.PeriodAggregates{
			TotalSales:   domain.Money(totalSales),
			TaxableSales: domain.Money(taxableSales),
			OutputVAT:    domain.Money(outputVAT),
			InputVAT:     domain.Money(inputVAT),
		}
		if err := period.Close(agg, now); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE tax_periods SET
				status = $2,
				total_sales = $3,
				taxable_sales = $4,
				output_vat = $5,
				input_vat = $6,
				vat_payable = $7,
				closed_at = $8
			WHERE id = $1`,
			periodID, string(period.Status),
			int64(period.Aggregates.TotalSales), int64(period.Aggregates.TaxableSales),
			int64(period.Aggregates.OutputVAT), int64(period.Aggregates.InputVAT),
			int64(period.Aggregates.VATPayable), period.ClosedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to close period: %w", err)
		}

		closed = period
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	r.logger.InfoContext(ctx, "period closed",
		slog.String("period_id", periodID.String()),
		slog.Int64("vat_payable", int64(closed.Aggregates.VATPayable)))
	return closed, nil
}

// RecordPurchase inserts a purchase and bumps the covering period's input
// VAT in the same transaction. Same locking discipline as RecordSale: the
// period row is taken FOR NO KEY UPDATE up front so the aggregate UPDATE
// never has to upgrade a share lock.
func (r *ledgerRepository) RecordPurchase(ctx context.Context, purchase *domain.Purchase) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM tax_periods WHERE id = $1 FOR NO KEY UPDATE`,
			purchase.TaxPeriodID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNoOpenPeriod
			}
			return fmt.Errorf("failed to lock tax period: %w", err)
		}
		if domain.PeriodStatus(status) != domain.PeriodOpen {
			return domain.ErrPeriodClosed
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO purchases (
				id, store_id, supplier, amount, input_vat,
				purchase_date, tax_period_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			purchase.ID, purchase.StoreID, purchase.Supplier,
			int64(purchase.Amount), int64(purchase.InputVAT),
			purchase.Date, purchase.TaxPeriodID, purchase.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert purchase: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE tax_periods SET
				input_vat = input_vat + $2,
				vat_payable = output_vat - (input_vat + $2)
			WHERE id = $1`,
			purchase.TaxPeriodID, int64(purchase.InputVAT),
		)
		if err != nil {
			return fmt.Errorf("failed to update period aggregates: %w", err)
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}

	r.logger.DebugContext(ctx, "purchase recorded",
		slog.String("purchase_id", purchase.ID.String()))
	return nil
}

// ListPurchases returns the purchases posted into a period.
func (r *ledgerRepository) ListPurchases(ctx context.Context, periodID uuid.UUID) ([]domain.Purchase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, store_id, supplier, amount, input_vat,
			purchase_date, tax_period_id, created_at
		FROM purchases WHERE tax_period_id = $1 ORDER BY purchase_date`,
		periodID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Purchase, 0)
	for rows.Next() {
		var p domain.Purchase
		var amount, inputVAT int64
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Supplier, &amount, &inputVAT,
			&p.Date, &p.TaxPeriodID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		p.Amount = domain.Money(amount)
		p.InputVAT = domain.Money(inputVAT)
		out = append(out, p)
	}
	return out, rows.Err()
}

// internal/adapters/db/sale_repository.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// RecordSale persists a sale as one transaction: invoice number, stock
// decrements, sale row, line items and the period aggregate bump all commit
// or roll back together. The period row is locked FOR NO KEY UPDATE up
// front: the aggregate UPDATE at the end needs that same lock level, so
// taking it here serializes same-period sales through one lock point
// instead of upgrading from a share lock mid-transaction (which deadlocks
// when two sales hold the share lock and both try to upgrade). A concurrent
// ClosePeriod blocks on it too, so a period cannot finalize while a sale
// is mid-flight.
func (r *ledgerRepository) RecordSale(ctx context.Context, sale *domain.Sale) ([]domain.StockLevel, error) {
	var levels []domain.StockLevel

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM tax_periods WHERE id = $1 FOR NO KEY UPDATE`,
			sale.TaxPeriodID,
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

		if err := tx.QueryRow(ctx, nextInvoiceSQL, sale.StoreID).Scan(&sale.InvoiceNumber); err != nil {
			return fmt.Errorf("failed to advance invoice counter: %w", err)
		}

		levels = levels[:0]
		for _, it := range sale.Items {
			level, err := decrementStock(ctx, tx, sale.StoreID, it)
			if err != nil {
				return err
			}
			levels = append(levels, level)
		}

		if err := insertSale(ctx, tx, sale); err != nil {
			return err
		}

		taxable := domain.Money(0)
		if sale.TaxAmount > 0 {
			taxable = sale.Subtotal - sale.Discount
		}
		tag, err := tx.Exec(ctx, `
			UPDATE tax_periods SET
				total_sales = total_sales + $2,
				taxable_sales = taxable_sales + $3,
				output_vat = output_vat + $4,
				vat_payable = output_vat + $4 - input_vat
			WHERE id = $1 AND status = 'OPEN'`,
			sale.TaxPeriodID, int64(sale.Total), int64(taxable), int64(sale.TaxAmount),
		)
		if err != nil {
			return fmt.Errorf("failed to update period aggregates: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrPeriodClosed
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	r.logger.DebugContext(ctx, "sale recorded",
		slog.String("sale_id", sale.ID.String()),
		slog.Int64("invoice_number", sale.InvoiceNumber))
	return levels, nil
}

// decrementStock applies one line's conditional decrement. The WHERE guard
// is what keeps stock non-negative under concurrent sales.
func decrementStock(ctx context.Context, tx pgx.Tx, storeID uuid.UUID, it domain.SaleLineItem) (domain.StockLevel, error) {
	var level domain.StockLevel
	err := tx.QueryRow(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $3, updated_at = NOW()
		WHERE id = $1 AND store_id = $2 AND deleted_at IS NULL
			AND stock_quantity >= $3
		RETURNING id, store_id, name, stock_quantity, low_stock_threshold`,
		it.ProductID, storeID, it.QuantitySold,
	).Scan(&level.ProductID, &level.StoreID, &level.Name, &level.Quantity, &level.Threshold)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return level, fmt.Errorf("failed to decrement stock: %w", err)
	}

	// Distinguish missing product from insufficient stock.
	var available int
	err = tx.QueryRow(ctx, `
		SELECT stock_quantity FROM products
		WHERE id = $1 AND store_id = $2 AND deleted_at IS NULL`,
		it.ProductID, storeID,
	).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return level, &domain.InvalidProductError{ProductID: it.ProductID, Reason: "not found"}
	}
	if err != nil {
		return level, fmt.Errorf("failed to check stock: %w", err)
	}
	return level, &domain.InsufficientStockError{
		ProductID: it.ProductID,
		Requested: it.QuantitySold,
		Available: available,
	}
}

func insertSale(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error {
	var (
		deliveryType    string
		deliveryStatus  sql.NullString
		deliveryAddress sql.NullString
		deliveredAt     *time.Time
	)
	if sale.Delivery != nil {
		deliveryType = string(sale.Delivery.Type)
		if sale.Delivery.Status != "" {
			deliveryStatus = sql.NullString{String: string(sale.Delivery.Status), Valid: true}
		}
		if sale.Delivery.Address != "" {
			deliveryAddress = sql.NullString{String: sale.Delivery.Address, Valid: true}
		}
		deliveredAt = sale.Delivery.DeliveredAt
	} else {
		deliveryType = string(domain.DeliveryWalkIn)
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO sales (
			id, store_id, invoice_number, subtotal, discount, tax_amount,
			delivery_fee, total, payment_method, customer_name, customer_phone,
			tax_period_id, delivery_type, delivery_status, delivery_address,
			delivered_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17
		)`,
		sale.ID, sale.StoreID, sale.InvoiceNumber,
		int64(sale.Subtotal), int64(sale.Discount), int64(sale.TaxAmount),
		int64(sale.DeliveryFee), int64(sale.Total),
		string(sale.PaymentMethod), sale.CustomerName, sale.CustomerPhone,
		sale.TaxPeriodID, deliveryType, deliveryStatus, deliveryAddress,
		deliveredAt, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range sale.Items {
		batch.Queue(`
			INSERT INTO sale_items (
				sale_id, product_id, product_name, quantity_sold,
				unit_price_at_sale, line_subtotal, taxable
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, it.ProductID, it.ProductName, it.QuantitySold,
			int64(it.UnitPriceAtSale), int64(it.LineSubtotal), it.Taxable,
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range sale.Items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}
	return nil
}

const saleColumns = `
	s.id, s.store_id, s.invoice_number, s.subtotal, s.discount, s.tax_amount,
	s.delivery_fee, s.total, s.payment_method, s.customer_name, s.customer_phone,
	s.tax_period_id, s.delivery_type, s.delivery_status, s.delivery_address,
	s.delivered_at, s.created_at`

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		s                                   domain.Sale
		subtotal, discount, tax, fee, total int64
		method, deliveryType                string
		status, address                     sql.NullString
		customerName, customerPhone         sql.NullString
		deliveredAt                         *time.Time
	)
	err := row.Scan(
		&s.ID, &s.StoreID, &s.InvoiceNumber, &subtotal, &discount, &tax,
		&fee, &total, &method, &customerName, &customerPhone,
		&s.TaxPeriodID, &deliveryType, &status, &address,
		&deliveredAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Subtotal = domain.Money(subtotal)
	s.Discount = domain.Money(discount)
	s.TaxAmount = domain.Money(tax)
	s.DeliveryFee = domain.Money(fee)
	s.Total = domain.Money(total)
	s.PaymentMethod = domain.PaymentMethod(method)
	s.CustomerName = customerName.String
	s.CustomerPhone = customerPhone.String
	s.Delivery = &domain.Delivery{
		Type:        domain.DeliveryType(deliveryType),
		Status:      domain.DeliveryStatus(status.String),
		Address:     address.String,
		DeliveredAt: deliveredAt,
	}
	return &s, nil
}

func (r *ledgerRepository) loadItems(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID][]domain.SaleLineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT sale_id, product_id, product_name, quantity_sold,
			unit_price_at_sale, line_subtotal, taxable
		FROM sale_items WHERE sale_id = ANY($1) ORDER BY id`,
		saleIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.SaleLineItem)
	for rows.Next() {
		var saleID uuid.UUID
		var it domain.SaleLineItem
		var price, lineSub int64
		if err := rows.Scan(&saleID, &it.ProductID, &it.ProductName,
			&it.QuantitySold, &price, &lineSub, &it.Taxable); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		it.UnitPriceAtSale = domain.Money(price)
		it.LineSubtotal = domain.Money(lineSub)
		out[saleID] = append(out[saleID], it)
	}
	return out, rows.Err()
}

// FindSale retrieves a sale with its line items.
func (r *ledgerRepository) FindSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales s WHERE s.id = $1`

	sale, err := scanSale(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	sale.Items = items[id]
	return sale, nil
}

// ListSales returns sales matching the query plus the unpaginated count.
func (r *ledgerRepository) ListSales(ctx context.Context, q ports.SaleQuery) ([]domain.Sale, int64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	base := psql.Select().From("sales s")
	if q.StoreID != uuid.Nil {
		base = base.Where(squirrel.Eq{"s.store_id": q.StoreID})
	}
	if q.TaxPeriodID != uuid.Nil {
		base = base.Where(squirrel.Eq{"s.tax_period_id": q.TaxPeriodID})
	}
	if !q.From.IsZero() {
		base = base.Where(squirrel.GtOrEq{"s.created_at": q.From})
	}
	if !q.To.IsZero() {
		base = base.Where(squirrel.Lt{"s.created_at": q.To})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	listBuilder := base.Columns(saleColumns).
		OrderBy("s.created_at DESC", "s.invoice_number DESC")
	if q.Limit > 0 {
		listBuilder = listBuilder.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		listBuilder = listBuilder.Offset(uint64(q.Offset))
	}
	listSQL, listArgs, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sales: %w", err)
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range sales {
			sales[i].Items = items[sales[i].ID]
		}
	}
	return sales, total, nil
}

// UpdateDelivery replaces the delivery state of a sale. Financial columns
// stay untouched.
func (r *ledgerRepository) UpdateDelivery(ctx context.Context, saleID uuid.UUID, delivery *domain.Delivery) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales SET
			delivery_status = $2,
			delivery_address = $3,
			delivered_at = $4
		WHERE id = $1`,
		saleID, string(delivery.Status), delivery.Address, delivery.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

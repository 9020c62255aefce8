package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// totalTolerance is how far the client-supplied line total may drift from
// price x quantity before the recomputed value replaces it.
var totalTolerance = decimal.RequireFromString("0.01")

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	fmt.Println("Connected to postgres!")
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "sales_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Checkout(ctx context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback()

	// replay a bill we already created for this key
	var existingBill uuid.UUID
	errKey := tx.QueryRowContext(ctx,
		`SELECT bill_id FROM checkout_requests WHERE idempotency_key = $1`,
		req.IdempotencyKey).Scan(&existingBill)
	if errKey == nil {
		log.Printf("duplicate checkout detected idempotency_key = %v with bill_id = %v", req.IdempotencyKey, existingBill)
		return r.resultForBill(ctx, existingBill)
	}
	if !errors.Is(errKey, sql.ErrNoRows) {
		return nil, fmt.Errorf("check idempotency key: %w", errKey)
	}

	billID := uuid.New()
	result := &domain.CheckoutResult{
		BillID:       billID,
		OperatorName: operator.Name,
		Date:         req.Date,
	}
	event := domain.SaleRecordedEvent{
		BillID:       billID.String(),
		OperatorID:   operator.ID.String(),
		OperatorName: operator.Name,
		Date:         req.Date,
	}

	for _, item := range req.Items {
		// the guarded update is the sole stock arbiter; the POS-side
		// snapshot check is advisory only
		var name, unit string
		var price, stockAfter, threshold decimal.Decimal
		errUpdate := tx.QueryRowContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND status = 'active' AND stock >= $2
			RETURNING name, unit, price, stock, low_stock_threshold`,
			item.ProductID, item.Quantity,
		).Scan(&name, &unit, &price, &stockAfter, &threshold)

		if errors.Is(errUpdate, sql.ErrNoRows) {
			return nil, r.classifyStockFailure(ctx, item.ProductID)
		}
		if errUpdate != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", item.ProductID, errUpdate)
		}

		total := r.settleTotal(item, price)

		sale := domain.Sale{
			ID:           uuid.New(),
			ProductID:    item.ProductID,
			ProductName:  name,
			Quantity:     item.Quantity,
			Total:        total,
			Date:         req.Date,
			OperatorID:   operator.ID,
			OperatorName: operator.Name,
			BillID:       uuid.NullUUID{UUID: billID, Valid: true},
		}

		_, errInsert := tx.ExecContext(ctx, `
			INSERT INTO sales (id, product_id, product_name, quantity, total, date, operator_id, operator_name, bill_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			sale.ID, sale.ProductID, sale.ProductName, sale.Quantity, sale.Total,
			sale.Date, sale.OperatorID, sale.OperatorName, sale.BillID.UUID)
		if errInsert != nil {
			return nil, fmt.Errorf("insert sale: %w", errInsert)
		}

		result.Items = append(result.Items, sale)
		result.TotalAmount = result.TotalAmount.Add(total)
		result.TotalQuantity = result.TotalQuantity.Add(item.Quantity)

		event.Items = append(event.Items, domain.EventItem{
			ProductID:         item.ProductID.String(),
			ProductName:       name,
			Quantity:          item.Quantity,
			Total:             total,
			StockAfter:        stockAfter,
			LowStockThreshold: threshold,
		})
	}
	event.TotalAmount = result.TotalAmount

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, errOutbox := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), billID.String(), domain.EventTypeSaleRecorded, payload)
	if errOutbox != nil {
		return nil, fmt.Errorf("insert outbox event: %w", errOutbox)
	}

	_, errReq := tx.ExecContext(ctx, `
		INSERT INTO checkout_requests (idempotency_key, bill_id)
		VALUES ($1, $2)`,
		req.IdempotencyKey, billID)
	if errReq != nil {
		var pqErr *pq.Error
		if errors.As(errReq, &pqErr) && pqErr.Code == "23505" {
			// lost a race with a concurrent identical request; replay theirs
			return r.resultForBill(ctx, r.lookupBill(ctx, req.IdempotencyKey))
		}
		return nil, fmt.Errorf("insert checkout request: %w", errReq)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout tx: %w", err)
	}

	return result, nil
}

// settleTotal keeps the client-supplied line total when it matches the
// server-side recomputation to the paisa; otherwise the recomputed value
// wins and the discrepancy is logged.
func (r *Repository) settleTotal(item domain.CheckoutItem, price decimal.Decimal) decimal.Decimal {
	recomputed := price.Mul(item.Quantity)
	if item.Total.Sub(recomputed).Abs().LessThanOrEqual(totalTolerance) {
		return item.Total
	}
	log.Printf("client total %s for product %s differs from recomputed %s, using recomputed",
		item.Total, item.ProductID, recomputed)
	return recomputed
}

func (r *Repository) classifyStockFailure(ctx context.Context, productID uuid.UUID) error {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM products WHERE id = $1`, productID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("classify stock failure: %w", err)
	}
	if status != string(catalog.StatusActive) {
		return ErrProductInactive
	}
	return ErrInsufficientStock
}

func (r *Repository) lookupBill(ctx context.Context, idempotencyKey string) uuid.UUID {
	var billID uuid.UUID
	if err := r.db.QueryRowContext(ctx,
		`SELECT bill_id FROM checkout_requests WHERE idempotency_key = $1`,
		idempotencyKey).Scan(&billID); err != nil {
		log.Printf("failed to look up bill for idempotency key %v: %v", idempotencyKey, err)
	}
	return billID
}

func (r *Repository) resultForBill(ctx context.Context, billID uuid.UUID) (*domain.CheckoutResult, error) {
	sales, err := r.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	result := &domain.CheckoutResult{BillID: billID}
	for _, sale := range sales {
		result.Items = append(result.Items, sale)
		result.TotalAmount = result.TotalAmount.Add(sale.Total)
		result.TotalQuantity = result.TotalQuantity.Add(sale.Quantity)
		result.OperatorName = sale.OperatorName
		result.Date = sale.Date
	}
	return result, nil
}

const saleColumns = `id, product_id, product_name, quantity, total, date, operator_id, operator_name, bill_id`

func (r *Repository) ListSales(ctx context.Context, filter domain.ListFilter) ([]domain.Sale, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OperatorID != nil {
		conds = append(conds, "operator_id = "+arg(*filter.OperatorID))
	}
	if filter.BillID != nil {
		conds = append(conds, "bill_id = "+arg(*filter.BillID))
	}
	if filter.From != nil {
		conds = append(conds, "date >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "date < "+arg(*filter.To))
	}

	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	return scanSales(rows)
}

func (r *Repository) GetBill(ctx context.Context, billID uuid.UUID) ([]domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE bill_id = $1 ORDER BY date, id`, billID)
	if err != nil {
		return nil, fmt.Errorf("query bill: %w", err)
	}
	defer rows.Close()

	sales, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, ErrBillNotFound
	}
	return sales, nil
}

func (r *Repository) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sale rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func scanSales(rows *sql.Rows) ([]domain.Sale, error) {
	var sales []domain.Sale
	for rows.Next() {
		var s domain.Sale
		var billID uuid.NullUUID
		if err := rows.Scan(
			&s.ID,
			&s.ProductID,
			&s.ProductName,
			&s.Quantity,
			&s.Total,
			&s.Date,
			&s.OperatorID,
			&s.OperatorName,
			&billID,
		); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		s.BillID = billID
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sales, nil
}

const productColumns = `id, name, category, unit, price, stock, low_stock_threshold, status, created_at, updated_at`

func (r *Repository) ListProducts(ctx context.Context, status catalog.ProductStatus) ([]catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *catalog.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Status == "" {
		product.Status = catalog.StatusActive
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, unit, price, stock, low_stock_threshold, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID, product.Name, product.Category, product.Unit,
		product.Price, product.Stock, product.LowStockThreshold, product.Status)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func scanProduct(scan func(dest ...interface{}) error) (*catalog.Product, error) {
	p := &catalog.Product{}
	err := scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Unit,
		&p.Price,
		&p.Stock,
		&p.LowStockThreshold,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed = FALSE
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.AggregateId, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = TRUE WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

var _ RepoInterface = (*Repository)(nil)

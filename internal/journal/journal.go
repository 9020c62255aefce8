// Package journal keeps a device-local record of completed bills, backing
// the "Today's Sales (This device)" view. It is a convenience log, not the
// source of truth; the sales service owns the real rows.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/billing"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type Entry struct {
	ID          uuid.UUID       `json:"id"`
	BillID      uuid.UUID       `json:"bill_id"`
	OperatorID  uuid.UUID       `json:"operator_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
	Date        time.Time       `json:"date"`
}

type Journal struct {
	db *sql.DB
}

func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(j.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// Record appends one row per line item of a completed bill.
func (j *Journal) Record(ctx context.Context, operatorID uuid.UUID, bill billing.Bill) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO journal_entries (id, bill_id, operator_id, product_name, quantity, total, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, line := range bill.Lines {
		_, err := tx.ExecContext(ctx, query,
			uuid.NewString(),
			bill.Key.ID().String(),
			operatorID.String(),
			line.ProductName,
			line.Quantity.String(),
			line.Total.String(),
			line.Date.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert journal entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal tx: %w", err)
	}
	return nil
}

// ListDay returns the operator's entries for the given calendar day (local
// time), newest first.
func (j *Journal) ListDay(ctx context.Context, operatorID uuid.UUID, day time.Time) ([]Entry, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	query := `
		SELECT id, bill_id, operator_id, product_name, quantity, total, date
		FROM journal_entries
		WHERE operator_id = $1 AND date >= $2 AND date < $3
		ORDER BY date DESC
	`

	rows, err := j.db.QueryContext(ctx, query,
		operatorID.String(),
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id, billID, opID, qty, total, date string
		var e Entry
		if err := rows.Scan(&id, &billID, &opID, &e.ProductName, &qty, &total, &date); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad journal entry id: %w", err)
		}
		if e.BillID, err = uuid.Parse(billID); err != nil {
			return nil, fmt.Errorf("bad journal bill id: %w", err)
		}
		if e.OperatorID, err = uuid.Parse(opID); err != nil {
			return nil, fmt.Errorf("bad journal operator id: %w", err)
		}
		if e.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad journal quantity: %w", err)
		}
		if e.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("bad journal total: %w", err)
		}
		if e.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, fmt.Errorf("bad journal date: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/billing"
	sales "github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJournal(t *testing.T) *Journal {
	j, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, j.RunMigrations("./migrations"))
	t.Cleanup(func() { j.Close() })
	return j
}

func testBill(operatorID uuid.UUID, at time.Time) billing.Bill {
	billID := uuid.New()
	return billing.Bill{
		Key: billing.GroupedKey(billID),
		Lines: []sales.Sale{
			{
				ID: uuid.New(), ProductID: uuid.New(), ProductName: "Sharbati Wheat Atta",
				Quantity: decimal.NewFromInt(2), Total: decimal.NewFromInt(84),
				Date: at, OperatorID: operatorID, OperatorName: "Ravi",
				BillID: uuid.NullUUID{UUID: billID, Valid: true},
			},
			{
				ID: uuid.New(), ProductID: uuid.New(), ProductName: "Besan",
				Quantity: decimal.NewFromInt(1), Total: decimal.NewFromInt(80),
				Date: at, OperatorID: operatorID, OperatorName: "Ravi",
				BillID: uuid.NullUUID{UUID: billID, Valid: true},
			},
		},
	}
}

func TestRecord_And_ListDay(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	operator := uuid.New()
	now := time.Now()

	bill := testBill(operator, now)
	require.NoError(t, j.Record(ctx, operator, bill))

	entries, err := j.ListDay(ctx, operator, now)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, bill.Key.ID(), entries[0].BillID)
	assert.True(t, entries[0].Total.Add(entries[1].Total).Equal(decimal.NewFromInt(164)))
}

func TestListDay_FiltersByOperator(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	now := time.Now()
	op1, op2 := uuid.New(), uuid.New()

	require.NoError(t, j.Record(ctx, op1, testBill(op1, now)))

	entries, err := j.ListDay(ctx, op2, now)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListDay_FiltersByDay(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	operator := uuid.New()
	yesterday := time.Now().Add(-26 * time.Hour)

	require.NoError(t, j.Record(ctx, operator, testBill(operator, yesterday)))

	entries, err := j.ListDay(ctx, operator, time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = j.ListDay(ctx, operator, yesterday)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

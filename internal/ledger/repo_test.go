package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS ledger_transactions (
  id TEXT PRIMARY KEY,
  deposit_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  trading_account_id TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'deposit',
  status TEXT NOT NULL DEFAULT 'pending',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  credit_status TEXT NOT NULL DEFAULT 'pending',
  credit_attempted_at DATETIME,
  credited_at DATETIME,
  credited_by TEXT,
  credited_login INTEGER,
  comment TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newLedgerRow(depositID uuid.UUID) *models.LedgerTransaction {
	return &models.LedgerTransaction{
		ID:               uuid.New(),
		DepositID:        depositID,
		UserID:           uuid.New(),
		TradingAccountID: uuid.New(),
		Type:             "deposit",
		Status:           enums.LedgerStatusApproved,
		Amount:           decimal.RequireFromString("100.00"),
		Currency:         "USDT",
		CreditStatus:     enums.CreditStatusPending,
	}
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	depositID := uuid.New()
	first := newLedgerRow(depositID)
	require.NoError(t, repo.CreateIfAbsent(ctx, first))

	// Second create for the same deposit is swallowed by the unique key.
	dup := newLedgerRow(depositID)
	dup.Amount = decimal.RequireFromString("999.99")
	require.NoError(t, repo.CreateIfAbsent(ctx, dup))

	stored, err := repo.FindByDepositID(ctx, depositID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("100.00")))
}

func TestClaimCreditSingleWinner(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	depositID := uuid.New()
	require.NoError(t, repo.CreateIfAbsent(ctx, newLedgerRow(depositID)))

	now := time.Now().UTC()
	claimed, err := repo.ClaimCredit(ctx, depositID, now, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed, "first claim should win")

	claimed, err = repo.ClaimCredit(ctx, depositID, now.Add(time.Second), 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose while in_flight is fresh")
}

func TestClaimCreditReclaimsStaleInFlight(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	depositID := uuid.New()
	require.NoError(t, repo.CreateIfAbsent(ctx, newLedgerRow(depositID)))

	start := time.Now().UTC()
	claimed, err := repo.ClaimCredit(ctx, depositID, start, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	// Within the retry window the claim holds.
	claimed, err = repo.ClaimCredit(ctx, depositID, start.Add(time.Minute), 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	// After the window a stalled claim is taken over.
	claimed, err = repo.ClaimCredit(ctx, depositID, start.Add(6*time.Minute), 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMarkCreditedRequiresInFlight(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	depositID := uuid.New()
	require.NoError(t, repo.CreateIfAbsent(ctx, newLedgerRow(depositID)))

	now := time.Now().UTC()
	marked, err := repo.MarkCredited(ctx, depositID, "cregis-webhook", 100234, now)
	require.NoError(t, err)
	assert.False(t, marked, "cannot mark done without an in_flight claim")

	claimed, err := repo.ClaimCredit(ctx, depositID, now, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	marked, err = repo.MarkCredited(ctx, depositID, "cregis-webhook", 100234, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, marked)

	stored, err := repo.FindByDepositID(ctx, depositID)
	require.NoError(t, err)
	assert.Equal(t, enums.CreditStatusDone, stored.CreditStatus)
	assert.Equal(t, enums.LedgerStatusCompleted, stored.Status)
	require.NotNil(t, stored.CreditedBy)
	assert.Equal(t, "cregis-webhook", *stored.CreditedBy)
	require.NotNil(t, stored.CreditedLogin)
	assert.Equal(t, int64(100234), *stored.CreditedLogin)

	// Once done, the marker can never be claimed again.
	claimed, err = repo.ClaimCredit(ctx, depositID, now.Add(time.Hour), 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestListByUserID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		row := newLedgerRow(uuid.New())
		row.UserID = userID
		row.CreatedAt = time.Now().UTC().Add(time.Duration(-i) * time.Hour)
		require.NoError(t, repo.CreateIfAbsent(ctx, row))
	}

	rows, err := repo.ListByUserID(ctx, userID, 2, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	all, err := repo.ListByUserID(ctx, userID, 10, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

package deposits

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

func setupDepositsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS deposits (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  trading_account_id TEXT NOT NULL,
  order_id TEXT NOT NULL UNIQUE,
  cregis_id TEXT UNIQUE,
  state TEXT NOT NULL DEFAULT 'pending',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  paid_amount TEXT,
  paid_currency TEXT,
  chain TEXT,
  tx_hash TEXT,
  from_address TEXT,
  to_address TEXT,
  gateway_status TEXT,
  checkout_url TEXT,
  deposit_address TEXT,
  expires_at DATETIME,
  approved_at DATETIME,
  completed_at DATETIME,
  rejected_at DATETIME,
  reject_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newDeposit() *models.Deposit {
	cregisID := "cg-" + uuid.NewString()
	return &models.Deposit{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		TradingAccountID: uuid.New(),
		OrderID:          uuid.NewString(),
		CregisID:         &cregisID,
		State:            enums.DepositStatePending,
		Amount:           decimal.RequireFromString("100.00"),
		Currency:         "USDT",
	}
}

func TestFindByExternalIDs(t *testing.T) {
	db := setupDepositsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	deposit := newDeposit()
	require.NoError(t, repo.Create(ctx, deposit))

	byCregis, err := repo.FindByCregisID(ctx, *deposit.CregisID)
	require.NoError(t, err)
	assert.Equal(t, deposit.ID, byCregis.ID)

	byOrder, err := repo.FindByOrderID(ctx, deposit.OrderID)
	require.NoError(t, err)
	assert.Equal(t, deposit.ID, byOrder.ID)

	_, err = repo.FindByCregisID(ctx, "cg-unknown")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStateIfAppliesOnce(t *testing.T) {
	db := setupDepositsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	deposit := newDeposit()
	require.NoError(t, repo.Create(ctx, deposit))

	now := time.Now().UTC()
	updates := map[string]any{
		"state":       enums.DepositStateApproved,
		"approved_at": now,
		"updated_at":  now,
	}

	applied, err := repo.UpdateStateIf(ctx, deposit.ID, enums.DepositStatePending, updates)
	require.NoError(t, err)
	assert.True(t, applied, "first transition should apply")

	// A replayed transition from the same source state misses.
	applied, err = repo.UpdateStateIf(ctx, deposit.ID, enums.DepositStatePending, updates)
	require.NoError(t, err)
	assert.False(t, applied, "replay must not apply twice")

	stored, err := repo.FindByID(ctx, deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DepositStateApproved, stored.State)
	require.NotNil(t, stored.ApprovedAt)
}

func TestUpdateStateIfDoesNotLeaveTerminal(t *testing.T) {
	db := setupDepositsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	deposit := newDeposit()
	deposit.State = enums.DepositStateRejected
	require.NoError(t, repo.Create(ctx, deposit))

	applied, err := repo.UpdateStateIf(ctx, deposit.ID, enums.DepositStatePending, map[string]any{
		"state": enums.DepositStateApproved,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := repo.FindByID(ctx, deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DepositStateRejected, stored.State)
}

func TestListByUserIDOrdersAndLimits(t *testing.T) {
	db := setupDepositsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		d := newDeposit()
		d.UserID = userID
		d.CreatedAt = base.Add(time.Duration(-i) * time.Hour)
		require.NoError(t, repo.Create(ctx, d))
	}

	page, err := repo.ListByUserID(ctx, userID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt) || page[0].CreatedAt.Equal(page[1].CreatedAt))

	cutoff := base.Add(-30 * time.Minute)
	older, err := repo.ListByUserID(ctx, userID, 10, &cutoff)
	require.NoError(t, err)
	assert.Len(t, older, 2)
}

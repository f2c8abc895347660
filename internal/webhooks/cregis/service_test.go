package cregiswebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/internal/accounts"
	"github.com/apexmarkets/crm-backend/internal/deposits"
	"github.com/apexmarkets/crm-backend/internal/ledger"
	"github.com/apexmarkets/crm-backend/pkg/config"
	"github.com/apexmarkets/crm-backend/pkg/cregis"
	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

const testSecret = "callback-secret"

var loginSeq atomic.Int64

func nextLogin() int64 {
	return 700100 + loginSeq.Add(1)
}

func setupWebhookTestDB(t *testing.T) *gorm.DB {
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
);
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
);
CREATE TABLE IF NOT EXISTS trading_accounts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  login INTEGER NOT NULL UNIQUE,
  platform TEXT NOT NULL DEFAULT 'mt5',
  account_group TEXT NOT NULL,
  leverage INTEGER NOT NULL DEFAULT 100,
  currency TEXT NOT NULL DEFAULT 'USD',
  is_demo INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type creditCall struct {
	login   int64
	amount  decimal.Decimal
	comment string
}

type fakeCrediter struct {
	mu    sync.Mutex
	calls []creditCall
	errs  []error
}

func (f *fakeCrediter) Credit(_ context.Context, login int64, amount decimal.Decimal, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, creditCall{login: login, amount: amount, comment: comment})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeCrediter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGuardStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeGuardStore() *fakeGuardStore {
	return &fakeGuardStore{keys: map[string]bool{}}
}

func (f *fakeGuardStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeGuardStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeGuardStore) CallbackKey(parts ...string) string {
	return "apex:callback:" + strings.Join(parts, ":")
}

type webhookFixture struct {
	service  *Service
	db       *gorm.DB
	deposits deposits.Repository
	ledger   ledger.Repository
	crediter *fakeCrediter
	login    int64
	deposit  *models.Deposit
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	db := setupWebhookTestDB(t)
	depositsRepo := deposits.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	accountsRepo := accounts.NewRepository(db)
	crediter := &fakeCrediter{}

	guard, err := NewReplayGuard(newFakeGuardStore(), 10*time.Minute)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	service, err := NewService(ServiceParams{
		DepositsRepo: depositsRepo,
		LedgerRepo:   ledgerRepo,
		Accounts:     accountsRepo,
		Crediter:     crediter,
		Guard:        guard,
		Logger:       logg,
		Config: config.CregisConfig{
			APIKey:           testSecret,
			CreditRetryAfter: 5 * time.Minute,
		},
	})
	require.NoError(t, err)

	userID := uuid.New()
	account := &models.TradingAccount{
		ID:       uuid.New(),
		UserID:   userID,
		Login:    nextLogin(),
		Group:    "real\\standard",
		Leverage: 100,
		Currency: "USD",
		IsActive: true,
	}
	require.NoError(t, accountsRepo.Create(context.Background(), account))

	cregisID := "cg-" + uuid.NewString()
	deposit := &models.Deposit{
		ID:               uuid.New(),
		UserID:           userID,
		TradingAccountID: account.ID,
		OrderID:          uuid.NewString(),
		CregisID:         &cregisID,
		State:            enums.DepositStatePending,
		Amount:           decimal.RequireFromString("250.00"),
		Currency:         "USDT",
	}
	require.NoError(t, depositsRepo.Create(context.Background(), deposit))

	return &webhookFixture{
		service:  service,
		db:       db,
		deposits: depositsRepo,
		ledger:   ledgerRepo,
		crediter: crediter,
		login:    account.Login,
		deposit:  deposit,
	}
}

// seedDeposit creates another pending deposit with its own trading account,
// for scenarios that interleave callbacks across payments.
func (f *webhookFixture) seedDeposit(t *testing.T) (*models.Deposit, int64) {
	t.Helper()

	accountsRepo := accounts.NewRepository(f.db)
	userID := uuid.New()
	account := &models.TradingAccount{
		ID:       uuid.New(),
		UserID:   userID,
		Login:    nextLogin(),
		Group:    "real\\standard",
		Leverage: 100,
		Currency: "USD",
		IsActive: true,
	}
	require.NoError(t, accountsRepo.Create(context.Background(), account))

	cregisID := "cg-" + uuid.NewString()
	deposit := &models.Deposit{
		ID:               uuid.New(),
		UserID:           userID,
		TradingAccountID: account.ID,
		OrderID:          uuid.NewString(),
		CregisID:         &cregisID,
		State:            enums.DepositStatePending,
		Amount:           decimal.RequireFromString("250.00"),
		Currency:         "USDT",
	}
	require.NoError(t, f.deposits.Create(context.Background(), deposit))
	return deposit, account.Login
}

func (f *webhookFixture) callbackBody(t *testing.T, status string, extra map[string]string) []byte {
	t.Helper()
	return f.bodyFor(t, f.deposit, status, extra)
}

func (f *webhookFixture) bodyFor(t *testing.T, deposit *models.Deposit, status string, extra map[string]string) []byte {
	t.Helper()

	params := map[string]string{
		"cregis_id":      *deposit.CregisID,
		"third_party_id": deposit.OrderID,
		"status":         status,
		"pay_amount":     "250.00",
		"pay_currency":   "USDT",
	}
	for key, value := range extra {
		if value == "" {
			delete(params, key)
			continue
		}
		params[key] = value
	}
	params[cregis.SignField] = cregis.Sign(params, testSecret)

	body, err := json.Marshal(params)
	require.NoError(t, err)
	return body
}

func (f *webhookFixture) reloadDeposit(t *testing.T) *models.Deposit {
	t.Helper()
	deposit, err := f.deposits.FindByID(context.Background(), f.deposit.ID)
	require.NoError(t, err)
	return deposit
}

func (f *webhookFixture) reloadLedger(t *testing.T) *models.LedgerTransaction {
	t.Helper()
	txn, err := f.ledger.FindByDepositID(context.Background(), f.deposit.ID)
	require.NoError(t, err)
	return txn
}

func TestHandleCallbackPaidCreditsAndCompletes(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "paid", map[string]string{
		"chain":        "TRON",
		"tx_id":        "0xabc123",
		"from_address": "TSenderAddr1",
		"to_address":   "TDepositAddr1",
	}))
	require.NoError(t, err)
	assert.Equal(t, resultCompleted, result.Status)
	assert.Equal(t, OutcomeSuccess, result.Outcome)

	deposit := f.reloadDeposit(t)
	assert.Equal(t, enums.DepositStateCompleted, deposit.State)
	require.NotNil(t, deposit.ApprovedAt)
	require.NotNil(t, deposit.CompletedAt)
	require.NotNil(t, deposit.Chain)
	assert.Equal(t, "TRON", *deposit.Chain)
	require.NotNil(t, deposit.TxHash)
	assert.Equal(t, "0xabc123", *deposit.TxHash)
	require.NotNil(t, deposit.FromAddress)
	assert.Equal(t, "TSenderAddr1", *deposit.FromAddress)
	require.NotNil(t, deposit.ToAddress)
	assert.Equal(t, "TDepositAddr1", *deposit.ToAddress)

	txn := f.reloadLedger(t)
	assert.Equal(t, enums.CreditStatusDone, txn.CreditStatus)
	assert.Equal(t, enums.LedgerStatusCompleted, txn.Status)
	require.NotNil(t, txn.CreditedBy)
	assert.Equal(t, creditedByMarker, *txn.CreditedBy)
	require.NotNil(t, txn.CreditedLogin)
	assert.Equal(t, f.login, *txn.CreditedLogin)

	require.Equal(t, 1, f.crediter.callCount())
	call := f.crediter.calls[0]
	assert.Equal(t, f.login, call.login)
	assert.True(t, call.amount.Equal(decimal.RequireFromString("250.00")))
	assert.Contains(t, call.comment, f.deposit.ID.String())
}

func TestHandleCallbackReplayCreditsOnce(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	body := f.callbackBody(t, "paid", nil)

	first, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	require.Equal(t, resultCompleted, first.Status)

	second, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultDuplicate, second.Status)

	assert.Equal(t, 1, f.crediter.callCount())
	assert.Equal(t, enums.DepositStateCompleted, f.reloadDeposit(t).State)
}

func TestHandleCallbackReplayWithoutGuardStillCreditsOnce(t *testing.T) {
	f := newWebhookFixture(t)
	f.service.guard = nil
	ctx := context.Background()
	body := f.callbackBody(t, "paid", nil)

	first, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	require.Equal(t, resultCompleted, first.Status)

	second, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultDuplicate, second.Status)
	assert.Equal(t, 1, f.crediter.callCount())
}

// flakyDepositsRepo fails UpdateStateIf a fixed number of times before
// delegating, standing in for a database hiccup mid-callback.
type flakyDepositsRepo struct {
	deposits.Repository
	mu       sync.Mutex
	failures int
}

func (r *flakyDepositsRepo) UpdateStateIf(ctx context.Context, id uuid.UUID, from enums.DepositState, updates map[string]any) (bool, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return false, errors.New("connection reset by peer")
	}
	r.mu.Unlock()
	return r.Repository.UpdateStateIf(ctx, id, from, updates)
}

func TestHandleCallbackTransientErrorDoesNotPoisonReplayGuard(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	f.service.deposits = &flakyDepositsRepo{Repository: f.deposits, failures: 1}
	body := f.callbackBody(t, "paid", nil)

	_, err := f.service.HandleCallback(ctx, body)
	require.Error(t, err)
	assert.Equal(t, enums.DepositStatePending, f.reloadDeposit(t).State)
	assert.Equal(t, 0, f.crediter.callCount())

	// The gateway redelivers after the non-2xx answer. Nothing was applied,
	// so the redelivery must reach the database, not be answered as a
	// duplicate from the dedupe mark.
	result, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultCompleted, result.Status)
	assert.Equal(t, enums.DepositStateCompleted, f.reloadDeposit(t).State)
	assert.Equal(t, 1, f.crediter.callCount())
}

func TestHandleCallbackConcurrentDistinctPayments(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// Serialize sqlite access so the race happens in the engine, not in the
	// shared-cache driver.
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	second, secondLogin := f.seedDeposit(t)
	bodies := [][]byte{
		f.callbackBody(t, "paid", nil),
		f.bodyFor(t, second, "paid", nil),
	}

	var wg sync.WaitGroup
	results := make([]*Result, len(bodies))
	errs := make([]error, len(bodies))
	for i, body := range bodies {
		wg.Add(1)
		go func(i int, body []byte) {
			defer wg.Done()
			results[i], errs[i] = f.service.HandleCallback(ctx, body)
		}(i, body)
	}
	wg.Wait()

	for i := range bodies {
		require.NoError(t, errs[i])
		assert.Equal(t, resultCompleted, results[i].Status)
	}
	assert.Equal(t, enums.DepositStateCompleted, f.reloadDeposit(t).State)
	reloaded, err := f.deposits.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DepositStateCompleted, reloaded.State)

	require.Equal(t, 2, f.crediter.callCount())
	credits := map[int64]int{}
	for _, call := range f.crediter.calls {
		credits[call.login]++
	}
	assert.Equal(t, 1, credits[f.login])
	assert.Equal(t, 1, credits[secondLogin])
}

func TestHandleCallbackRacingDeliveriesCreditOnce(t *testing.T) {
	f := newWebhookFixture(t)
	f.service.guard = nil
	ctx := context.Background()

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	body := f.callbackBody(t, "paid", nil)

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.HandleCallback(ctx, body)
		}(i)
	}
	wg.Wait()

	// Exactly one delivery wins the claim and completes; the other must
	// acknowledge without a second credit.
	completed := 0
	for i := range results {
		require.NoError(t, errs[i])
		switch results[i].Status {
		case resultCompleted:
			completed++
		case resultDuplicate, resultCreditInFlight:
		default:
			t.Fatalf("unexpected result %q", results[i].Status)
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, f.crediter.callCount())
	assert.Equal(t, enums.DepositStateCompleted, f.reloadDeposit(t).State)
	assert.Equal(t, enums.CreditStatusDone, f.reloadLedger(t).CreditStatus)
}

func TestHandleCallbackCreditsReportedPaidAmount(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// The chain settled less than the client requested; the ledger row and
	// the platform credit follow the settled amount.
	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "paid", map[string]string{
		"pay_amount": "240.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, resultCompleted, result.Status)

	deposit := f.reloadDeposit(t)
	require.NotNil(t, deposit.PaidAmount)
	assert.True(t, deposit.PaidAmount.Equal(decimal.RequireFromString("240.00")))

	txn := f.reloadLedger(t)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("240.00")))

	require.Equal(t, 1, f.crediter.callCount())
	assert.True(t, f.crediter.calls[0].amount.Equal(decimal.RequireFromString("240.00")))
}

func TestHandleCallbackCreditFallsBackToRequestedAmount(t *testing.T) {
	f := newWebhookFixture(t)

	result, err := f.service.HandleCallback(context.Background(), f.callbackBody(t, "paid", map[string]string{
		"pay_amount":   "",
		"pay_currency": "",
	}))
	require.NoError(t, err)
	assert.Equal(t, resultCompleted, result.Status)

	require.Equal(t, 1, f.crediter.callCount())
	assert.True(t, f.crediter.calls[0].amount.Equal(decimal.RequireFromString("250.00")))
	assert.True(t, f.reloadLedger(t).Amount.Equal(decimal.RequireFromString("250.00")))
}

func TestHandleCallbackFailureAfterCompletionIsIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.service.HandleCallback(ctx, f.callbackBody(t, "paid", nil))
	require.NoError(t, err)

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "failed", nil))
	require.NoError(t, err)
	assert.Equal(t, resultConflict, result.Status)

	deposit := f.reloadDeposit(t)
	assert.Equal(t, enums.DepositStateCompleted, deposit.State)
	assert.Nil(t, deposit.RejectedAt)
}

func TestHandleCallbackFailureRejectsPendingDeposit(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "expired", nil))
	require.NoError(t, err)
	assert.Equal(t, resultRejected, result.Status)
	assert.Equal(t, OutcomeFailure, result.Outcome)

	deposit := f.reloadDeposit(t)
	assert.Equal(t, enums.DepositStateRejected, deposit.State)
	require.NotNil(t, deposit.RejectReason)
	assert.Equal(t, "expired", *deposit.RejectReason)
	require.NotNil(t, deposit.RejectedAt)
	assert.Equal(t, 0, f.crediter.callCount())
}

func TestHandleCallbackSuccessAfterRejectionNeverCredits(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.service.HandleCallback(ctx, f.callbackBody(t, "cancelled", nil))
	require.NoError(t, err)

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "paid", nil))
	require.NoError(t, err)
	assert.Equal(t, resultConflict, result.Status)

	assert.Equal(t, enums.DepositStateRejected, f.reloadDeposit(t).State)
	assert.Equal(t, 0, f.crediter.callCount())
}

func TestHandleCallbackCreditFailureRetriesOnReplay(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	f.crediter.errs = []error{
		pkgerrors.New(pkgerrors.CodeDependency, "mt5 unavailable"),
	}
	body := f.callbackBody(t, "paid", nil)

	first, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultCreditDeferred, first.Status)

	deposit := f.reloadDeposit(t)
	assert.Equal(t, enums.DepositStateApproved, deposit.State)
	txn := f.reloadLedger(t)
	assert.Equal(t, enums.CreditStatusInFlight, txn.CreditStatus)

	// Backdate the claim past the retry window so the replay can reclaim it.
	stale := time.Now().UTC().Add(-6 * time.Minute)
	require.NoError(t, f.db.Model(&models.LedgerTransaction{}).
		Where("deposit_id = ?", f.deposit.ID).
		Update("credit_attempted_at", stale).Error)

	second, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultCompleted, second.Status)

	assert.Equal(t, 2, f.crediter.callCount())
	assert.Equal(t, enums.DepositStateCompleted, f.reloadDeposit(t).State)
	assert.Equal(t, enums.CreditStatusDone, f.reloadLedger(t).CreditStatus)
}

func TestHandleCallbackFreshInFlightClaimIsNotRetried(t *testing.T) {
	f := newWebhookFixture(t)
	f.service.guard = nil
	ctx := context.Background()
	f.crediter.errs = []error{
		pkgerrors.New(pkgerrors.CodeDependency, "mt5 unavailable"),
	}
	body := f.callbackBody(t, "paid", nil)

	first, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	require.Equal(t, resultCreditDeferred, first.Status)

	second, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultCreditInFlight, second.Status)
	assert.Equal(t, 1, f.crediter.callCount())
}

func TestHandleCallbackPlatformRefusalBlocksCompletion(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	f.crediter.errs = []error{
		pkgerrors.New(pkgerrors.CodeStateConflict, "account disabled"),
	}

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "paid", nil))
	require.NoError(t, err)
	assert.Equal(t, resultCreditBlocked, result.Status)

	deposit := f.reloadDeposit(t)
	assert.Equal(t, enums.DepositStateApproved, deposit.State)
	assert.Nil(t, deposit.CompletedAt)
	txn := f.reloadLedger(t)
	assert.Equal(t, enums.CreditStatusInFlight, txn.CreditStatus)
	assert.Nil(t, txn.CreditedAt)
}

func TestHandleCallbackUnknownPaymentIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	params := map[string]string{
		"cregis_id":      "cg-" + uuid.NewString(),
		"third_party_id": uuid.NewString(),
		"status":         "paid",
	}
	params[cregis.SignField] = cregis.Sign(params, testSecret)
	body, err := json.Marshal(params)
	require.NoError(t, err)

	result, err := f.service.HandleCallback(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, resultUnknownPayment, result.Status)
	assert.Equal(t, 0, f.crediter.callCount())
}

func TestHandleCallbackLookupFallsBackToOrderID(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// Simulate a record created before the gateway assigned its id.
	require.NoError(t, f.db.Model(&models.Deposit{}).
		Where("id = ?", f.deposit.ID).
		Update("cregis_id", nil).Error)

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "paid", nil))
	require.NoError(t, err)
	assert.Equal(t, resultCompleted, result.Status)

	deposit := f.reloadDeposit(t)
	require.NotNil(t, deposit.CregisID)
	assert.Equal(t, *f.deposit.CregisID, *deposit.CregisID)
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	params := map[string]string{
		"cregis_id": *f.deposit.CregisID,
		"status":    "paid",
		"sign":      "0000000000000000000000000000dead",
	}
	body, err := json.Marshal(params)
	require.NoError(t, err)

	_, err = f.service.HandleCallback(ctx, body)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())

	assert.Equal(t, enums.DepositStatePending, f.reloadDeposit(t).State)
	assert.Equal(t, 0, f.crediter.callCount())
}

func TestHandleCallbackRejectsMalformedBody(t *testing.T) {
	f := newWebhookFixture(t)

	_, err := f.service.HandleCallback(context.Background(), []byte("{not json"))
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
}

func TestHandleCallbackUnknownStatusLeavesDepositUntouched(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	result, err := f.service.HandleCallback(ctx, f.callbackBody(t, "processing", nil))
	require.NoError(t, err)
	assert.Equal(t, resultIgnored, result.Status)
	assert.Equal(t, OutcomeIndeterminate, result.Outcome)

	assert.Equal(t, enums.DepositStatePending, f.reloadDeposit(t).State)
	assert.Equal(t, 0, f.crediter.callCount())
}

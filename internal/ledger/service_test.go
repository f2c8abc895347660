package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	"github.com/apexmarkets/crm-backend/pkg/pagination"
)

type fakeRepository struct {
	listFn func(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.LedgerTransaction, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateIfAbsent(ctx context.Context, txn *models.LedgerTransaction) error {
	return nil
}

func (f *fakeRepository) FindByDepositID(ctx context.Context, depositID uuid.UUID) (*models.LedgerTransaction, error) {
	return &models.LedgerTransaction{DepositID: depositID}, nil
}

func (f *fakeRepository) ClaimCredit(ctx context.Context, depositID uuid.UUID, now time.Time, retryAfter time.Duration) (bool, error) {
	return false, nil
}

func (f *fakeRepository) MarkCredited(ctx context.Context, depositID uuid.UUID, creditedBy string, login int64, now time.Time) (bool, error) {
	return false, nil
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, depositID uuid.UUID, status enums.LedgerStatus) error {
	return nil
}

func (f *fakeRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.LedgerTransaction, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, limit, before)
	}
	return nil, nil
}

func TestService_ListByUser(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var gotLimit int
	repo.listFn = func(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.LedgerTransaction, error) {
		gotLimit = limit
		return []models.LedgerTransaction{{UserID: userID}}, nil
	}

	rows, err := svc.ListByUser(context.Background(), uuid.New(), pagination.Params{})
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if gotLimit != pagination.DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", pagination.DefaultLimit, gotLimit)
	}

	if _, err := svc.ListByUser(context.Background(), uuid.Nil, pagination.Params{}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestService_ListByUserCursor(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	anchor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotBefore *time.Time
	repo.listFn = func(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.LedgerTransaction, error) {
		gotBefore = before
		return nil, nil
	}

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: anchor})
	if _, err := svc.ListByUser(context.Background(), uuid.New(), pagination.Params{Cursor: cursor}); err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if gotBefore == nil || !gotBefore.Equal(anchor) {
		t.Fatalf("expected cursor anchor %v to reach the repository, got %v", anchor, gotBefore)
	}

	if _, err := svc.ListByUser(context.Background(), uuid.New(), pagination.Params{Cursor: "!!"}); err == nil {
		t.Fatal("expected error for an undecodable cursor")
	}
}

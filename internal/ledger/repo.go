package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// Repository manages persistence for ledger transactions. The deposit_id
// unique key makes CreateIfAbsent idempotent, and ClaimCredit is the
// conditional update that serializes crediting across replicas.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIfAbsent(ctx context.Context, txn *models.LedgerTransaction) error
	FindByDepositID(ctx context.Context, depositID uuid.UUID) (*models.LedgerTransaction, error)
	ClaimCredit(ctx context.Context, depositID uuid.UUID, now time.Time, retryAfter time.Duration) (bool, error)
	MarkCredited(ctx context.Context, depositID uuid.UUID, creditedBy string, login int64, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, depositID uuid.UUID, status enums.LedgerStatus) error
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.LedgerTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIfAbsent(ctx context.Context, txn *models.LedgerTransaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "deposit_id"}},
			DoNothing: true,
		}).
		Create(txn).Error
}

func (r *repository) FindByDepositID(ctx context.Context, depositID uuid.UUID) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Where("deposit_id = ?", depositID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ClaimCredit flips the crediting marker pending -> in_flight. A stale
// in_flight claim (attempted before now-retryAfter) is reclaimable so a
// crashed worker does not strand the deposit forever.
func (r *repository) ClaimCredit(ctx context.Context, depositID uuid.UUID, now time.Time, retryAfter time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("deposit_id = ? AND (credit_status = ? OR (credit_status = ? AND credit_attempted_at < ?))",
			depositID, enums.CreditStatusPending, enums.CreditStatusInFlight, now.Add(-retryAfter)).
		Updates(map[string]any{
			"credit_status":       enums.CreditStatusInFlight,
			"credit_attempted_at": now,
			"updated_at":          now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCredited finalizes the marker in_flight -> done and completes the row.
func (r *repository) MarkCredited(ctx context.Context, depositID uuid.UUID, creditedBy string, login int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("deposit_id = ? AND credit_status = ?", depositID, enums.CreditStatusInFlight).
		Updates(map[string]any{
			"credit_status":  enums.CreditStatusDone,
			"status":         enums.LedgerStatusCompleted,
			"credited_at":    now,
			"credited_by":    creditedBy,
			"credited_login": login,
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, depositID uuid.UUID, status enums.LedgerStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("deposit_id = ?", depositID).
		Update("status", status).Error
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.LedgerTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var txns []models.LedgerTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

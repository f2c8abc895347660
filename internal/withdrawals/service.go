package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/pagination"
)

// accountFinder scopes a withdrawal to one of the caller's trading accounts.
type accountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error)
}

// methodFinder verifies the payout destination before accepting a request.
type methodFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
}

// Service exposes the client withdrawal lifecycle. Payouts themselves run
// through back office; this service only records and cancels requests.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Withdrawal, error)
	Get(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) (*models.Withdrawal, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, error)
	Cancel(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) (*models.Withdrawal, error)
}

// CreateInput carries a new withdrawal request.
type CreateInput struct {
	TradingAccountID uuid.UUID
	PaymentMethodID  uuid.UUID
	Amount           decimal.Decimal
	Currency         string
}

type service struct {
	repo     Repository
	accounts accountFinder
	methods  methodFinder
}

// NewService wires the withdrawals service.
func NewService(repo Repository, accounts accountFinder, methods methodFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account finder required")
	}
	if methods == nil {
		return nil, fmt.Errorf("payment method finder required")
	}
	return &service{repo: repo, accounts: accounts, methods: methods}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Withdrawal, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	account, err := s.accounts.FindByID(ctx, input.TradingAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trading account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading trading account")
	}
	if account.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "trading account belongs to another user")
	}

	method, err := s.methods.FindByID(ctx, input.PaymentMethodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment method")
	}
	if method.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment method belongs to another user")
	}
	if method.Status != enums.PaymentMethodStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment method is not approved")
	}

	currency := input.Currency
	if currency == "" {
		currency = account.Currency
	}

	withdrawal := &models.Withdrawal{
		UserID:           userID,
		TradingAccountID: account.ID,
		PaymentMethodID:  method.ID,
		Status:           enums.WithdrawalStatusPending,
		Amount:           input.Amount,
		Currency:         currency,
	}
	if err := s.repo.Create(ctx, withdrawal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing withdrawal")
	}
	return withdrawal, nil
}

func (s *service) Get(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) (*models.Withdrawal, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id is required")
	}
	withdrawal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading withdrawal")
	}
	if !isAdmin && withdrawal.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal belongs to another user")
	}
	return withdrawal, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var before *time.Time
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		before = &cursor.CreatedAt
	}

	return s.repo.ListByUserID(ctx, userID, limit, before)
}

// Cancel is client-initiated and only valid while the request is pending; a
// reviewed withdrawal has to be reversed by staff instead.
func (s *service) Cancel(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) (*models.Withdrawal, error) {
	withdrawal, err := s.Get(ctx, id, actorUserID, isAdmin)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	applied, err := s.repo.UpdateStatusIf(ctx, withdrawal.ID, enums.WithdrawalStatusPending, map[string]any{
		"status":     enums.WithdrawalStatusCancelled,
		"updated_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling withdrawal")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal is no longer pending")
	}

	return s.repo.FindByID(ctx, withdrawal.ID)
}

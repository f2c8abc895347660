package deposits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/internal/accounts"
	"github.com/apexmarkets/crm-backend/pkg/cregis"
	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
	"github.com/apexmarkets/crm-backend/pkg/pagination"
)

// CheckoutCreator is the outbound gateway surface the deposit flow needs.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, params cregis.CheckoutParams) (*cregis.Checkout, error)
}

// Service defines deposit lifecycle operations for the CRM surface. The
// webhook engine owns state transitions; this service owns creation and reads.
type Service interface {
	Create(ctx context.Context, input CreateDepositInput) (*models.Deposit, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Deposit, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Deposit, error)
}

// Actor identifies who is asking, for owner scoping.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CreateDepositInput captures the request to open a new deposit.
type CreateDepositInput struct {
	UserID           uuid.UUID
	TradingAccountID uuid.UUID
	Amount           decimal.Decimal
	Currency         string
}

type service struct {
	repo     Repository
	accounts accounts.Repository
	gateway  CheckoutCreator
	logger   *logger.Logger
}

// NewService wires the deposit service with its dependencies.
func NewService(repo Repository, accountsRepo accounts.Repository, gateway CheckoutCreator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deposits repository required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("checkout creator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, accounts: accountsRepo, gateway: gateway, logger: logg}, nil
}

// Create opens a payment order with the gateway and stores the pending
// deposit keyed by both our order id and the gateway's id.
func (s *service) Create(ctx context.Context, input CreateDepositInput) (*models.Deposit, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.TradingAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trading account id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	account, err := s.accounts.FindByID(ctx, input.TradingAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trading account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading trading account")
	}
	if account.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "trading account does not belong to the user")
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "trading account is inactive")
	}

	orderID := uuid.NewString()
	checkout, err := s.gateway.CreateCheckout(ctx, cregis.CheckoutParams{
		OrderID:       orderID,
		OrderAmount:   input.Amount.String(),
		OrderCurrency: input.Currency,
		PayerID:       input.UserID.String(),
	})
	if err != nil {
		return nil, err
	}

	deposit := &models.Deposit{
		UserID:           input.UserID,
		TradingAccountID: input.TradingAccountID,
		OrderID:          orderID,
		State:            enums.DepositStatePending,
		Amount:           input.Amount,
		Currency:         input.Currency,
	}
	if checkout.CregisID != "" {
		deposit.CregisID = &checkout.CregisID
	}
	if checkout.CheckoutURL != "" {
		deposit.CheckoutURL = &checkout.CheckoutURL
	}
	if len(checkout.PaymentInfo) > 0 {
		info := checkout.PaymentInfo[0]
		if info.PaymentAddress != "" {
			deposit.DepositAddress = &info.PaymentAddress
		}
		if info.Chain != "" {
			deposit.Chain = &info.Chain
		}
	}
	if checkout.ExpireTime > 0 {
		expires := time.UnixMilli(checkout.ExpireTime).UTC()
		deposit.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, deposit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing deposit")
	}

	s.logger.Info(s.logger.WithDepositID(ctx, deposit.ID.String()), "deposit created")
	return deposit, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Deposit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit id is required")
	}

	deposit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading deposit")
	}
	if !actor.IsAdmin && deposit.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "deposit belongs to another user")
	}
	return deposit, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Deposit, error) {
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

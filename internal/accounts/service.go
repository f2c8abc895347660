package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db"
	"github.com/apexmarkets/crm-backend/pkg/db/models"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
)

// Service defines trading account operations for the CRM surface.
type Service interface {
	Create(ctx context.Context, input CreateAccountInput) (*models.TradingAccount, error)
	Get(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) (*models.TradingAccount, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.TradingAccount, error)
}

// CreateAccountInput captures the request to register an MT5 account.
type CreateAccountInput struct {
	UserID   uuid.UUID
	Login    int64
	Group    string
	Leverage int
	Currency string
	IsDemo   bool
}

type service struct {
	repo Repository
}

// NewService wires the trading account service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateAccountInput) (*models.TradingAccount, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Login <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "login must be positive")
	}
	if input.Group == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account group is required")
	}

	account := &models.TradingAccount{
		UserID:   input.UserID,
		Login:    input.Login,
		Platform: "mt5",
		Group:    input.Group,
		Leverage: input.Leverage,
		Currency: input.Currency,
		IsDemo:   input.IsDemo,
		IsActive: true,
	}
	if account.Leverage <= 0 {
		account.Leverage = 100
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "login already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing trading account")
	}
	return account, nil
}

func (s *service) Get(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) (*models.TradingAccount, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trading account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading trading account")
	}
	if !isAdmin && account.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "trading account belongs to another user")
	}
	return account, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.TradingAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

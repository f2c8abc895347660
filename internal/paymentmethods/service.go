package paymentmethods

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
)

// Service exposes payout destination management for clients. New methods
// start pending and need a staff review before withdrawals may use them.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.PaymentMethod, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	Delete(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) error
}

// CreateInput carries a new crypto payout address.
type CreateInput struct {
	Currency string
	Chain    *string
	Address  string
	Label    *string
}

type service struct {
	repo Repository
}

// NewService wires the payment methods service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment methods repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.PaymentMethod, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	method := &models.PaymentMethod{
		UserID:   userID,
		Status:   enums.PaymentMethodStatusPending,
		Kind:     "crypto",
		Currency: currency,
		Chain:    input.Chain,
		Address:  address,
		Label:    input.Label,
	}
	if err := s.repo.Create(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing payment method")
	}
	return method, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

func (s *service) Delete(ctx context.Context, id, actorUserID uuid.UUID, isAdmin bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required")
	}

	method, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment method")
	}
	if !isAdmin && method.UserID != actorUserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment method belongs to another user")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting payment method")
	}
	return nil
}

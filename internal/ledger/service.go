package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/pagination"
)

// Service exposes the read path over ledger transactions. Writes go through
// Repository directly: the reconciliation engine needs the CAS primitives,
// not a service facade.
type Service interface {
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerTransaction, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerTransaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var before *time.Time
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		before = &cursor.CreatedAt
	}

	return s.repo.ListByUserID(ctx, userID, limit, before)
}

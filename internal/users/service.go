package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/pagination"
)

// Service exposes the profile surface and the admin listing.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.User, error)
	List(ctx context.Context, params pagination.Params) ([]models.User, string, error)
}

// UpdateProfileInput carries the mutable profile fields. Nil means leave
// unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Country   *string
}

type service struct {
	repo Repository
}

// NewService wires the users service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name cannot be blank")
		}
		user.FirstName = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "last name cannot be blank")
		}
		user.LastName = name
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.Country != nil {
		user.Country = input.Country
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating user")
	}
	return user, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.User, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	var before *time.Time
	if cursor != nil {
		before = &cursor.CreatedAt
	}

	users, err := s.repo.List(ctx, pagination.LimitWithBuffer(limit), before)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing users")
	}

	next := ""
	if len(users) > limit {
		users = users[:limit]
		last := users[len(users)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return users, next, nil
}

package kyc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
)

// Service exposes verification status reads and document submission.
// Review decisions are a back-office concern and go straight through the
// repository.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.KYCProfile, error)
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*models.KYCProfile, error)
}

// SubmitInput carries the document references a client submits. Storage of
// the documents themselves happens elsewhere; only references are kept.
type SubmitInput struct {
	DocumentType   string
	DocumentNumber string
	DocumentURL    *string
}

type service struct {
	repo Repository
}

// NewService wires the KYC service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("kyc repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the profile, synthesizing a pending one for users who never
// submitted so the client UI always has a status to show.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.KYCProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.KYCProfile{UserID: userID, Status: enums.KYCStatusPending}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading kyc profile")
	}
	return profile, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*models.KYCProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	docType := strings.TrimSpace(input.DocumentType)
	docNumber := strings.TrimSpace(input.DocumentNumber)
	if docType == "" || docNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document type and number are required")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err == nil && existing.Status == enums.KYCStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "profile is already verified")
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading kyc profile")
	}

	now := time.Now().UTC()
	profile := &models.KYCProfile{
		UserID:         userID,
		Status:         enums.KYCStatusSubmitted,
		DocumentType:   &docType,
		DocumentNumber: &docNumber,
		DocumentURL:    input.DocumentURL,
		SubmittedAt:    &now,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing kyc profile")
	}
	return s.Get(ctx, userID)
}

package authsvc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/internal/users"
	"github.com/apexmarkets/crm-backend/pkg/auth"
	"github.com/apexmarkets/crm-backend/pkg/config"
	"github.com/apexmarkets/crm-backend/pkg/db"
	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/security"
)

// refreshTokenStore is the Redis surface the session lifecycle needs.
type refreshTokenStore interface {
	StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	RevokeRefreshToken(ctx context.Context, userID string) error
}

// kycStatusFinder lets minted tokens carry the caller's verification status.
type kycStatusFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCProfile, error)
}

// TokenPair is what login and refresh hand back to the transport layer.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RegisterInput carries a new client signup.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Country   *string
}

// Service owns the session lifecycle: register, login, refresh, logout.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

type ServiceParams struct {
	UsersRepo users.Repository
	Sessions  refreshTokenStore
	KYC       kycStatusFinder
	JWT       config.JWTConfig
	Password  config.PasswordConfig
}

type service struct {
	usersRepo users.Repository
	sessions  refreshTokenStore
	kyc       kycStatusFinder
	jwtCfg    config.JWTConfig
	pwCfg     config.PasswordConfig
}

// NewService wires the auth service. KYC is optional; tokens minted without
// it simply omit the verification claim.
func NewService(params ServiceParams) (Service, error) {
	if params.UsersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		usersRepo: params.UsersRepo,
		sessions:  params.Sessions,
		kyc:       params.KYC,
		jwtCfg:    params.JWT,
		pwCfg:     params.Password,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < s.pwCfg.MinPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", s.pwCfg.MinPasswordLength))
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Country:      input.Country,
		Role:         enums.UserRoleClient,
		IsActive:     true,
	}
	if err := s.usersRepo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing user")
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.usersRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	if err := s.usersRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		// Last-login is informational; a failed stamp must not fail the login.
		user.LastLoginAt = nil
	} else {
		user.LastLoginAt = &now
	}
	return user, pair, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := splitRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	stored, err := s.sessions.GetRefreshToken(ctx, userID.String())
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}
	if stored != refreshToken {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}

	user, err := s.usersRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.sessions.RevokeRefreshToken(ctx, userID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking session")
	}
	return nil
}

// issueTokens mints a fresh access token and rotates the refresh token. Only
// one refresh token per user exists at a time; a new login invalidates the
// previous session.
func (s *service) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	var kycStatus *enums.KYCStatus
	if s.kyc != nil {
		if profile, err := s.kyc.FindByUserID(ctx, user.ID); err == nil {
			kycStatus = &profile.Status
		}
	}

	now := time.Now().UTC()
	access, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		UserID:    user.ID,
		Role:      user.Role,
		KYCStatus: kycStatus,
		JTI:       uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	refresh, err := newRefreshToken(user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting refresh token")
	}
	if err := s.sessions.StoreRefreshToken(ctx, user.ID.String(), refresh, s.jwtCfg.RefreshTokenTTL()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing session")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtCfg.ExpirationMinutes) * 60,
	}, nil
}

// Refresh tokens are opaque: "<user id>.<random hex>". The user id prefix
// locates the stored copy; the random suffix is the secret compared against
// it.
func newRefreshToken(userID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return userID.String() + "." + hex.EncodeToString(buf), nil
}

func splitRefreshToken(token string) (uuid.UUID, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	return userID, nil
}

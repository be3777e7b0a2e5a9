package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yukikurage/field-report-api/internal/constants"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = fmt.Errorf("%w: email already registered", apierrors.ErrConflict)
	ErrInvalidEmail         = fmt.Errorf("%w: invalid email address", apierrors.ErrValidation)
	ErrNameRequired         = fmt.Errorf("%w: name is required", apierrors.ErrValidation)
	ErrPasswordTooShort     = fmt.Errorf("%w: password must be at least %d characters", apierrors.ErrValidation, constants.MinPasswordLength)
	ErrInvalidInviteCode    = fmt.Errorf("%w: invalid invite code", apierrors.ErrValidation)
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = fmt.Errorf("%w: user not found", apierrors.ErrNotFound)
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(store *repository.Store, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:  store,
		logger: logger,
	}
}

// SignupInput represents the required information for a technician to join a tenant.
type SignupInput struct {
	InviteCode string
	Email      string
	Name       string
	Password   string
}

// Signup creates a technician in the tenant identified by the invite code.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	email, name, hash, err := prepareAccount(input.Email, input.Name, input.Password)
	if err != nil {
		return nil, err
	}

	tenant, err := s.store.Tenants().FindByInviteCode(ctx, utils.NormalizeInviteCode(input.InviteCode))
	if err != nil {
		return nil, lookupError("find tenant by invite code", err, ErrInvalidInviteCode)
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	user := &models.User{
		TenantID:     tenant.ID,
		Email:        email,
		Name:         name,
		Role:         models.RoleTechnician,
		PasswordHash: hash,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, storageError("create user", err)
	}

	s.logger.Info("technician signed up", zap.Uint64("tenant_id", tenant.ID), zap.Uint64("user_id", user.ID))
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageError("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("find user", err, ErrUserNotFound)
	}
	return user, nil
}

// ResolveActor loads the session user and refuses users of inactive tenants.
func (s *AuthService) ResolveActor(ctx context.Context, userID uint64) (Actor, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	tenant, err := s.store.Tenants().FindByID(ctx, user.TenantID)
	if err != nil {
		return Actor{}, lookupError("find tenant", err, ErrTenantNotFound)
	}
	if !tenant.IsActive {
		return Actor{}, ErrTenantInactive
	}
	return ActorFromUser(user), nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.store.Users().FindByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return storageError("check email", err)
	}
	return nil
}

// prepareAccount validates new account fields and hashes the password.
func prepareAccount(rawEmail, rawName, password string) (email, name, hash string, err error) {
	email = normalizeEmail(rawEmail)
	if _, perr := mail.ParseAddress(email); email == "" || perr != nil {
		return "", "", "", ErrInvalidEmail
	}
	name = strings.TrimSpace(rawName)
	if name == "" {
		return "", "", "", ErrNameRequired
	}
	if len(password) < constants.MinPasswordLength {
		return "", "", "", ErrPasswordTooShort
	}

	hashed, herr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if herr != nil {
		return "", "", "", ErrFailedToHashPassword
	}
	return email, name, string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrAdminOnly      = fmt.Errorf("%w: only administrators can perform this action", apierrors.ErrAuthorization)
	ErrTenantInactive = fmt.Errorf("%w: tenant is inactive", apierrors.ErrAuthorization)
)

// Actor is the authenticated user a service call is made on behalf of.
type Actor struct {
	UserID   uint64
	TenantID uint64
	Role     models.UserRole
	Name     string
}

// ActorFromUser builds the actor for a loaded user.
func ActorFromUser(user *models.User) Actor {
	return Actor{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		Name:     user.DisplayName(),
	}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsTechnician() bool {
	return a.Role == models.RoleTechnician
}

func (a Actor) requireAdmin() error {
	if !a.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

// Clock returns the current time; services take one so tests can pin it.
type Clock func() time.Time

// storageError marks err as a storage failure unless it already carries a kind.
func storageError(op string, err error) error {
	if apierrors.KindOf(err) != apierrors.KindUnknown {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, apierrors.ErrStorage, err)
}

// lookupError maps a missing row to notFound and anything else to a storage failure.
func lookupError(op string, err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return storageError(op, err)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package testutil builds in-memory databases and seed data for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-report-api/internal/database"
	"github.com/yukikurage/field-report-api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Password is the plain-text password of every seeded user.
const Password = "password123"

var seq atomic.Uint64

// NewTestDB opens a migrated in-memory SQLite database that is closed when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.Options("silent"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db, zap.NewNop()))
	return db
}

// SeedTenant inserts an active tenant with the default numbering scheme.
func SeedTenant(t testing.TB, db *gorm.DB, name string) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		Name:                name,
		ProjectNumberPrefix: "02",
		ProjectNumberFormat: "PREFIX-YYYY-NNNN",
		NumberingMode:       models.NumberingModeCounter,
		InviteCode:          fmt.Sprintf("INVITE%04d", seq.Add(1)),
		IsActive:            true,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// SeedUser inserts a user of tenantID whose password is Password.
func SeedUser(t testing.TB, db *gorm.DB, tenantID uint64, name string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		TenantID:     tenantID,
		Email:        fmt.Sprintf("user%d@example.com", seq.Add(1)),
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// SeedProject inserts a project with an explicit number.
func SeedProject(t testing.TB, db *gorm.DB, tenantID uint64, number, name string) *models.Project {
	t.Helper()

	project := &models.Project{
		TenantID:      tenantID,
		ProjectNumber: number,
		Name:          name,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

// SeedTask inserts a task of project in status, optionally assigned.
func SeedTask(t testing.TB, db *gorm.DB, project *models.Project, taskType models.TaskType, status models.TaskStatus, technicianID *uint64) *models.Task {
	t.Helper()

	task := &models.Task{
		TenantID:             project.TenantID,
		ProjectID:            project.ID,
		TaskType:             taskType,
		Status:               status,
		AssignedTechnicianID: technicianID,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// Date returns midnight of the given day in loc.
func Date(year int, month time.Month, day int, loc *time.Location) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return &d
}

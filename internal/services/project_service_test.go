package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/testutil"
	"github.com/yukikurage/field-report-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProjectServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	service *ProjectService
	tenant  *models.Tenant
	admin   Actor
	tech    Actor
}

func (suite *ProjectServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.NewTestDB(suite.T())
	store := repository.NewStore(suite.db)

	suite.tenant = testutil.SeedTenant(suite.T(), suite.db, "Acme Testing")
	suite.Require().NoError(suite.db.Model(suite.tenant).Update("project_number_prefix", "ACM").Error)
	suite.admin = ActorFromUser(testutil.SeedUser(suite.T(), suite.db, suite.tenant.ID, "Ada Admin", models.RoleAdmin))
	suite.tech = ActorFromUser(testutil.SeedUser(suite.T(), suite.db, suite.tenant.ID, "Tom Tech", models.RoleTechnician))

	cfg := testNumberingConfig()
	suite.service = NewProjectService(store.Projects(), newTestAllocator(store, cfg), cfg.InsertAttempts, zap.NewNop())
	suite.service.SetClock(func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) })
}

func (suite *ProjectServiceTestSuite) TestCreateProject_AllocatesSequentialNumbers() {
	first, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.Require().NoError(err)
	suite.Equal("ACM-2025-0001", first.ProjectNumber)

	second, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Parking Garage"})
	suite.Require().NoError(err)
	suite.Equal("ACM-2025-0002", second.ProjectNumber)

	explicit, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Next Year", Year: 2026})
	suite.Require().NoError(err)
	suite.Equal("ACM-2026-0001", explicit.ProjectNumber)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_SkipsTakenNumber() {
	// Imported by hand, so the counter does not know about it
	testutil.SeedProject(suite.T(), suite.db, suite.tenant.ID, "ACM-2025-0001", "Imported")

	project, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.Require().NoError(err)
	suite.Equal("ACM-2025-0002", project.ProjectNumber)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_StaleCounterCatchesUp() {
	suite.Require().NoError(suite.db.Create(&models.ProjectCounter{TenantID: suite.tenant.ID, Year: 2025, NextSeq: 2}).Error)
	for seq := 1; seq <= 8; seq++ {
		testutil.SeedProject(suite.T(), suite.db, suite.tenant.ID, fmt.Sprintf("ACM-2025-%04d", seq), fmt.Sprintf("Imported %d", seq))
	}

	first, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.Require().NoError(err)
	suite.Equal("ACM-2025-0009", first.ProjectNumber)

	second, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Parking Garage"})
	suite.Require().NoError(err)
	suite.Equal("ACM-2025-0010", second.ProjectNumber)

	var counter models.ProjectCounter
	suite.Require().NoError(suite.db.Where("tenant_id = ? AND year = ?", suite.tenant.ID, 2025).First(&counter).Error)
	suite.Equal(int64(11), counter.NextSeq)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_SwitchFromScanToCounter() {
	suite.Require().NoError(suite.db.Model(suite.tenant).Update("numbering_mode", models.NumberingModeScan).Error)
	for i := 1; i <= 8; i++ {
		_, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: fmt.Sprintf("Scan %d", i)})
		suite.Require().NoError(err)
	}

	tenants := NewTenantService(repository.NewStore(suite.db), zap.NewNop())
	counterMode := models.NumberingModeCounter
	_, err := tenants.UpdateTenant(suite.ctx, suite.admin, UpdateTenantInput{NumberingMode: &counterMode})
	suite.Require().NoError(err)

	for i := 0; i < 6; i++ {
		project, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: fmt.Sprintf("Counter %d", i)})
		suite.Require().NoError(err)
		suite.Equal(fmt.Sprintf("ACM-2025-%04d", 9+i), project.ProjectNumber)
	}
}

func (suite *ProjectServiceTestSuite) TestCreateProject_GivesUpAfterInsertAttempts() {
	cfg := testNumberingConfig()
	store := repository.NewStore(suite.db)
	service := NewProjectService(store.Projects(), newTestAllocator(store, cfg), 1, zap.NewNop())
	service.SetClock(func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) })

	suite.Require().NoError(suite.db.Create(&models.ProjectCounter{TenantID: suite.tenant.ID, Year: 2025, NextSeq: 1}).Error)
	testutil.SeedProject(suite.T(), suite.db, suite.tenant.ID, "ACM-2025-0001", "Imported")

	_, err := service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.ErrorIs(err, ErrProjectNumberConflict)
	suite.Equal(apierrors.KindConflict, apierrors.KindOf(err))
}

func (suite *ProjectServiceTestSuite) TestCreateProject_NameTaken() {
	_, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.Require().NoError(err)

	_, err = suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "  Bridge Deck "})
	suite.ErrorIs(err, ErrProjectNameTaken)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_Validation() {
	_, err := suite.service.CreateProject(suite.ctx, suite.tech, CreateProjectInput{Name: "Bridge Deck"})
	suite.ErrorIs(err, ErrAdminOnly)

	_, err = suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "   "})
	suite.ErrorIs(err, ErrProjectNameRequired)

	_, err = suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge", CustomerEmails: []string{"not-an-email"}})
	suite.ErrorIs(err, ErrInvalidCustomerEmail)

	_, err = suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge", Specs: json.RawMessage(`[1,2]`)})
	suite.ErrorIs(err, ErrInvalidSpecs)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Project{}).Count(&count).Error)
	suite.Zero(count)
}

func (suite *ProjectServiceTestSuite) TestCreateProject_NormalizesCustomerEmails() {
	project, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{
		Name:           "Bridge Deck",
		CustomerEmails: []string{" Owner@Example.com", "owner@example.com", "", "pm@example.com"},
		Specs:          json.RawMessage(`{"compaction":"95%"}`),
	})
	suite.Require().NoError(err)

	var emails []string
	suite.Require().NoError(json.Unmarshal(project.CustomerEmails, &emails))
	suite.Equal([]string{"owner@example.com", "pm@example.com"}, emails)
	suite.JSONEq(`{"compaction":"95%"}`, string(project.Specs))
}

func (suite *ProjectServiceTestSuite) TestUpdateProject_KeepsNumber() {
	project, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.Require().NoError(err)
	_, err = suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Parking Garage"})
	suite.Require().NoError(err)

	name := "Bridge Deck Phase 2"
	updated, err := suite.service.UpdateProject(suite.ctx, suite.admin, project.ID, UpdateProjectInput{Name: &name})
	suite.Require().NoError(err)
	suite.Equal(name, updated.Name)
	suite.Equal("ACM-2025-0001", updated.ProjectNumber)

	taken := "Parking Garage"
	_, err = suite.service.UpdateProject(suite.ctx, suite.admin, project.ID, UpdateProjectInput{Name: &taken})
	suite.ErrorIs(err, ErrProjectNameTaken)

	_, err = suite.service.UpdateProject(suite.ctx, suite.tech, project.ID, UpdateProjectInput{Name: &name})
	suite.ErrorIs(err, ErrAdminOnly)
}

func (suite *ProjectServiceTestSuite) TestGetAndListProjects_TenantScoped() {
	project, err := suite.service.CreateProject(suite.ctx, suite.admin, CreateProjectInput{Name: "Bridge Deck"})
	suite.Require().NoError(err)

	other := testutil.SeedTenant(suite.T(), suite.db, "Other Lab")
	outsider := ActorFromUser(testutil.SeedUser(suite.T(), suite.db, other.ID, "Otto", models.RoleAdmin))

	_, err = suite.service.GetProject(suite.ctx, outsider, project.ID)
	suite.ErrorIs(err, ErrProjectNotFound)

	found, err := suite.service.GetProject(suite.ctx, suite.tech, project.ID)
	suite.Require().NoError(err)
	suite.Equal(project.ID, found.ID)

	projects, total, err := suite.service.ListProjects(suite.ctx, outsider, utils.NewPaginationParams(1, 20))
	suite.Require().NoError(err)
	suite.Zero(total)
	suite.Empty(projects)
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}

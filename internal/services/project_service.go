package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/samber/lo"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound       = fmt.Errorf("%w: project not found", apierrors.ErrNotFound)
	ErrProjectNameRequired   = fmt.Errorf("%w: project name is required", apierrors.ErrValidation)
	ErrProjectNameTaken      = fmt.Errorf("%w: a project with this name already exists", apierrors.ErrConflict)
	ErrProjectNumberConflict = fmt.Errorf("%w: could not reserve a unique project number", apierrors.ErrConflict)
	ErrInvalidCustomerEmail  = fmt.Errorf("%w: invalid customer email", apierrors.ErrValidation)
	ErrInvalidSpecs          = fmt.Errorf("%w: specs must be a JSON object", apierrors.ErrValidation)
)

// ProjectService creates and maintains projects.
type ProjectService struct {
	projects       repository.ProjectRepository
	allocator      *Allocator
	insertAttempts int
	now            Clock
	logger         *zap.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects repository.ProjectRepository, allocator *Allocator, insertAttempts int, logger *zap.Logger) *ProjectService {
	if insertAttempts < 1 {
		insertAttempts = 1
	}
	return &ProjectService{
		projects:       projects,
		allocator:      allocator,
		insertAttempts: insertAttempts,
		now:            time.Now,
		logger:         logger,
	}
}

// SetClock replaces the time source used to pick the numbering year.
func (s *ProjectService) SetClock(clock Clock) {
	s.now = clock
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name           string
	CustomerEmails []string
	Specs          json.RawMessage
	// Year defaults to the current year.
	Year int
}

// UpdateProjectInput represents a partial project update; nil fields are left unchanged
type UpdateProjectInput struct {
	Name           *string
	CustomerEmails *[]string
	Specs          json.RawMessage
}

// CreateProject allocates a project number and inserts the project. A
// number that turns out to be taken is bumped past the existing numbers and
// retried, and the counter is moved along with it.
func (s *ProjectService) CreateProject(ctx context.Context, actor Actor, input CreateProjectInput) (*models.Project, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}
	emails, err := customerEmailsJSON(input.CustomerEmails)
	if err != nil {
		return nil, err
	}
	specs, err := specsJSON(input.Specs)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, actor.TenantID, name, 0); err != nil {
		return nil, err
	}

	year := input.Year
	if year == 0 {
		year = s.now().Year()
	}

	number, err := s.allocator.AllocateProjectNumber(ctx, actor.TenantID, year)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		TenantID:       actor.TenantID,
		Name:           name,
		CustomerEmails: emails,
		Specs:          specs,
	}

	seq := number.Sequence
	for attempt := 1; ; attempt++ {
		project.ID = 0
		project.ProjectNumber = number.WithSequence(seq)

		err := s.projects.Create(ctx, project)
		if err == nil {
			if seq != number.Sequence {
				s.allocator.Advance(ctx, number, seq)
			}
			s.logger.Info("project created",
				zap.Uint64("tenant_id", actor.TenantID),
				zap.Uint64("project_id", project.ID),
				zap.String("project_number", project.ProjectNumber),
				zap.String("backend", number.Backend),
			)
			return project, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storageError("create project", err)
		}

		// The name index may be the one that fired.
		if err := s.ensureNameFree(ctx, actor.TenantID, name, 0); err != nil {
			return nil, err
		}
		if attempt >= s.insertAttempts {
			return nil, fmt.Errorf("%w after %d attempts (last tried %s)", ErrProjectNumberConflict, attempt, project.ProjectNumber)
		}

		seq = s.allocator.NextCandidate(ctx, number, seq)
		s.logger.Warn("project number taken, retrying",
			zap.Uint64("tenant_id", actor.TenantID),
			zap.String("project_number", project.ProjectNumber),
			zap.Int64("next_seq", seq),
			zap.Int("attempt", attempt),
		)
	}
}

// GetProject returns a project of the actor's tenant
func (s *ProjectService) GetProject(ctx context.Context, actor Actor, projectID uint64) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, actor.TenantID, projectID)
	if err != nil {
		return nil, lookupError("find project", err, ErrProjectNotFound)
	}
	return project, nil
}

// ListProjects lists the actor's tenant projects, newest first
func (s *ProjectService) ListProjects(ctx context.Context, actor Actor, params utils.PaginationParams) ([]models.Project, int64, error) {
	projects, total, err := s.projects.List(ctx, actor.TenantID, params)
	if err != nil {
		return nil, 0, storageError("list projects", err)
	}
	return projects, total, nil
}

// UpdateProject changes a project's name, customer emails or specs. The
// project number never changes.
func (s *ProjectService) UpdateProject(ctx context.Context, actor Actor, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	project, err := s.projects.FindByID(ctx, actor.TenantID, projectID)
	if err != nil {
		return nil, lookupError("find project", err, ErrProjectNotFound)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProjectNameRequired
		}
		if name != project.Name {
			if err := s.ensureNameFree(ctx, actor.TenantID, name, project.ID); err != nil {
				return nil, err
			}
			project.Name = name
		}
	}
	if input.CustomerEmails != nil {
		emails, err := customerEmailsJSON(*input.CustomerEmails)
		if err != nil {
			return nil, err
		}
		project.CustomerEmails = emails
	}
	if input.Specs != nil {
		specs, err := specsJSON(input.Specs)
		if err != nil {
			return nil, err
		}
		project.Specs = specs
	}

	if err := s.projects.Update(ctx, project); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProjectNameTaken
		}
		return nil, storageError("update project", err)
	}
	return project, nil
}

// ensureNameFree fails with ErrProjectNameTaken if another project of the tenant uses name.
func (s *ProjectService) ensureNameFree(ctx context.Context, tenantID uint64, name string, exceptID uint64) error {
	existing, err := s.projects.FindByName(ctx, tenantID, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storageError("find project by name", err)
	}
	if existing.ID == exceptID {
		return nil
	}
	return ErrProjectNameTaken
}

func customerEmailsJSON(emails []string) (datatypes.JSON, error) {
	cleaned := lo.Uniq(lo.Compact(lo.Map(emails, func(e string, _ int) string {
		return strings.ToLower(strings.TrimSpace(e))
	})))
	for _, email := range cleaned {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCustomerEmail, email)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("encode customer emails: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// specsJSON accepts an opaque JSON object.
func specsJSON(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, ErrInvalidSpecs
	}
	return datatypes.JSON(raw), nil
}

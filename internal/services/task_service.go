package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound          = fmt.Errorf("%w: task not found", apierrors.ErrNotFound)
	ErrTechnicianNotFound    = fmt.Errorf("%w: technician not found", apierrors.ErrNotFound)
	ErrNotATechnician        = fmt.Errorf("%w: user is not a technician", apierrors.ErrValidation)
	ErrInvalidTaskType       = fmt.Errorf("%w: unknown task type", apierrors.ErrValidation)
	ErrInvalidStatus         = fmt.Errorf("%w: unknown task status", apierrors.ErrValidation)
	ErrInvalidView           = fmt.Errorf("%w: unknown task view", apierrors.ErrValidation)
	ErrInvalidSchedule       = fmt.Errorf("%w: scheduled start date is after the end date", apierrors.ErrValidation)
	ErrTaskNotAssignedToYou  = fmt.Errorf("%w: task is not assigned to you", apierrors.ErrAuthorization)
	ErrProctorNumberConflict = fmt.Errorf("%w: proctor number was taken concurrently", apierrors.ErrConflict)
)

// TaskResult is a committed task plus the side effects that could not be recorded.
type TaskResult struct {
	Task     *models.Task
	Warnings []string
}

// TaskService is the task lifecycle manager. Every mutation runs in one
// transaction; history entries and notifications are written in nested
// savepoints so their failure is reported as a warning instead of undoing
// the primary change.
type TaskService struct {
	store            *repository.Store
	notifications    *NotificationService
	operationTimeout time.Duration
	now              Clock
	logger           *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(store *repository.Store, notifications *NotificationService, operationTimeout time.Duration, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:            store,
		notifications:    notifications,
		operationTimeout: operationTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// SetClock replaces the time source for stamps, history and views.
func (s *TaskService) SetClock(clock Clock) {
	s.now = clock
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID            uint64
	TaskType             models.TaskType
	AssignedTechnicianID *uint64
	DueDate              *time.Time
	ScheduledStartDate   *time.Time
	ScheduledEndDate     *time.Time
	LocationName         string
	EngagementNotes      string
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID            *uint64
	Status               *models.TaskStatus
	AssignedTechnicianID *uint64
	View                 TaskView
	SortByDueDate        bool
	Page                 int
	PageSize             int
}

// effects collects the best-effort outcomes of one operation.
type effects struct {
	warnings      []string
	notifications []models.Notification
}

func (fx *effects) warn(format string, args ...any) {
	fx.warnings = append(fx.warnings, fmt.Sprintf(format, args...))
}

// CreateTask creates a task in ASSIGNED and notifies the technician, if any.
// Creation writes no history.
func (s *TaskService) CreateTask(ctx context.Context, actor Actor, input CreateTaskInput) (*TaskResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if !input.TaskType.Valid() {
		return nil, ErrInvalidTaskType
	}
	if err := validateSchedule(input.ScheduledStartDate, input.ScheduledEndDate); err != nil {
		return nil, err
	}

	return s.run(ctx, "create task", func(ctx context.Context, tx *repository.Store, fx *effects) (*models.Task, error) {
		project, err := tx.Projects().FindByID(ctx, actor.TenantID, input.ProjectID)
		if err != nil {
			return nil, lookupError("find project", err, ErrProjectNotFound)
		}

		var technician *models.User
		if input.AssignedTechnicianID != nil {
			if technician, err = s.findTechnician(ctx, tx, actor.TenantID, *input.AssignedTechnicianID); err != nil {
				return nil, err
			}
		}

		task := &models.Task{
			TenantID:             actor.TenantID,
			ProjectID:            project.ID,
			TaskType:             input.TaskType,
			Status:               models.TaskStatusAssigned,
			AssignedTechnicianID: input.AssignedTechnicianID,
			DueDate:              input.DueDate,
			ScheduledStartDate:   input.ScheduledStartDate,
			ScheduledEndDate:     input.ScheduledEndDate,
			LocationName:         input.LocationName,
			EngagementNotes:      input.EngagementNotes,
		}
		if task.TaskType == models.TaskTypeProctor {
			if task.ProctorNo, err = s.nextProctorNo(ctx, tx, project.ID); err != nil {
				return nil, err
			}
		}
		s.stamp(task, actor)

		if err := tx.Tasks().Create(ctx, task); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrProctorNumberConflict
			}
			return nil, storageError("create task", err)
		}
		task.Project = *project
		task.AssignedTechnician = technician

		if technician != nil {
			s.notify(ctx, tx, fx, assignmentNotice(task))
		}

		s.logger.Info("task created",
			zap.Uint64("tenant_id", task.TenantID),
			zap.Uint64("task_id", task.ID),
			zap.String("task_type", string(task.TaskType)),
		)
		return task, nil
	})
}

// GetTask returns a task of the actor's tenant. Technicians only see their own tasks.
func (s *TaskService) GetTask(ctx context.Context, actor Actor, taskID uint64) (*models.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, actor.TenantID, taskID, "Project", "AssignedTechnician")
	if err != nil {
		return nil, lookupError("find task", err, ErrTaskNotFound)
	}
	if actor.IsTechnician() && !task.IsAssignedTo(actor.UserID) {
		return nil, ErrTaskNotAssignedToYou
	}
	return task, nil
}

// GetTaskHistory returns the task's audit trail, most recent first
func (s *TaskService) GetTaskHistory(ctx context.Context, actor Actor, taskID uint64) ([]models.TaskHistory, error) {
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	entries, err := s.store.History().ListByTask(ctx, actor.TenantID, taskID)
	if err != nil {
		return nil, storageError("list task history", err)
	}
	return entries, nil
}

// ListTasks lists tasks of the actor's tenant. Technicians only see tasks
// assigned to them. A view is applied after loading, so the total counts
// the tasks in the view.
func (s *TaskService) ListTasks(ctx context.Context, actor Actor, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if input.View != "" && !input.View.Valid() {
		return nil, 0, ErrInvalidView
	}

	filter := repository.TaskFilter{
		TenantID:             actor.TenantID,
		ProjectID:            input.ProjectID,
		Status:               input.Status,
		AssignedTechnicianID: input.AssignedTechnicianID,
		SortByDueDate:        input.SortByDueDate,
	}
	if actor.IsTechnician() {
		filter.AssignedTechnicianID = &actor.UserID
	}

	if input.View == "" {
		filter.Page = input.Page
		filter.PageSize = input.PageSize
		tasks, total, err := s.store.Tasks().List(ctx, filter)
		if err != nil {
			return nil, 0, storageError("list tasks", err)
		}
		return tasks, total, nil
	}

	tasks, _, err := s.store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, 0, storageError("list tasks", err)
	}
	tasks = FilterByView(tasks, input.View, s.now())
	total := int64(len(tasks))

	if input.Page > 0 && input.PageSize > 0 {
		start := (input.Page - 1) * input.PageSize
		tasks = lo.Slice(tasks, start, start+input.PageSize)
	}
	return tasks, total, nil
}

// run executes fn in one transaction and publishes the created
// notifications once it has committed.
func (s *TaskService) run(ctx context.Context, op string, fn func(ctx context.Context, tx *repository.Store, fx *effects) (*models.Task, error)) (*TaskResult, error) {
	if s.operationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.operationTimeout)
		defer cancel()
	}

	fx := &effects{}
	var task *models.Task
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = fn(ctx, tx, fx)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%s: %w: %w", op, apierrors.ErrStorage, err)
		}
		err = storageError(op, err)
		if apierrors.KindOf(err) == apierrors.KindStorage {
			s.logger.Error("task operation failed", zap.String("operation", op), zap.Error(err))
		}
		return nil, err
	}

	s.notifications.Publish(context.WithoutCancel(ctx), fx.notifications)
	return &TaskResult{Task: task, Warnings: fx.warnings}, nil
}

// mutate loads the task inside the transaction and hands it to fn.
func (s *TaskService) mutate(ctx context.Context, actor Actor, taskID uint64, op string, fn func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error) (*TaskResult, error) {
	return s.run(ctx, op, func(ctx context.Context, tx *repository.Store, fx *effects) (*models.Task, error) {
		task, err := tx.Tasks().FindByID(ctx, actor.TenantID, taskID, "Project", "AssignedTechnician")
		if err != nil {
			return nil, lookupError("find task", err, ErrTaskNotFound)
		}
		if err := fn(ctx, tx, task, fx); err != nil {
			return nil, err
		}
		return task, nil
	})
}

func (s *TaskService) save(ctx context.Context, tx *repository.Store, task *models.Task, actor Actor) error {
	s.stamp(task, actor)
	if err := tx.Tasks().Update(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrProctorNumberConflict
		}
		return storageError("update task", err)
	}
	return nil
}

func (s *TaskService) stamp(task *models.Task, actor Actor) {
	now := s.now()
	userID := actor.UserID
	task.LastEditedByUserID = &userID
	task.LastEditedByRole = actor.Role
	task.LastEditedByName = actor.Name
	task.LastEditedAt = &now
}

// appendHistory records an audit entry in a savepoint.
func (s *TaskService) appendHistory(ctx context.Context, tx *repository.Store, fx *effects, task *models.Task, actor Actor, action models.HistoryAction, note string) {
	entry := &models.TaskHistory{
		TaskID:      task.ID,
		TenantID:    task.TenantID,
		Timestamp:   s.now(),
		ActorRole:   actor.Role,
		ActorName:   actor.Name,
		ActorUserID: actor.UserID,
		ActionType:  action,
		Note:        note,
	}
	err := tx.Transaction(ctx, func(sp *repository.Store) error {
		return sp.History().Append(ctx, entry)
	})
	if err != nil {
		s.logger.Warn("failed to record task history",
			zap.Uint64("task_id", task.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		fx.warn("history entry %s for task %d was not recorded", action, task.ID)
	}
}

// notify writes an inbox notification in a savepoint.
func (s *TaskService) notify(ctx context.Context, tx *repository.Store, fx *effects, input NotifyInput) {
	var created *models.Notification
	err := tx.Transaction(ctx, func(sp *repository.Store) error {
		n, err := s.notifications.Create(ctx, sp.Notifications(), input)
		created = n
		return err
	})
	if err != nil {
		s.logger.Warn("failed to create notification",
			zap.Uint64("user_id", input.UserID),
			zap.Error(err),
		)
		fx.warn("notification to user %d was not delivered", input.UserID)
		return
	}
	fx.notifications = append(fx.notifications, *created)
}

// notifyAdmins sends input to every administrator of the tenant.
func (s *TaskService) notifyAdmins(ctx context.Context, tx *repository.Store, fx *effects, input NotifyInput) {
	admins, err := tx.Users().ListByRole(ctx, input.TenantID, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("failed to list administrators", zap.Uint64("tenant_id", input.TenantID), zap.Error(err))
		fx.warn("administrators were not notified")
		return
	}
	for _, admin := range admins {
		input.UserID = admin.ID
		s.notify(ctx, tx, fx, input)
	}
}

func (s *TaskService) findTechnician(ctx context.Context, tx *repository.Store, tenantID, userID uint64) (*models.User, error) {
	user, err := tx.Users().FindInTenant(ctx, tenantID, userID)
	if err != nil {
		return nil, lookupError("find technician", err, ErrTechnicianNotFound)
	}
	if user.Role != models.RoleTechnician {
		return nil, ErrNotATechnician
	}
	return user, nil
}

// nextProctorNo is max+1 within the project. Concurrent creations can race;
// the unique index on (project_id, proctor_no) rejects the loser.
func (s *TaskService) nextProctorNo(ctx context.Context, tx *repository.Store, projectID uint64) (*int, error) {
	max, err := tx.Tasks().MaxProctorNo(ctx, projectID)
	if err != nil {
		return nil, storageError("read proctor number", err)
	}
	next := max + 1
	return &next, nil
}

func validateSchedule(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return ErrInvalidSchedule
	}
	return nil
}

func technicianName(user *models.User) string {
	if user == nil {
		return "unassigned"
	}
	return user.DisplayName()
}

func assignmentNotice(task *models.Task) NotifyInput {
	return NotifyInput{
		TenantID:  task.TenantID,
		UserID:    *task.AssignedTechnicianID,
		Message:   fmt.Sprintf("You have been assigned a %s task for project %s", task.TaskType.Label(), task.Project.ProjectNumber),
		Type:      models.NotificationInfo,
		TaskID:    &task.ID,
		ProjectID: &task.ProjectID,
	}
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/field-report-api/internal/config"
	"github.com/yukikurage/field-report-api/internal/constants"
	"github.com/yukikurage/field-report-api/internal/dto"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/services"
	"github.com/yukikurage/field-report-api/internal/testutil"
	"go.uber.org/zap"
)

const onboardingToken = "let-me-in"

// client replays the session cookie of one signed-in user.
type client struct {
	t       *testing.T
	engine  *gin.Engine
	cookies []*http.Cookie
}

func (cl *client) do(method, path string, body any) *httptest.ResponseRecorder {
	cl.t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(cl.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(constants.HeaderOnboardingToken, onboardingToken)
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	cl.engine.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		cl.cookies = set
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type RouterTestSuite struct {
	suite.Suite
	engine *gin.Engine
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(suite.T())
	store := repository.NewStore(db)
	logger := zap.NewNop()

	numbering := config.NumberingConfig{
		DefaultPrefix:  constants.DefaultProjectPrefix,
		MaxAttempts:    5,
		InsertAttempts: 3,
		StoreTimeout:   time.Second,
	}
	allocator := services.NewAllocator(store.Tenants(), store.Counters(), store.Projects(), numbering, logger)
	notifications := services.NewNotificationService(store, nil, logger)

	suite.engine = New(Deps{
		Auth:            services.NewAuthService(store, logger),
		Tenants:         services.NewTenantService(store, logger),
		Projects:        services.NewProjectService(store.Projects(), allocator, numbering.InsertAttempts, logger),
		Tasks:           services.NewTaskService(store, notifications, 5*time.Second, logger),
		Notifications:   notifications,
		SessionStore:    cookie.NewStore([]byte("test-secret")),
		OnboardingToken: onboardingToken,
		Logger:          logger,
	})
}

func (suite *RouterTestSuite) newClient() *client {
	return &client{t: suite.T(), engine: suite.engine}
}

// onboard creates a tenant and returns a signed-in admin client plus the invite code.
func (suite *RouterTestSuite) onboard(prefix string) (*client, string) {
	admin := suite.newClient()
	w := admin.do(http.MethodPost, "/api/tenants/onboard", map[string]any{
		"name":                  "Acme Materials Testing",
		"project_number_prefix": prefix,
		"admin": map[string]string{
			"email":    "ada-" + prefix + "@example.com",
			"name":     "Ada Admin",
			"password": "supersecret",
		},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	onboarded := decode[dto.OnboardResponse](suite.T(), w)
	suite.Require().NotEmpty(onboarded.Tenant.InviteCode)
	assert.Equal(suite.T(), models.RoleAdmin, onboarded.Admin.Role)

	w = admin.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ada-" + prefix + "@example.com",
		"password": "supersecret",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return admin, onboarded.Tenant.InviteCode
}

func (suite *RouterTestSuite) signupTechnician(inviteCode, email, name string) (*client, dto.UserDTO) {
	tech := suite.newClient()
	w := tech.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"invite_code": inviteCode,
		"email":       email,
		"name":        name,
		"password":    "supersecret",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	user := decode[dto.UserDTO](suite.T(), w)

	w = tech.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "supersecret"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return tech, user
}

func (suite *RouterTestSuite) TestHealth() {
	w := suite.newClient().do(http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotEmpty(suite.T(), w.Header().Get(constants.HeaderRequestID))
}

func (suite *RouterTestSuite) TestOnboard_RequiresToken() {
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/onboard", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestProtectedRoutes_RequireSession() {
	w := suite.newClient().do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestFieldReportWorkflow() {
	admin, inviteCode := suite.onboard("ACM")
	tech, techUser := suite.signupTechnician(inviteCode, "tom@example.com", "Tom Tech")

	// Technicians cannot manage projects
	w := tech.do(http.MethodPost, "/api/projects", map[string]any{"name": "Nope"})
	suite.Require().Equal(http.StatusForbidden, w.Code)

	w = admin.do(http.MethodPost, "/api/projects", map[string]any{
		"name":            "Bridge Deck",
		"customer_emails": []string{"Owner@Example.com"},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	project := decode[dto.ProjectDTO](suite.T(), w)
	year := time.Now().Year()
	assert.Equal(suite.T(), fmt.Sprintf("ACM-%d-0001", year), project.ProjectNumber)
	assert.Equal(suite.T(), []string{"owner@example.com"}, project.CustomerEmails)

	w = admin.do(http.MethodPost, "/api/projects", map[string]any{"name": "Parking Garage"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(suite.T(), fmt.Sprintf("ACM-%d-0002", year), decode[dto.ProjectDTO](suite.T(), w).ProjectNumber)

	w = admin.do(http.MethodPost, "/api/projects", map[string]any{"name": "Bridge Deck"})
	suite.Require().Equal(http.StatusConflict, w.Code)

	w = admin.do(http.MethodGet, "/api/users/technicians", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "tom@example.com")

	w = admin.do(http.MethodPost, "/api/tasks", map[string]any{
		"project_id":             project.ID,
		"task_type":              "PROCTOR",
		"assigned_technician_id": techUser.ID,
		"due_date":               "2025-03-10",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.TaskResultResponse](suite.T(), w)
	suite.Require().NotNil(created.Task.ProctorNo)
	assert.Equal(suite.T(), 1, *created.Task.ProctorNo)
	taskPath := fmt.Sprintf("/api/tasks/%d", created.Task.ID)

	// The technician was told about the assignment
	w = tech.do(http.MethodGet, "/api/notifications/unread-count", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"unread":1}`, w.Body.String())

	w = tech.do(http.MethodGet, taskPath, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = tech.do(http.MethodPost, taskPath+"/status", map[string]string{"status": "IN_PROGRESS_TECH"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = tech.do(http.MethodPost, taskPath+"/field-complete", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = tech.do(http.MethodPost, taskPath+"/status", map[string]string{"status": "READY_FOR_REVIEW"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Approval is admin only
	w = tech.do(http.MethodPost, taskPath+"/approve", nil)
	suite.Require().Equal(http.StatusForbidden, w.Code)

	w = admin.do(http.MethodPost, taskPath+"/reject", map[string]string{
		"remarks":               "Moisture content missing",
		"resubmission_due_date": "2025-03-20",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), models.TaskStatusRejectedNeedsFix, decode[dto.TaskResultResponse](suite.T(), w).Task.Status)

	w = tech.do(http.MethodPost, taskPath+"/status", map[string]string{"status": "READY_FOR_REVIEW"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = admin.do(http.MethodPost, taskPath+"/approve", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = admin.do(http.MethodGet, taskPath+"/history", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	history := decode[struct {
		History []dto.TaskHistoryDTO `json:"history"`
	}](suite.T(), w).History
	actions := make([]models.HistoryAction, len(history))
	for i, entry := range history {
		actions[i] = entry.ActionType
	}
	assert.Equal(suite.T(), []models.HistoryAction{
		models.HistoryActionApproved,
		models.HistoryActionSubmitted,
		models.HistoryActionRejected,
		models.HistoryActionSubmitted,
		models.HistoryActionStatusChanged,
	}, actions)

	// Assignment and rejection
	w = tech.do(http.MethodGet, "/api/notifications?unread=true", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	inbox := decode[dto.NotificationListResponse](suite.T(), w)
	suite.Require().Len(inbox.Notifications, 2)

	w = tech.do(http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", inbox.Notifications[0].ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = tech.do(http.MethodPost, "/api/notifications/read-all", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"updated":1}`, w.Body.String())
}

func (suite *RouterTestSuite) TestTenantIsolation() {
	adminA, inviteA := suite.onboard("AAA")
	adminB, _ := suite.onboard("BBB")
	techA, techUserA := suite.signupTechnician(inviteA, "tech-a@example.com", "Tech A")

	w := adminA.do(http.MethodPost, "/api/projects", map[string]any{"name": "Runway"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	project := decode[dto.ProjectDTO](suite.T(), w)

	w = adminA.do(http.MethodPost, "/api/tasks", map[string]any{
		"project_id":             project.ID,
		"task_type":              "REBAR",
		"assigned_technician_id": techUserA.ID,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	task := decode[dto.TaskResultResponse](suite.T(), w).Task

	w = adminB.do(http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	w = adminB.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	// Tenant B cannot assign tenant A's technician
	w = adminB.do(http.MethodPost, "/api/projects", map[string]any{"name": "Terminal"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	projectB := decode[dto.ProjectDTO](suite.T(), w)
	w = adminB.do(http.MethodPost, "/api/tasks", map[string]any{
		"project_id":             projectB.ID,
		"task_type":              "REBAR",
		"assigned_technician_id": techUserA.ID,
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = techA.do(http.MethodGet, "/api/tenant", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Empty(suite.T(), decode[dto.TenantDTO](suite.T(), w).InviteCode)
}

func (suite *RouterTestSuite) TestDeactivatedTenantIsLockedOut() {
	admin, inviteCode := suite.onboard("OFF")

	w := admin.do(http.MethodPost, "/api/tenant/regenerate-code", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.NotContains(suite.T(), w.Body.String(), inviteCode)

	w = admin.do(http.MethodPost, "/api/tenant/deactivate", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = admin.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-report-api/internal/constants"
	"github.com/yukikurage/field-report-api/internal/dto"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/services"
	"github.com/yukikurage/field-report-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db          *gorm.DB
	tenant      *models.Tenant
	handler     *AuthHandler
	authService *services.AuthService
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db, "Acme Testing")

	authService := services.NewAuthService(repository.NewStore(db), zap.NewNop())
	handler := NewAuthHandler(authService)

	return authTestEnv{
		db:          db,
		tenant:      tenant,
		handler:     handler,
		authService: authService,
	}
}

func newSessionRouter() *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	w := postJSON(t, r, "/api/auth/signup", map[string]string{
		"invite_code": env.tenant.InviteCode,
		"email":       "tech@example.com",
		"name":        "Tess Tech",
		"password":    "supersecret",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "tech@example.com", response.Email)
	require.Equal(t, models.RoleTechnician, response.Role)
	require.Equal(t, env.tenant.ID, response.TenantID)
}

func TestAuthHandler_Signup_InvalidInviteCode(t *testing.T) {
	env := setupAuthTestEnv(t)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	w := postJSON(t, r, "/api/auth/signup", map[string]string{
		"invite_code": "NOPE",
		"email":       "tech@example.com",
		"name":        "Tess Tech",
		"password":    "supersecret",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Signup_EmailTaken(t *testing.T) {
	env := setupAuthTestEnv(t)
	existing := testutil.SeedUser(t, env.db, env.tenant.ID, "Existing", models.RoleTechnician)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	w := postJSON(t, r, "/api/auth/signup", map[string]string{
		"invite_code": env.tenant.InviteCode,
		"email":       existing.Email,
		"name":        "Someone Else",
		"password":    "supersecret",
	})

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(context.Background(), services.SignupInput{
		InviteCode: env.tenant.InviteCode,
		Email:      "existing@example.com",
		Name:       "Existing",
		Password:   "supersecret",
	})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	w := postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "supersecret",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "existing@example.com", response.Email)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := setupAuthTestEnv(t)
	user := testutil.SeedUser(t, env.db, env.tenant.ID, "Existing", models.RoleAdmin)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	w := postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    user.Email,
		"password": "wrong-password",
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Login_InactiveTenant(t *testing.T) {
	env := setupAuthTestEnv(t)
	user := testutil.SeedUser(t, env.db, env.tenant.ID, "Existing", models.RoleAdmin)
	require.NoError(t, env.db.Model(env.tenant).Update("is_active", false).Error)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	w := postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    user.Email,
		"password": testutil.Password,
	})

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, w.Result().Cookies())
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t)
	user := testutil.SeedUser(t, env.db, env.tenant.ID, "Current User", models.RoleAdmin)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	c.Set(constants.ContextKeyUserID, user.ID)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.Email, response.Email)
	require.Equal(t, "Current User", response.Name)
}

func TestAuthHandler_GetCurrentUser_Unauthorized(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

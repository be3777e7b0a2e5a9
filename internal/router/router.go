package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-report-api/internal/constants"
	"github.com/yukikurage/field-report-api/internal/handlers"
	"github.com/yukikurage/field-report-api/internal/middleware"
	"github.com/yukikurage/field-report-api/internal/services"
	"go.uber.org/zap"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Auth            *services.AuthService
	Tenants         *services.TenantService
	Projects        *services.ProjectService
	Tasks           *services.TaskService
	Notifications   *services.NotificationService
	SessionStore    sessions.Store
	OnboardingToken string
	Logger          *zap.Logger
}

// New builds the gin engine with every API route.
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	authHandler := handlers.NewAuthHandler(deps.Auth)
	tenantHandler := handlers.NewTenantHandler(deps.Tenants)
	projectHandler := handlers.NewProjectHandler(deps.Projects)
	taskHandler := handlers.NewTaskHandler(deps.Tasks)
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Field Report API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		api.POST("/tenants/onboard", middleware.RequireOnboardingToken(deps.OnboardingToken), tenantHandler.Onboard)

		// Everything below requires a signed-in user of an active tenant
		protected := api.Group("")
		protected.Use(middleware.RequireAuth(), middleware.LoadActor(deps.Auth))

		tenant := protected.Group("/tenant")
		{
			tenant.GET("", tenantHandler.GetTenant)
			tenant.PATCH("", middleware.RequireAdmin(), tenantHandler.UpdateTenant)
			tenant.POST("/regenerate-code", middleware.RequireAdmin(), tenantHandler.RegenerateInviteCode)
			tenant.POST("/deactivate", middleware.RequireAdmin(), tenantHandler.DeactivateTenant)
		}

		protected.GET("/users/technicians", middleware.RequireAdmin(), tenantHandler.ListTechnicians)

		projects := protected.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", middleware.RequireAdmin(), projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", middleware.RequireAdmin(), projectHandler.UpdateProject)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", middleware.RequireAdmin(), taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(deps.Tasks), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireAdmin(), taskHandler.UpdateTask)
			tasks.GET("/:id/history", taskHandler.GetTaskHistory)
			tasks.POST("/:id/status", taskHandler.UpdateStatus)
			tasks.POST("/:id/approve", middleware.RequireAdmin(), taskHandler.Approve)
			tasks.POST("/:id/reject", middleware.RequireAdmin(), taskHandler.Reject)
			tasks.POST("/:id/reassign", middleware.RequireAdmin(), taskHandler.Reassign)
			tasks.POST("/:id/field-complete", taskHandler.MarkFieldComplete)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}
	}

	return r
}

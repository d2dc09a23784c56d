package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/middleware"
	"github.com/ucu-innovators/hub/internal/modules/handler"
	"github.com/ucu-innovators/hub/internal/modules/serializer"
	"github.com/ucu-innovators/hub/internal/pkg/authn"
)

type RouterDeps struct {
	Config           *config.Config
	Log              *zap.Logger
	Issuer           *authn.Issuer
	ProjectHandler   *handler.ProjectHandler
	UserHandler      *handler.UserHandler
	AnalyticsHandler *handler.AnalyticsHandler
	AssistantHandler *handler.AssistantHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	// Initialize logger for serializer package
	serializer.SetLogger(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORS.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	requireAuth := middleware.RequireAuth(d.Issuer)
	optionalAuth := middleware.OptionalAuth(d.Issuer)

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", d.UserHandler.Register)
			auth.POST("/login", d.UserHandler.Login)
			auth.POST("/forgot-password", d.UserHandler.ForgotPassword)
			auth.POST("/reset-password", d.UserHandler.ResetPassword)
			auth.GET("/me", requireAuth, d.UserHandler.Me)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("", optionalAuth, d.ProjectHandler.ListProjects)
			projects.GET("/:id", optionalAuth, d.ProjectHandler.GetProject)
			projects.POST("", requireAuth, d.ProjectHandler.SubmitProject)
			projects.PUT("/:id", requireAuth, d.ProjectHandler.UpdateProject)
			projects.PATCH("/:id/review", requireAuth, d.ProjectHandler.ReviewProject)
			// anonymous callers reach the policy and get 403
			projects.POST("/:id/comments", optionalAuth, d.ProjectHandler.AddComment)
			projects.POST("/:id/team-members", requireAuth, d.ProjectHandler.AddTeamMember)
			projects.GET("/:id/document", optionalAuth, d.ProjectHandler.GetProjectDocument)
			projects.POST("/:id/document", requireAuth, d.ProjectHandler.UploadDocument)
		}

		users := v1.Group("/users", requireAuth)
		{
			users.GET("/:id", d.UserHandler.GetUser)
			users.PUT("/:id", d.UserHandler.UpdateUser)
		}

		v1.GET("/analytics", requireAuth, d.AnalyticsHandler.GetAnalytics)
		v1.POST("/assistant/chat", optionalAuth, d.AssistantHandler.Chat)
	}
	return r
}

package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers agrupa los handlers que monta el router.
type Handlers struct {
	Users        *UserHandler
	Applications *ApplicationHandler
	Media        *MediaHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, metrics *Metrics, auth *Auth, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())
	if metrics != nil {
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/register", h.Users.Register)
	r.POST("/login", h.Users.Login)
	r.POST("/forgot-password", h.Users.ForgotPassword)
	r.POST("/reset-password", h.Users.ResetPassword)

	authed := r.Group("", auth.RequireAuth())
	authed.GET("/users", auth.RequireAdmin(), h.Users.ListUsers)
	authed.POST("/user", auth.RequireAdmin(), h.Users.CreateUser)
	authed.GET("/user/:id", h.Users.GetUser)
	authed.PUT("/user/:id", h.Users.UpdateUser)
	authed.DELETE("/user/:id", auth.RequireAdmin(), h.Users.DeleteUser)
	authed.POST("/profileUpdate", h.Users.UpdateProfile)
	authed.POST("/user/updatePassword", h.Users.UpdatePassword)
	authed.POST("/user/updateProfilePic", h.Users.UpdateProfilePic)
	authed.POST("/uploads", h.Media.Upload)

	apps := r.Group("/api/applications")
	apps.POST("/:id/views", auth.OptionalAuth(), h.Applications.IncrementView)

	appsAuthed := apps.Group("", auth.RequireAuth())
	appsAuthed.POST("", h.Applications.Create)
	appsAuthed.GET("", h.Applications.List)
	appsAuthed.GET("/admin/all", auth.RequireAdmin(), h.Applications.ListAll)
	appsAuthed.GET("/:id", h.Applications.Get)
	appsAuthed.PUT("/:id", h.Applications.Update)
	appsAuthed.DELETE("/:id", h.Applications.Delete)
	appsAuthed.PUT("/:id/team-members", h.Applications.AddTeamMember)
	appsAuthed.PUT("/:id/updates", h.Applications.AddUpdate)
	appsAuthed.PUT("/:id/investments", h.Applications.AddInvestment)
	appsAuthed.PATCH("/:id/status", auth.RequireAdmin(), h.Applications.UpdateStatus)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

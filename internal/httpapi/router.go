package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/common"
	"github.com/viVeK21111/chatgpt-clone/internal/httpapi/handlers"
	"github.com/viVeK21111/chatgpt-clone/internal/httpapi/middleware"
)

// NewRouter mounts every route. limiter may be nil.
func NewRouter(h *handlers.Handler, jwtSecret string, limiter middleware.Limiter) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/ping", h.Ping)
	r.GET("/healthz", h.Health)

	api := r.Group("/api")

	// auth
	api.POST("/auth/register", middleware.RateLimit(limiter), h.Register)
	api.POST("/auth/login", middleware.RateLimit(limiter), h.Login)

	authGroup := api.Group("/")
	authGroup.Use(middleware.AuthRequired(jwtSecret))
	authGroup.GET("/auth/me", h.Me)

	// store
	authGroup.GET("/sessions", h.ListSessions)
	authGroup.POST("/sessions", h.CreateSession)
	authGroup.GET("/sessions/:session_id/exchanges", h.ListExchanges)
	authGroup.POST("/sessions/:session_id/exchanges", h.InsertExchange)
	authGroup.GET("/sessions/:session_id/messages", h.ListMessages)
	authGroup.GET("/sessions/:session_id/title-job", h.GetTitleJob)
	authGroup.GET("/jobs/:job_id", h.GetJob)

	// generation
	gen := authGroup.Group("/")
	gen.Use(middleware.RateLimit(limiter))
	gen.POST("/chat", h.Chat)
	gen.POST("/image", h.Image)
	return r
}

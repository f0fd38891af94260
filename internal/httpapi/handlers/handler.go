package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/auth"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/common"
	"github.com/viVeK21111/chatgpt-clone/internal/httpapi/middleware"
)

type Generator interface {
	GenerateText(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
	GenerateImage(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
}

// DependencyCheck is run by /healthz.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	AuthSvc   *auth.Service
	ChatSvc   *chat.Service
	Gateway   Generator
	Checks    []DependencyCheck
	StartedAt time.Time
}

func NewHandler(authSvc *auth.Service, chatSvc *chat.Service, gateway Generator, checks ...DependencyCheck) *Handler {
	return &Handler{
		AuthSvc:   authSvc,
		ChatSvc:   chatSvc,
		Gateway:   gateway,
		Checks:    checks,
		StartedAt: time.Now(),
	}
}

func userIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	return id, id != ""
}

// requireUser writes 401 and reports false when the request carries no user.
func requireUser(c *gin.Context) (string, bool) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
	}
	return uid, ok
}

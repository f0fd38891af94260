package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(gin.H, len(h.Checks))
	for _, chk := range h.Checks {
		if err := chk.Check(ctx); err != nil {
			deps[chk.Name] = err.Error()
			status = "degraded"
			continue
		}
		deps[chk.Name] = "ok"
	}

	body := gin.H{
		"status":       status,
		"dependencies": deps,
		"uptime":       time.Since(h.StartedAt).Round(time.Second).String(),
	}
	if status != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 50300, "message": status, "data": body})
		return
	}
	common.OK(c, body)
}

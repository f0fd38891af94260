package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
)

type generateReq struct {
	Prompt  string           `json:"prompt"`
	History []ai.HistoryItem `json:"history"`
}

type generateFunc func(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)

// Chat and Image answer with a bare {text} or {error} body.
func (h *Handler) Chat(c *gin.Context) {
	h.generate(c, "Chat", h.Gateway.GenerateText, "Failed to generate response")
}

func (h *Handler) Image(c *gin.Context) {
	h.generate(c, "Image", h.Gateway.GenerateImage, "Failed to generate image")
}

func (h *Handler) generate(c *gin.Context, op string, fn generateFunc, failMsg string) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[%s] bad body err=%v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	uid, _ := userIDFromContext(c)
	text, err := fn(c.Request.Context(), req.Prompt, req.History)
	if err != nil {
		log.Printf("[%s] uid=%s history=%d err=%v", op, uid, len(req.History), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

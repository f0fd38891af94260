package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

func storeFail(c *gin.Context, op string, uid string, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
	case errors.Is(err, chat.ErrJobNotFound):
		common.Fail(c, http.StatusNotFound, 40402, "job not found")
	case errors.Is(err, chat.ErrInvalidInput):
		common.Fail(c, http.StatusBadRequest, 10002, err.Error())
	default:
		log.Printf("[%s] uid=%s session_id=%s err=%v", op, uid, c.Param("session_id"), err)
		common.Fail(c, http.StatusInternalServerError, 50002, "store error")
	}
}

func (h *Handler) ListSessions(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	sessions, err := h.ChatSvc.ListSessions(c.Request.Context(), uid)
	if err != nil {
		storeFail(c, "ListSessions", uid, err)
		return
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	common.OK(c, sessions)
}

func (h *Handler) CreateSession(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), uid)
	if err != nil {
		storeFail(c, "CreateSession", uid, err)
		return
	}
	common.Created(c, sess)
}

func (h *Handler) ListExchanges(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	exchanges, err := h.ChatSvc.ListExchanges(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		storeFail(c, "ListExchanges", uid, err)
		return
	}
	if exchanges == nil {
		exchanges = []chat.Exchange{}
	}
	common.OK(c, exchanges)
}

func (h *Handler) InsertExchange(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var req chat.ExchangeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	ex, err := h.ChatSvc.InsertExchange(c.Request.Context(), uid, c.Param("session_id"), req)
	if err != nil {
		storeFail(c, "InsertExchange", uid, err)
		return
	}
	common.Created(c, ex)
}

// ListMessages returns the expanded display list of a session.
func (h *Handler) ListMessages(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	msgs, err := h.ChatSvc.ListDisplayMessages(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		storeFail(c, "ListMessages", uid, err)
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

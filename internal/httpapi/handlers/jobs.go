package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

func jobBody(j *chat.Job) gin.H {
	return gin.H{
		"job": gin.H{
			"id":         j.ID,
			"session_id": j.SessionID,
			"kind":       j.Kind,
			"status":     j.Status,
			"error":      j.Error,
			"created_at": j.CreatedAt,
			"updated_at": j.UpdatedAt,
		},
	}
}

func (h *Handler) GetJob(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.ChatSvc.GetJob(c.Request.Context(), uid, jobID)
	if err != nil {
		storeFail(c, "GetJob", uid, err)
		return
	}
	common.OK(c, jobBody(j))
}

// GetTitleJob reports the latest title job of a session, so a client can
// poll until the title is set.
func (h *Handler) GetTitleJob(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	j, err := h.ChatSvc.GetTitleJob(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		storeFail(c, "GetTitleJob", uid, err)
		return
	}
	common.OK(c, jobBody(j))
}

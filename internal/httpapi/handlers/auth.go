package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/auth"
	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

type registerReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.AuthSvc.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		common.Created(c, res)
	case errors.Is(err, auth.ErrInvalidInput):
		common.Fail(c, http.StatusBadRequest, 10002, "username, valid email and a password of at least 8 characters required")
	case errors.Is(err, auth.ErrUsernameExists):
		common.Fail(c, http.StatusConflict, 40901, "username already exists")
	case errors.Is(err, auth.ErrEmailExists):
		common.Fail(c, http.StatusConflict, 40902, "email already exists")
	default:
		log.Printf("[Register] username=%s err=%v", req.Username, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create account")
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.AuthSvc.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		common.OK(c, res)
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrInvalidCredential):
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid username or password")
	default:
		log.Printf("[Login] username=%s err=%v", req.Username, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "login failed")
	}
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	acc, err := h.AuthSvc.GetAccount(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "account not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "db error")
		return
	}
	common.OK(c, acc)
}

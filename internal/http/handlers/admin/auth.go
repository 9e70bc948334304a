package admin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/herdbook/paycore/internal/http/response"
	"github.com/herdbook/paycore/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理端登录
// POST /api/v1/admin/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.ServerError(c, "login failed")
		return
	}
	response.OK(c, gin.H{"token": token})
}

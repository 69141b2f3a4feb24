package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/service"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListUsers 用户列表（审核人选择）
// GET /api/v1/users?role=mentor
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, err := h.userSvc.List(c.Request.Context(), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	response.List(c, list)
}

// GetCurrentUser 当前用户信息
// GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.userSvc.Me(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

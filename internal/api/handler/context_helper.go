package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/internal/api/middleware"
	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

// MustGetActor 从 Gin 上下文中安全提取当前用户。
// 如果 JWT 中间件未正确注入 user_id / role，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetActor(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return model.Actor{}, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return model.Actor{}, false
	}

	role := model.Role(c.GetString(middleware.CtxRole))
	if !role.Valid() {
		response.Forbidden(c, response.CodeForbidden, "未知角色")
		return model.Actor{}, false
	}
	return model.Actor{ID: id, Role: role}, true
}

// MustGetID 解析路径参数 :id
func MustGetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, response.CodeInvalidParams, "ID 格式无效")
		return 0, false
	}
	return uint(id), true
}

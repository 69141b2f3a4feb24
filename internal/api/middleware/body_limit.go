package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// Content-Length 已超限时直接拒绝，否则以 MaxBytesReader 包装，读取超限由 Handler 映射为 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}

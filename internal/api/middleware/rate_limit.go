package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yyw2wyy/workload-system/pkg/response"
)

// WindowCounter 分布式滑动窗口计数（Redis 实现）
type WindowCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// localLimiters 进程内令牌桶，Redis 不可用时兜底
type localLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newLocalLimiters(limit int, window time.Duration) *localLimiters {
	return &localLimiters{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit 写接口限流中间件
// 按 用户（未认证时按 IP）+ 路由 计数；counter 为 nil 或出错时使用进程内令牌桶
// limit <= 0 时不限流
func RateLimit(counter WindowCounter, limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiters(limit, window)

	return func(c *gin.Context) {
		subject := c.ClientIP()
		if uid, ok := c.Get(CtxUserID); ok {
			subject = fmt.Sprintf("u%v", uid)
		}
		key := fmt.Sprintf("rate_limit:%s:%s:%s", subject, c.Request.Method, c.FullPath())

		allowed := false
		checked := false
		if counter != nil {
			ok, err := counter.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err == nil {
				allowed, checked = ok, true
			}
		}
		if !checked {
			allowed = local.allow(key)
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

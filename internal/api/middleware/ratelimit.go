package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SubSh2004/CampusZon-sub000/config"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
	"github.com/SubSh2004/CampusZon-sub000/pkg/ratelimit"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

// WindowLimiter 滑动窗口限流器
type WindowLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error)
}

// KeyFunc 从请求中取限流维度
type KeyFunc func(c *gin.Context) string

// ByIP 按客户端 IP
func ByIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

// ByCaller 按登录用户，未登录时退化为 IP
func ByCaller(c *gin.Context) string {
	if caller, ok := CallerFrom(c); ok {
		return "user:" + caller.ID
	}
	return ByIP(c)
}

// RateLimit 超出窗口直接拒绝，请求不会进入业务处理。
// 限流存储不可用时放行并记录告警。
func RateLimit(l WindowLimiter, name string, rule config.Window, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || rule.Limit <= 0 {
			c.Next()
			return
		}
		d, err := l.Allow(c.Request.Context(), fmt.Sprintf("%s:%s", name, key(c)), rule.Limit, rule.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.String("rule", name), zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))
		if !d.Allowed {
			secs := int(d.RetryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			response.Abort(c, errcode.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// Burst 进程内令牌桶，按 IP 限制瞬时突发
func Burst(l *ratelimit.LocalLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l != nil && !l.Allow(c.ClientIP()) {
			response.Abort(c, errcode.ErrRateLimited)
			return
		}
		c.Next()
	}
}

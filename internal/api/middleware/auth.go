package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

const callerKey = "caller"

// Auth 校验 Bearer 令牌，并把请求方身份放入本次请求的上下文
func Auth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		claims, err := issuer.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		SetCaller(c, service.Caller{
			ID:      claims.Subject,
			Email:   claims.Email,
			Campus:  claims.Campus,
			IsAdmin: claims.IsAdmin,
		})
		c.Next()
	}
}

// RequireAdmin 仅管理员可访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || !caller.IsAdmin {
			response.Abort(c, errcode.New(errcode.KindForbidden, "admin only"))
			return
		}
		c.Next()
	}
}

func SetCaller(c *gin.Context, caller service.Caller) { c.Set(callerKey, caller) }

// CallerFrom 读取认证中间件写入的身份
func CallerFrom(c *gin.Context) (service.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return service.Caller{}, false
	}
	caller, ok := v.(service.Caller)
	return caller, ok
}

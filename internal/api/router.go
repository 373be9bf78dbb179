package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/SubSh2004/CampusZon-sub000/config"
	"github.com/SubSh2004/CampusZon-sub000/internal/api/handler"
	"github.com/SubSh2004/CampusZon-sub000/internal/api/middleware"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/ratelimit"
)

// RouterDeps 路由依赖；Redis、Limiter 为空时对应的守卫直接放行
type RouterDeps struct {
	Handler        *handler.Handler
	Issuer         *auth.Issuer
	Redis          *redis.Client
	Limiter        middleware.WindowLimiter
	Burst          *ratelimit.LocalLimiter
	RateLimit      config.RateLimitConfig
	IdempotencyTTL time.Duration
	ServiceName    string
	Tracing        bool
	Sentry         bool
}

// NewRouter 组装中间件与全部路由
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}))
	}
	if d.Tracing {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middleware.RequestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := d.Handler
	rl := d.RateLimit
	idem := middleware.Idempotency(d.Redis, d.IdempotencyTTL)
	limit := func(name string, rule config.Window, key middleware.KeyFunc) gin.HandlerFunc {
		return middleware.RateLimit(d.Limiter, name, rule, key)
	}

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth", middleware.Burst(d.Burst), limit("auth", rl.Auth, middleware.ByIP))
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	// 网关回调不带用户身份，靠签名认证
	v1.GET("/tokens/packages", h.Packages)
	v1.POST("/tokens/webhook", h.Webhook)

	secured := v1.Group("", middleware.Auth(d.Issuer))

	users := secured.Group("/users")
	{
		users.GET("/me", h.Me)
		users.PUT("/me/preferences", h.UpdatePreferences)
	}

	items := secured.Group("/items")
	{
		items.POST("", limit("item_create", rl.ItemCreate, middleware.ByCaller), idem, h.CreateItem)
		items.GET("", h.ListItems)
		items.GET("/mine", h.MyItems)
		items.GET("/:id", h.GetItem)
		items.POST("/:id/report", limit("report", rl.Report, middleware.ByCaller), idem, h.ReportItem)
		items.POST("/:id/moderate", middleware.RequireAdmin(), idem, h.ModerateItem)
	}

	unlock := secured.Group("/unlock")
	{
		unlock.POST("/items/:id", limit("unlock", rl.Unlock, middleware.ByCaller), idem, h.Unlock)
		unlock.GET("/items/:id/status", h.UnlockStatus)
		unlock.GET("/mine", h.MyUnlocks)
	}

	booking := secured.Group("/booking")
	{
		booking.POST("", idem, h.CreateBooking)
		booking.GET("/mine", h.MyBookings)
		booking.GET("/unread-count", h.UnreadCount)
		booking.PUT("/:id/status", idem, h.DecideBooking)
		booking.PUT("/:id/read", h.MarkBookingRead)
		booking.DELETE("/:id", h.DeleteBooking)
	}

	tokens := secured.Group("/tokens")
	{
		tokens.POST("/purchase", limit("purchase", rl.Purchase, middleware.ByCaller), idem, h.Purchase)
		tokens.POST("/verify", idem, h.Verify)
		tokens.GET("/balance", h.Balance)
		tokens.GET("/history", h.PaymentHistory)
		tokens.GET("/ledger", h.LedgerEntries)
	}

	admin := secured.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/items/flagged", h.FlaggedItems)
	}

	return r
}

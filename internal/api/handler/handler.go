package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/internal/api/middleware"
	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

// LedgerReader 余额与流水查询
type LedgerReader interface {
	Balance(ctx context.Context, userID string) (model.Tokens, error)
	Entries(ctx context.Context, userID string, page, pageSize int) ([]*model.LedgerEntry, error)
}

// Services handler 依赖的业务服务
type Services struct {
	Auth       service.AuthService
	Items      service.ItemService
	Unlocks    service.UnlockService
	Bookings   service.BookingService
	Moderation service.ModerationService
	Payments   service.PaymentService
	Ledger     LedgerReader
}

type Handler struct {
	authService       service.AuthService
	itemService       service.ItemService
	unlockService     service.UnlockService
	bookingService    service.BookingService
	moderationService service.ModerationService
	paymentService    service.PaymentService
	ledger            LedgerReader
}

func NewHandler(s Services) *Handler {
	return &Handler{
		authService:       s.Auth,
		itemService:       s.Items,
		unlockService:     s.Unlocks,
		bookingService:    s.Bookings,
		moderationService: s.Moderation,
		paymentService:    s.Payments,
		ledger:            s.Ledger,
	}
}

// caller 取出认证中间件写入的调用方；缺失时直接返回 401
func caller(c *gin.Context) (service.Caller, bool) {
	cl, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "missing credentials")
	}
	return cl, ok
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

type pageResult struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	List     interface{} `json:"list"`
}

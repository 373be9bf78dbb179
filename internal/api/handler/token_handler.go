package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

// WebhookSignatureHeader 网关回调签名头
const WebhookSignatureHeader = "X-Razorpay-Signature"

type purchaseRequest struct {
	PackageID string `json:"package_id" binding:"required"`
}

type verifyRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Packages 代币套餐
// @Summary 代币套餐列表
// @Tags 代币
// @Produce json
// @Success 200 {object} response.Response{data=[]config.TokenPackage}
// @Router /api/v1/tokens/packages [get]
func (h *Handler) Packages(c *gin.Context) {
	response.Success(c, h.paymentService.Packages())
}

// Purchase 创建支付订单
// @Summary 购买代币（创建网关订单）
// @Tags 代币
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param request body purchaseRequest true "套餐"
// @Success 201 {object} response.Response{data=service.PurchaseOrder}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/tokens/purchase [post]
func (h *Handler) Purchase(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.paymentService.Purchase(c.Request.Context(), cl, req.PackageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// Verify 客户端支付回调
// @Summary 校验支付签名并入账
// @Description 同一订单只入账一次，重复回调返回 credited=false
// @Tags 代币
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body verifyRequest true "网关回调参数"
// @Success 200 {object} response.Response{data=service.VerifyResult}
// @Failure 400 {object} response.Response
// @Router /api/v1/tokens/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.paymentService.Verify(c.Request.Context(), cl, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Webhook 网关服务端回调
// @Summary 支付网关 webhook
// @Tags 代币
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 签名"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/tokens/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader(WebhookSignatureHeader)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Balance 当前余额
// @Summary 代币余额
// @Tags 代币
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]number}
// @Router /api/v1/tokens/balance [get]
func (h *Handler) Balance(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	bal, err := h.ledger.Balance(c.Request.Context(), cl.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"balance": bal})
}

// PaymentHistory 购买记录
// @Summary 购买记录
// @Tags 代币
// @Produce json
// @Security BearerAuth
// @Param limit query int false "条数" default(50)
// @Success 200 {object} response.Response{data=[]model.Payment}
// @Router /api/v1/tokens/history [get]
func (h *Handler) PaymentHistory(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.paymentService.History(c.Request.Context(), cl, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// LedgerEntries 余额流水
// @Summary 代币流水
// @Tags 代币
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pageResult}
// @Router /api/v1/tokens/ledger [get]
func (h *Handler) LedgerEntries(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	list, err := h.ledger.Entries(c.Request.Context(), cl.ID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pageResult{Page: page, PageSize: pageSize, List: list})
}

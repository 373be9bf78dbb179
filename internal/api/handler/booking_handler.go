package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

const (
	decisionAccepted = "accepted"
	decisionRejected = "rejected"
)

type createBookingRequest struct {
	ItemID  string `json:"item_id" binding:"required"`
	Message string `json:"message" binding:"max=1000"`
}

type bookingStatusRequest struct {
	Status        string `json:"status" binding:"required,booking_decision"`
	RejectionNote string `json:"rejection_note" binding:"max=1000"`
}

// CreateBooking 发起预约
// @Summary 发起预约
// @Tags 预约
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param request body createBookingRequest true "预约信息"
// @Success 201 {object} response.Response{data=model.Booking}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/booking [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.bookingService.Create(c.Request.Context(), cl, req.ItemID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, b)
}

// DecideBooking 卖家接受或拒绝
// @Summary 接受/拒绝预约
// @Description 拒绝必须附带说明，并向买家退还 0.5 代币
// @Tags 预约
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param id path string true "预约ID"
// @Param request body bookingStatusRequest true "决定"
// @Success 200 {object} response.Response{data=model.Booking}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/booking/{id}/status [put]
func (h *Handler) DecideBooking(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req bookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	var (
		b   *model.Booking
		err error
	)
	switch req.Status {
	case decisionAccepted:
		b, err = h.bookingService.Accept(ctx, cl, c.Param("id"))
	case decisionRejected:
		b, err = h.bookingService.Reject(ctx, cl, c.Param("id"), req.RejectionNote)
	default:
		err = errcode.New(errcode.KindInvalidArgument, "status must be accepted or rejected")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, b)
}

// DeleteBooking 买家删除预约
// @Summary 删除预约
// @Description 只能删除自己待处理或已拒绝的预约
// @Tags 预约
// @Produce json
// @Security BearerAuth
// @Param id path string true "预约ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/booking/{id} [delete]
func (h *Handler) DeleteBooking(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	if err := h.bookingService.Delete(c.Request.Context(), cl, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MyBookings 我的预约
// @Summary 我的预约
// @Tags 预约
// @Produce json
// @Security BearerAuth
// @Param role query string false "buyer 或 seller" default(buyer)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pageResult}
// @Router /api/v1/booking/mine [get]
func (h *Handler) MyBookings(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	role := service.BookingRole(c.DefaultQuery("role", string(service.RoleBuyer)))
	if role != service.RoleBuyer && role != service.RoleSeller {
		response.BadRequest(c, "role must be buyer or seller")
		return
	}
	page, pageSize := pagination(c)
	list, err := h.bookingService.ListMine(c.Request.Context(), cl, role, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pageResult{Page: page, PageSize: pageSize, List: list})
}

// UnreadCount 未读数
// @Summary 预约未读数
// @Tags 预约
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/v1/booking/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	n, err := h.bookingService.UnreadCount(c.Request.Context(), cl)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"count": n})
}

// MarkBookingRead 标记已读
// @Summary 标记预约已读
// @Tags 预约
// @Produce json
// @Security BearerAuth
// @Param id path string true "预约ID"
// @Success 200 {object} response.Response
// @Router /api/v1/booking/{id}/read [put]
func (h *Handler) MarkBookingRead(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	if err := h.bookingService.MarkRead(c.Request.Context(), cl, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

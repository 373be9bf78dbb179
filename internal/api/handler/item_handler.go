package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

type createItemRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"max=5000"`
	Category    string   `json:"category" binding:"omitempty,max=50"`
	Price       int64    `json:"price" binding:"gte=0"`
	ImageURLs   []string `json:"image_urls" binding:"max=10,dive,url"`
}

type reportRequest struct {
	Reason      string `json:"reason" binding:"required,max=50"`
	Description string `json:"description" binding:"max=1000"`
}

type moderateRequest struct {
	Action string `json:"action" binding:"required,campus_action"`
	Notes  string `json:"notes" binding:"max=1000"`
}

// CreateItem 发布商品
// @Summary 发布商品
// @Description 图片被分类器标记或分类器不可用时进入人工审核队列
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param request body createItemRequest true "商品信息"
// @Success 201 {object} response.Response{data=model.Item}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/items [post]
func (h *Handler) CreateItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.itemService.Create(c.Request.Context(), cl, service.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListItems 校园内公开商品
// @Summary 公开商品列表
// @Tags 商品
// @Produce json
// @Security BearerAuth
// @Param category query string false "分类"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pageResult}
// @Router /api/v1/items [get]
func (h *Handler) ListItems(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	list, err := h.itemService.ListPublic(c.Request.Context(), cl, c.Query("category"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pageResult{Page: page, PageSize: pageSize, List: list})
}

// MyItems 我发布的商品
// @Summary 我发布的商品
// @Tags 商品
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pageResult}
// @Router /api/v1/items/mine [get]
func (h *Handler) MyItems(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	list, err := h.itemService.ListMine(c.Request.Context(), cl, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pageResult{Page: page, PageSize: pageSize, List: list})
}

// GetItem 商品详情
// @Summary 商品详情
// @Tags 商品
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} response.Response{data=model.Item}
// @Failure 404 {object} response.Response
// @Router /api/v1/items/{id} [get]
func (h *Handler) GetItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	item, err := h.itemService.Get(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, item)
}

// ReportItem 举报商品
// @Summary 举报商品
// @Description 同一用户对同一商品同一原因的重复举报在窗口期内返回已有记录
// @Tags 审核
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param id path string true "商品ID"
// @Param request body reportRequest true "举报信息"
// @Success 201 {object} response.Response{data=service.ReportResult}
// @Success 200 {object} response.Response{data=service.ReportResult}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/items/{id}/report [post]
func (h *Handler) ReportItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.moderationService.Report(c.Request.Context(), cl, c.Param("id"), req.Reason, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Duplicate {
		response.Success(c, res)
		return
	}
	response.Created(c, res)
}

// ModerateItem 管理员审核
// @Summary 审核商品
// @Description action: keep / warn / remove
// @Tags 审核
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Param request body moderateRequest true "审核动作"
// @Success 200 {object} response.Response{data=model.Item}
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/items/{id}/moderate [post]
func (h *Handler) ModerateItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.moderationService.Moderate(c.Request.Context(), cl, c.Param("id"), service.ModerationAction(req.Action), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, item)
}

// FlaggedItems 待审核商品
// @Summary 被举报或待审核的商品
// @Tags 审核
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pageResult}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/items/flagged [get]
func (h *Handler) FlaggedItems(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	list, err := h.moderationService.ListFlagged(c.Request.Context(), cl, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pageResult{Page: page, PageSize: pageSize, List: list})
}

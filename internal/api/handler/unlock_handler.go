package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

// Unlock 解锁卖家联系方式
// @Summary 解锁卖家联系方式
// @Description 每个用户每个商品最多扣费一次，重复请求直接返回联系方式
// @Tags 解锁
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param id path string true "商品ID"
// @Success 200 {object} response.Response{data=service.UnlockResult}
// @Failure 402 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/unlock/items/{id} [post]
func (h *Handler) Unlock(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.unlockService.Unlock(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UnlockStatus 解锁状态
// @Summary 查询解锁状态（不扣费）
// @Tags 解锁
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} response.Response{data=service.UnlockStatus}
// @Router /api/v1/unlock/items/{id}/status [get]
func (h *Handler) UnlockStatus(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	st, err := h.unlockService.CheckStatus(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, st)
}

// MyUnlocks 已解锁的商品
// @Summary 已解锁列表
// @Tags 解锁
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pageResult}
// @Router /api/v1/unlock/mine [get]
func (h *Handler) MyUnlocks(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	list, err := h.unlockService.ListMine(c.Request.Context(), cl, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pageResult{Page: page, PageSize: pageSize, List: list})
}

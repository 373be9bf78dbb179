package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Phone    string `json:"phone" binding:"omitempty,max=32"`
	Hostel   string `json:"hostel" binding:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type preferencesRequest struct {
	SkipUnlockConfirmation *bool `json:"skip_unlock_confirmation" binding:"required"`
}

// Register 注册
// @Summary 注册账号
// @Description 校园范围取自邮箱域名，初始余额为 0
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 201 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Hostel:   req.Hostel,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Login 登录
// @Summary 登录并获取 JWT
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.LoginResult}
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Me 当前用户
// @Summary 当前用户资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), cl)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// UpdatePreferences 更新偏好
// @Summary 更新解锁确认偏好
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body preferencesRequest true "偏好"
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/users/me/preferences [put]
func (h *Handler) UpdatePreferences(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.authService.UpdatePreferences(c.Request.Context(), cl, *req.SkipUnlockConfirmation)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

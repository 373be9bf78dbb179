package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   errcode.Kind `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Error: errcode.KindInvalidArgument, Message: msg})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: errcode.KindUnauthorized, Message: msg})
}

// InternalError 服务器内部错误，不向调用方暴露细节
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	c.JSON(http.StatusInternalServerError, Response{Error: errcode.KindInternal, Message: "internal server error"})
}

// Error 将业务错误映射为 HTTP 响应；非业务错误按内部错误处理
func Error(c *gin.Context, err error) {
	var e *errcode.Error
	if !errors.As(err, &e) {
		InternalError(c, err)
		return
	}
	c.JSON(errcode.HTTPStatus(e.Kind), Response{Error: e.Kind, Message: e.Message})
}

// Abort 与 Error 相同，但终止后续中间件
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// notFound 将记录不存在转换为 NOT_FOUND，其余错误原样包装
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errcode.New(errcode.KindNotFound, "%s not found", what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// ledgerError 将账本仓储错误转换为业务错误
func ledgerError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return errcode.ErrInsufficientTokens
	case errors.Is(err, repository.ErrNonPositiveAmount):
		return errcode.New(errcode.KindInvalidArgument, "amount must be positive")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errcode.New(errcode.KindNotFound, "user not found")
	}
	return err
}

// invariantViolation 记录不应发生的状态并以内部错误返回
func invariantViolation(name string, fields ...zap.Field) error {
	logger.Error("invariant violated", append([]zap.Field{zap.String("invariant", name)}, fields...)...)
	return fmt.Errorf("invariant violated: %s", name)
}

// Package errcode 定义业务错误类别。业务规则失败统一以 *Error 返回，
// 只有基础设施故障以普通 error 向上传递。
package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 机器可读的错误类别
type Kind string

const (
	KindInsufficientTokens        Kind = "INSUFFICIENT_TOKENS"
	KindIllegalTransition         Kind = "ILLEGAL_TRANSITION"
	KindSelfUnlockNotAllowed      Kind = "SELF_UNLOCK_NOT_ALLOWED"
	KindRateLimited               Kind = "RATE_LIMITED"
	KindForbidden                 Kind = "FORBIDDEN"
	KindNotFound                  Kind = "NOT_FOUND"
	KindPaymentVerificationFailed Kind = "PAYMENT_VERIFICATION_FAILED"
	KindInvalidArgument           Kind = "INVALID_ARGUMENT"
	KindUnauthorized              Kind = "UNAUTHORIZED"
	KindConflict                  Kind = "CONFLICT"
	KindInternal                  Kind = "INTERNAL"
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is 按类别匹配，便于 errors.Is(err, errcode.ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建指定类别的错误
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInsufficientTokens        = &Error{Kind: KindInsufficientTokens, Message: "insufficient tokens"}
	ErrIllegalTransition         = &Error{Kind: KindIllegalTransition, Message: "illegal state transition"}
	ErrSelfUnlockNotAllowed      = &Error{Kind: KindSelfUnlockNotAllowed, Message: "cannot unlock your own item"}
	ErrRateLimited               = &Error{Kind: KindRateLimited, Message: "too many requests, slow down"}
	ErrForbidden                 = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound                  = &Error{Kind: KindNotFound, Message: "not found"}
	ErrPaymentVerificationFailed = &Error{Kind: KindPaymentVerificationFailed, Message: "payment verification failed"}
	ErrUnauthorized              = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrConflict                  = &Error{Kind: KindConflict, Message: "conflict"}
)

// KindOf 返回错误的类别，非业务错误视为 INTERNAL
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 类别对应的 HTTP 状态码
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInsufficientTokens:
		return http.StatusPaymentRequired
	case KindIllegalTransition, KindConflict:
		return http.StatusConflict
	case KindSelfUnlockNotAllowed, KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindPaymentVerificationFailed, KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

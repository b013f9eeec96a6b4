package errorutil

import (
	"errors"
	"fmt"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/pkg/errorx"
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Retriable 可重试错误（存储故障、超时等）
func Retriable(message string) *Error {
	return &Error{Code: 500, Message: message, Retryable: true}
}

// NonRetriable 不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{Code: 400, Message: message, Retryable: false}
}

// NonRetriableWithDetails 不可重试错误（带详细信息）
func NonRetriableWithDetails(message string, details string) *Error {
	return &Error{Code: 400, Message: message, Retryable: false, DevDetails: details}
}

// 重投也不会成功的业务错误
var permanent = []error{
	errorx.ErrCaseNotFound,
	errorx.ErrInvalidTransition,
	errorx.ErrUnitMismatch,
	etprimitive.ErrInvalidCoordinates,
}

// Wrap 包装错误，自动判断是否可重试
// 已知业务错误不可重试，其余（存储、网络、超时）视为临时故障
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	for _, p := range permanent {
		if errors.Is(err, p) {
			code := 400
			if errors.Is(err, errorx.ErrCaseNotFound) {
				code = 404
			}
			return &Error{Code: code, Message: err.Error(), Retryable: false}
		}
	}

	return &Error{
		Code:       500,
		Message:    err.Error(),
		Retryable:  true,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

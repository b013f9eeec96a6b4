package errorx

import (
	"errors"
	"fmt"
)

// 业务错误分类（上层通过 errors.Is 判断）
var (
	// ErrClassifierUnavailable 分类后端不可达或超时，由调度降级兜底，不直接暴露给请求方
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrInvalidTransition 非法状态流转
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrActiveCaseExists 请求方已有未结束的 Case
	ErrActiveCaseExists = errors.New("active case exists")
	// ErrPoolUnavailable 降级路径也拿不到任何车辆，唯一的致命错误
	ErrPoolUnavailable = errors.New("pool unavailable")

	ErrCaseNotFound    = errors.New("case not found")
	ErrProfileNotFound = errors.New("profile not found")
	// ErrUnitMismatch 上报位置的车辆不是该 Case 指派的车辆
	ErrUnitMismatch = errors.New("unit is not assigned to case")
)

// ActiveCaseError 携带已存在的活跃 Case ID，便于前端跳转
type ActiveCaseError struct {
	CaseID      string
	RequesterID string
}

func (e *ActiveCaseError) Error() string {
	return fmt.Sprintf("requester %s already has active case %s", e.RequesterID, e.CaseID)
}

// Unwrap 支持 errors.Is(err, ErrActiveCaseExists)
func (e *ActiveCaseError) Unwrap() error {
	return ErrActiveCaseExists
}

// BusinessError 业务错误结构
type BusinessError struct {
	Code    int
	Message string
	Details []ErrorDetail
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string
	Info string
}

// Error 实现 error 接口
func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

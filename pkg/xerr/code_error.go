package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Newf 格式化消息
func Newf(code int, format string, args ...interface{}) *CodeError {
	return &CodeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf 资源不存在
func NotFoundf(format string, args ...interface{}) *CodeError {
	return Newf(NotFound, format, args...)
}

// Conflictf 状态冲突（流程顺序错误、重复状态、终态操作）
func Conflictf(format string, args ...interface{}) *CodeError {
	return Newf(Conflict, format, args...)
}

// BadRequestf 参数校验失败
func BadRequestf(format string, args ...interface{}) *CodeError {
	return Newf(BadRequest, format, args...)
}

// As 从错误链中取出 CodeError
func As(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsCode 判断错误链中是否包含指定 code
func IsCode(err error, code int) bool {
	ce, ok := As(err)
	return ok && ce.Code == code
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

// 常用预定义错误
var (
	ErrSuccess      = New(OK, "Success")
	ErrServerError  = New(InternalServerError, "Internal server error")
	ErrParam        = New(BadRequest, "Invalid parameters")
	ErrUnauthorized = New(Unauthorized, "Unauthorized")
)

package errors

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	ErrNotFound       = New(404, "not found")
	ErrUnauthorized   = New(401, "unauthorized")
	ErrForbidden      = New(403, "forbidden")
	ErrBadRequest     = New(400, "bad request")
	ErrInternalServer = New(500, "internal server error")
	ErrValidation     = New(422, "validation error")
)

// 认证与授权错误, 消息对外稳定
var (
	ErrInvalidCredentials     = New(401, "invalid credentials")
	ErrInvalidClient          = Wrap(ErrInvalidCredentials, 401, "invalid client credentials")
	ErrAccountDisabled        = New(403, "account disabled")
	ErrClientDisabled         = New(403, "client disabled")
	ErrTokenExpired           = New(401, "token expired")
	ErrTokenMalformed         = New(401, "invalid token")
	ErrInsufficientPermission = New(403, "no permission")
	ErrScopeExceeded          = New(400, "requested scope exceeds grant")
	ErrUnsupportedGrantType   = New(400, "unsupported grant type")
	ErrUserNotFound           = Wrap(ErrNotFound, 404, "user not found")
	ErrRoleImmutable          = New(403, "admin role is immutable")
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 解包错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode 获取错误码, 非AppError返回500
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 500
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    404,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     ErrNotFound,
	}
}

// BadRequest 创建请求错误
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    400,
		Message: message,
		Err:     ErrBadRequest,
	}
}

// Validation 创建验证错误
func Validation(message string) *AppError {
	return &AppError{
		Code:    422,
		Message: message,
		Err:     ErrValidation,
	}
}

// Internal 创建内部错误, 原始错误只进日志
func Internal(err error) *AppError {
	return &AppError{
		Code:    500,
		Message: ErrInternalServer.Message,
		Err:     err,
	}
}

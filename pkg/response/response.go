package response

import (
	"net/http"

	"github.com/authcore/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 响应码定义
const (
	CodeSuccess = 0
)

// 响应消息定义
const (
	MsgSuccess = "success"
)

// Success 成功响应
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    CodeSuccess,
		Message: MsgSuccess,
		Data:    data,
	})
}

// Error 错误响应, HTTP状态码与业务码一致
func Error(c *fiber.Ctx, code int, message string) error {
	return c.Status(httpStatus(code)).JSON(Response{
		Code:    code,
		Message: message,
	})
}

// Fail 按AppError输出错误, 非AppError统一为500
func Fail(c *fiber.Ctx, err error) error {
	code := errors.GetCode(err)
	message := errors.GetMessage(err)
	if code >= http.StatusInternalServerError {
		message = errors.ErrInternalServer.Message
	}
	return Error(c, code, message)
}

// Unauthorized 未授权
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = errors.ErrUnauthorized.Message
	}
	return Error(c, http.StatusUnauthorized, message)
}

// Forbidden 禁止访问
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = errors.ErrForbidden.Message
	}
	return Error(c, http.StatusForbidden, message)
}

// BadRequest 请求错误
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

func httpStatus(code int) int {
	if code < 400 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}

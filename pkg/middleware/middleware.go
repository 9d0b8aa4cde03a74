package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/metrics"
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	localClaims    = "claims"
	localToken     = "token"
	localRequestID = "requestId"
)

// TokenVerifier 令牌校验
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authorizer 用户权限校验
type Authorizer interface {
	Authorize(ctx context.Context, userID int64, required string) error
}

// BearerAuth 令牌认证中间件, 失败时在任何处理逻辑之前返回401
func BearerAuth(verifier TokenVerifier, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			m.AuthFailure("missing_token")
			return response.Unauthorized(c, errors.ErrUnauthorized.Message)
		}

		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, errors.ErrTokenExpired) {
				m.AuthFailure("token_expired")
			} else {
				m.AuthFailure("token_malformed")
			}
			return response.Unauthorized(c, errors.GetMessage(err))
		}

		c.Locals(localClaims, claims)
		c.Locals(localToken, strings.TrimSpace(token))
		return c.Next()
	}
}

// Principal 当前请求的令牌主体, 未认证时返回nil
func Principal(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(localClaims).(*auth.Claims)
	return claims
}

// Token 当前请求携带的原始令牌
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(localToken).(string)
	return token
}

// GetUserID 从上下文获取用户ID, 机器令牌返回0
func GetUserID(c *fiber.Ctx) int64 {
	if p := Principal(c); p != nil && !p.IsClient() {
		return p.UserID
	}
	return 0
}

// RequirePermission 权限校验中间件.
// 用户令牌交给 Authorizer, 客户端令牌按令牌内的 scopes 匹配.
func RequirePermission(authz Authorizer, permission string, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := Principal(c)
		if p == nil {
			return response.Unauthorized(c, "")
		}

		var err error
		if p.IsClient() {
			if !auth.MatchesAny(p.Scopes, permission) {
				err = errors.ErrInsufficientPermission
			}
		} else {
			err = authz.Authorize(c.UserContext(), p.UserID, permission)
		}
		if err != nil {
			m.AuthFailure("forbidden")
			return err
		}
		return c.Next()
	}
}

// Recovery 恢复中间件
func Recovery(log *zap.Logger) fiber.Handler {
	log = logger.OrNop(log)
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
					zap.String("requestId", RequestIDFrom(c)),
					zap.Stack("stack"),
				)
				err = response.Error(c, http.StatusInternalServerError, errors.ErrInternalServer.Message)
			}
		}()
		return c.Next()
	}
}

// Cors 跨域中间件
func Cors() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin != "" {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Expose-Headers", "Content-Length, Content-Type, X-Request-ID")
			c.Set("Access-Control-Allow-Credentials", "true")
			c.Vary("Origin")
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals(localRequestID, requestID)
		c.Set(fiber.HeaderXRequestID, requestID)
		return c.Next()
	}
}

// RequestIDFrom 从上下文获取请求ID
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// RateLimit 按客户端IP限流
func RateLimit(max int, window time.Duration, m *metrics.Metrics) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			m.AuthFailure("rate_limited")
			return response.Error(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}

// ErrorHandler 统一错误处理中间件, 非AppError按500处理并记录日志
func ErrorHandler(log *zap.Logger) fiber.Handler {
	log = logger.OrNop(log)
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return response.Error(c, fe.Code, fe.Message)
		}
		if errors.GetCode(err) >= http.StatusInternalServerError {
			log.Error("请求处理失败",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("requestId", RequestIDFrom(c)),
				zap.Error(err),
			)
		}
		return response.Fail(c, err)
	}
}

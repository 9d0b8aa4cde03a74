package token

import (
	"net/http"

	"github.com/authcore/pkg/binding"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/oauth"
	"github.com/authcore/pkg/router"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse OAuth2 错误响应
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Controller 令牌端点, 响应不使用统一信封
type Controller struct {
	issuer *oauth.Issuer
	log    *zap.Logger
}

// NewController 创建令牌控制器
func NewController(issuer *oauth.Issuer, log *zap.Logger) *Controller {
	return &Controller{issuer: issuer, log: logger.OrNop(log).Named("oauth")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "" }

// Routes 路由配置
func (c *Controller) Routes(mw map[string]fiber.Handler) []router.Route {
	return []router.Route{
		{ID: router.RouteToken, Method: fiber.MethodPost, Path: "/token", Handler: c.Token, Middlewares: router.Chain(mw, router.MiddlewareRateLimit)},
	}
}

// Token 客户端凭证模式签发令牌
// @Summary 签发访问令牌
// @Tags OAuth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Router /token [post]
func (c *Controller) Token(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderCacheControl, "no-store")
	ctx.Set("Pragma", "no-cache")

	var req oauth.Request
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, errors.BadRequest("invalid request body"))
	}
	// 缺少 grant_type 属于 invalid_request; 其余授权类型不检查客户端字段
	if req.GrantType != "" {
		if err := c.issuer.CheckGrantType(req.GrantType); err != nil {
			return c.fail(ctx, err)
		}
	}
	if err := binding.Validate(&req); err != nil {
		return c.fail(ctx, errors.BadRequest(errors.GetMessage(err)))
	}

	resp, err := c.issuer.Issue(ctx.UserContext(), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	c.log.Info("签发客户端令牌", zap.String("clientId", req.ClientID), zap.String("scope", resp.Scope))
	return ctx.Status(http.StatusOK).JSON(resp)
}

func (c *Controller) fail(ctx *fiber.Ctx, err error) error {
	status, code := http.StatusBadRequest, "invalid_request"
	switch {
	case errors.Is(err, errors.ErrUnsupportedGrantType):
		code = "unsupported_grant_type"
	case errors.Is(err, errors.ErrInvalidClient):
		status, code = http.StatusUnauthorized, "invalid_client"
	case errors.Is(err, errors.ErrClientDisabled):
		code = "unauthorized_client"
	case errors.Is(err, errors.ErrScopeExceeded):
		code = "invalid_scope"
	case errors.GetCode(err) >= http.StatusInternalServerError:
		c.log.Error("签发令牌失败", zap.Error(err))
		return ctx.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: "server_error"})
	}
	return ctx.Status(status).JSON(ErrorResponse{Error: code, ErrorDescription: errors.GetMessage(err)})
}

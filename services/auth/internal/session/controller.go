package session

import (
	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/binding"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/metrics"
	"github.com/authcore/pkg/middleware"
	"github.com/authcore/pkg/rbac"
	"github.com/authcore/pkg/response"
	"github.com/authcore/pkg/router"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

// UserView 对外的用户信息
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt int64     `json:"expiresAt"`
	User      *UserView `json:"user,omitempty"`
}

// MeResponse 会话初始化数据
type MeResponse struct {
	User        *UserView    `json:"user"`
	Permissions []string     `json:"permissions"`
	Menus       []*rbac.Menu `json:"menus"`
	IsAdmin     bool         `json:"isAdmin"`
}

// Controller 登录与会话
type Controller struct {
	repo     rbac.Repository
	resolver *rbac.Resolver
	hasher   *auth.Hasher
	codec    *auth.TokenCodec
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewController 创建会话控制器
func NewController(repo rbac.Repository, resolver *rbac.Resolver, hasher *auth.Hasher, codec *auth.TokenCodec, log *zap.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		repo:     repo,
		resolver: resolver,
		hasher:   hasher,
		codec:    codec,
		log:      logger.OrNop(log).Named("session"),
		metrics:  m,
	}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "" }

// Routes 路由配置
func (c *Controller) Routes(mw map[string]fiber.Handler) []router.Route {
	return []router.Route{
		{ID: router.RouteLogin, Method: fiber.MethodPost, Path: "/login", Handler: c.Login, Middlewares: router.Chain(mw, router.MiddlewareRateLimit)},
		{ID: router.RouteRefresh, Method: fiber.MethodPost, Path: "/refresh", Handler: c.Refresh, Middlewares: router.Chain(mw, router.MiddlewareAuth)},
		{ID: router.RouteMe, Method: fiber.MethodGet, Path: "/me", Handler: c.Me, Middlewares: router.Chain(mw, router.MiddlewareAuth)},
	}
}

// Login 用户名密码登录
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求"
// @Success 200 {object} response.Response
// @Router /login [post]
func (c *Controller) Login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := binding.Bind(ctx, &req); err != nil {
		return err
	}

	u, err := c.repo.FindUserByUsername(ctx.UserContext(), req.Username)
	if err != nil {
		return errors.Internal(err)
	}
	if u == nil {
		// 用户不存在时同样执行一次派生, 避免通过耗时枚举用户名
		c.hasher.Burn(req.Password)
		c.metrics.AuthFailure("invalid_credentials")
		return errors.ErrInvalidCredentials
	}
	if !c.hasher.VerifyPassword(req.Password, u.Username, u.PasswordHash) {
		c.metrics.AuthFailure("invalid_credentials")
		return errors.ErrInvalidCredentials
	}
	if !u.Enabled {
		c.metrics.AuthFailure("account_disabled")
		return errors.ErrAccountDisabled
	}
	if auth.IsLegacyHash(u.PasswordHash) {
		c.log.Warn("账号仍在使用明文密码", zap.Int64("userId", u.ID))
	}

	token, claims, err := c.codec.Sign(auth.Claims{UserID: u.ID, Username: u.Username}, 0)
	if err != nil {
		return errors.Internal(err)
	}
	c.metrics.TokenIssued("user")
	c.log.Info("用户登录", zap.Int64("userId", u.ID), zap.String("ip", ctx.IP()))

	return response.Success(ctx, &LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		User:      viewOf(u),
	})
}

// Refresh 用仍然有效的令牌换取新令牌
// @Summary 刷新令牌
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response
// @Router /refresh [post]
func (c *Controller) Refresh(ctx *fiber.Ctx) error {
	p := middleware.Principal(ctx)
	if p == nil || p.IsClient() {
		return errors.ErrForbidden
	}

	u, err := c.repo.FindUserByID(ctx.UserContext(), p.UserID)
	if err != nil {
		return errors.Internal(err)
	}
	if u == nil {
		return errors.ErrInvalidCredentials
	}
	if !u.Enabled {
		return errors.ErrAccountDisabled
	}

	token, claims, err := c.codec.Refresh(middleware.Token(ctx), 0)
	if err != nil {
		return err
	}
	c.metrics.TokenIssued("refresh")
	return response.Success(ctx, &LoginResponse{Token: token, ExpiresAt: claims.ExpiresAt})
}

// Me 当前用户、权限与菜单
// @Summary 会话信息
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response
// @Router /me [get]
func (c *Controller) Me(ctx *fiber.Ctx) error {
	p := middleware.Principal(ctx)
	if p == nil || p.IsClient() {
		return errors.ErrForbidden
	}

	info, err := c.resolver.UserInfo(ctx.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	return response.Success(ctx, &MeResponse{
		User:        viewOf(info.User),
		Permissions: info.Permissions,
		Menus:       info.Menus,
		IsAdmin:     info.IsAdmin,
	})
}

func viewOf(u *rbac.User) *UserView {
	return &UserView{ID: u.ID, Username: u.Username, Nickname: u.Nickname, Avatar: u.Avatar}
}

package admin

import (
	"context"

	"github.com/authcore/pkg/binding"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/metrics"
	"github.com/authcore/pkg/middleware"
	"github.com/authcore/pkg/rbac"
	"github.com/authcore/pkg/response"
	"github.com/authcore/pkg/router"
	"github.com/authcore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// 所需权限
const (
	PermRoleEdit   = "system:role:edit"
	PermRoleDelete = "system:role:delete"
	PermUserEdit   = "system:user:edit"
)

// Writer 权限数据写操作
type Writer interface {
	SetRolePermissions(ctx context.Context, key string, perms []string) error
	DeleteRole(ctx context.Context, key string) ([]int64, error)
	SetUserRoles(ctx context.Context, userID int64, roleKeys []string) error
}

// SetPermissionsRequest 覆盖角色权限
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required,max=100"`
}

// SetRolesRequest 覆盖用户角色
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,required,max=50"`
}

// Controller 权限写接口, 写库成功后同步失效缓存
type Controller struct {
	writer      Writer
	invalidator rbac.Invalidator
	authz       middleware.Authorizer
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// NewController 创建控制器
func NewController(w Writer, inv rbac.Invalidator, authz middleware.Authorizer, log *zap.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		writer:      w,
		invalidator: inv,
		authz:       authz,
		log:         logger.OrNop(log).Named("admin"),
		metrics:     m,
	}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/api" }

// Routes 路由配置
func (c *Controller) Routes(mw map[string]fiber.Handler) []router.Route {
	guard := func(perm string) []fiber.Handler {
		return append(router.Chain(mw, router.MiddlewareAuth), middleware.RequirePermission(c.authz, perm, c.metrics))
	}
	return []router.Route{
		{ID: router.RouteSetRolePermissions, Method: fiber.MethodPut, Path: "roles/:key/permissions", Handler: c.SetRolePermissions, Middlewares: guard(PermRoleEdit)},
		{ID: router.RouteDeleteRole, Method: fiber.MethodDelete, Path: "roles/:key", Handler: c.DeleteRole, Middlewares: guard(PermRoleDelete)},
		{ID: router.RouteSetUserRoles, Method: fiber.MethodPut, Path: "users/:id/roles", Handler: c.SetUserRoles, Middlewares: guard(PermUserEdit)},
	}
}

// SetRolePermissions 覆盖角色权限
// @Summary 设置角色权限
// @Tags 权限管理
// @Router /api/roles/{key}/permissions [put]
func (c *Controller) SetRolePermissions(ctx *fiber.Ctx) error {
	key := ctx.Params("key")
	var req SetPermissionsRequest
	if err := binding.Bind(ctx, &req); err != nil {
		return err
	}
	if err := c.writer.SetRolePermissions(ctx.UserContext(), key, req.Permissions); err != nil {
		return err
	}
	c.invalidator.InvalidateRole(ctx.UserContext(), key)
	c.log.Info("角色权限已更新", zap.String("role", key), zap.Int64("operator", middleware.GetUserID(ctx)))
	return response.Success(ctx, nil)
}

// DeleteRole 删除角色
// @Summary 删除角色
// @Tags 权限管理
// @Router /api/roles/{key} [delete]
func (c *Controller) DeleteRole(ctx *fiber.Ctx) error {
	key := ctx.Params("key")
	userIDs, err := c.writer.DeleteRole(ctx.UserContext(), key)
	if err != nil {
		return err
	}
	c.invalidator.InvalidateRole(ctx.UserContext(), key)
	for _, id := range userIDs {
		c.invalidator.InvalidateUser(ctx.UserContext(), id)
	}
	c.log.Info("角色已删除", zap.String("role", key), zap.Int("users", len(userIDs)))
	return response.Success(ctx, nil)
}

// SetUserRoles 覆盖用户角色
// @Summary 设置用户角色
// @Tags 权限管理
// @Router /api/users/{id}/roles [put]
func (c *Controller) SetUserRoles(ctx *fiber.Ctx) error {
	userID, ok := utils.ParseID(ctx.Params("id"))
	if !ok {
		return errors.BadRequest("invalid user id")
	}
	var req SetRolesRequest
	if err := binding.Bind(ctx, &req); err != nil {
		return err
	}
	if err := c.writer.SetUserRoles(ctx.UserContext(), userID, req.Roles); err != nil {
		return err
	}
	c.invalidator.InvalidateUser(ctx.UserContext(), userID)
	return response.Success(ctx, nil)
}

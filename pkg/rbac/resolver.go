package rbac

import (
	"context"

	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Resolver 计算用户的有效权限与可见菜单
type Resolver struct {
	repo          Repository
	source        PermissionSource
	rootAdminID   int64
	adminUsername string
}

// NewResolver 创建解析器
func NewResolver(repo Repository, source PermissionSource, cfg *config.AuthConfig) *Resolver {
	return &Resolver{
		repo:          repo,
		source:        source,
		rootAdminID:   cfg.RootAdminID,
		adminUsername: cfg.AdminUsername,
	}
}

// IsAdmin 超级管理员判定
func (r *Resolver) IsAdmin(u *User) bool {
	if u == nil {
		return false
	}
	if r.rootAdminID != 0 && u.ID == r.rootAdminID {
		return true
	}
	// 精确比较, "Admin" 与 "admin" 是两个账号
	return r.adminUsername != "" && u.Username == r.adminUsername
}

// EffectivePermissions 有效权限 = 角色权限 ∪ 直接授权 ∪ 组织权限.
// 管理员直接返回所有菜单上的权限; 任一来源含通配权限时结果收敛为通配权限.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	u, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.permissionsFor(ctx, u)
}

// EffectiveMenuTree 可见菜单树
func (r *Resolver) EffectiveMenuTree(ctx context.Context, userID int64) ([]*Menu, error) {
	u, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms, err := r.permissionsFor(ctx, u)
	if err != nil {
		return nil, err
	}
	return r.menusFor(ctx, u, perms)
}

// UserInfo 会话初始化: 用户、权限、菜单.
// 用户不存在时总是返回 ErrUserNotFound, 与缓存状态无关.
func (r *Resolver) UserInfo(ctx context.Context, userID int64) (*UserInfo, error) {
	u, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Enabled {
		return nil, errors.ErrAccountDisabled
	}
	perms, err := r.permissionsFor(ctx, u)
	if err != nil {
		return nil, err
	}
	menus, err := r.menusFor(ctx, u, perms)
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		User:        u,
		Permissions: perms,
		Menus:       menus,
		IsAdmin:     r.IsAdmin(u),
	}, nil
}

// Authorize 校验用户是否持有所需权限, 管理员总是通过
func (r *Resolver) Authorize(ctx context.Context, userID int64, required string) error {
	u, err := r.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Enabled {
		return errors.ErrAccountDisabled
	}
	if r.IsAdmin(u) {
		return nil
	}
	perms, err := r.permissionsFor(ctx, u)
	if err != nil {
		return err
	}
	if !auth.MatchesAny(perms, required) {
		return errors.ErrInsufficientPermission
	}
	return nil
}

func (r *Resolver) loadUser(ctx context.Context, userID int64) (*User, error) {
	u, err := r.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

func (r *Resolver) permissionsFor(ctx context.Context, u *User) ([]string, error) {
	if r.IsAdmin(u) {
		menus, err := r.repo.FindAllMenus(ctx)
		if err != nil {
			return nil, errors.Internal(err)
		}
		perms := make([]string, 0, len(menus))
		for _, m := range menus {
			perms = append(perms, m.Permission)
		}
		return Union(perms), nil
	}

	// 三个来源相互独立, 并发读取
	var rolePerms, directPerms, orgPerms []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rolePerms, err = r.source.UserPermissions(gctx, u.ID)
		return err
	})
	g.Go(func() (err error) {
		directPerms, err = r.repo.FindUserPermissions(gctx, u.ID)
		return err
	})
	g.Go(func() (err error) {
		orgPerms, err = r.repo.FindOrgPermissions(gctx, u.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Internal(err)
	}

	perms := Union(rolePerms, directPerms, orgPerms)
	for _, p := range perms {
		if p == auth.WildcardPermission {
			return []string{auth.WildcardPermission}, nil
		}
	}
	return perms, nil
}

func (r *Resolver) menusFor(ctx context.Context, u *User, perms []string) ([]*Menu, error) {
	if r.IsAdmin(u) {
		menus, err := r.repo.FindAllMenus(ctx)
		if err != nil {
			return nil, errors.Internal(err)
		}
		return FilterTree(BuildTree(menus), AdminPolicy, nil), nil
	}

	roleKeys, err := r.source.UserRoles(ctx, u.ID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if len(roleKeys) == 0 {
		return []*Menu{}, nil
	}
	menus, err := r.repo.FindMenusByRoleBindings(ctx, roleKeys)
	if err != nil {
		return nil, errors.Internal(err)
	}
	// 多个角色绑定同一菜单时由 BuildTree 按 ID 去重
	return FilterTree(BuildTree(menus), MemberPolicy, perms), nil
}

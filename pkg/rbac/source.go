package rbac

import (
	"context"
	"sort"
)

// PermissionSource 角色与权限的数据来源.
// 直接读库与带缓存两种实现对解析器透明.
type PermissionSource interface {
	RolePermissions(ctx context.Context, roleKey string) ([]string, error)
	UserRoles(ctx context.Context, userID int64) ([]string, error)
	// UserPermissions 先取角色, 再取各角色权限并合并; 无角色时返回空
	UserPermissions(ctx context.Context, userID int64) ([]string, error)
}

// Invalidator 权限相关写操作完成后调用, 失败只记录日志
type Invalidator interface {
	InvalidateRole(ctx context.Context, roleKey string)
	InvalidateUser(ctx context.Context, userID int64)
}

// StoreSource 直接查询仓储
type StoreSource struct {
	repo Repository
}

// NewStoreSource 创建直连数据源
func NewStoreSource(repo Repository) *StoreSource {
	return &StoreSource{repo: repo}
}

func (s *StoreSource) RolePermissions(ctx context.Context, roleKey string) ([]string, error) {
	perms, err := s.repo.FindRolePermissions(ctx, roleKey)
	if err != nil {
		return nil, err
	}
	return nonNil(perms), nil
}

func (s *StoreSource) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	roles, err := s.repo.FindRolesByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(roles))
	for _, r := range roles {
		keys = append(keys, r.Key)
	}
	return Union(keys), nil
}

func (s *StoreSource) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return userPermissions(ctx, s, userID)
}

// InvalidateRole 无缓存, 空操作
func (s *StoreSource) InvalidateRole(context.Context, string) {}

// InvalidateUser 无缓存, 空操作
func (s *StoreSource) InvalidateUser(context.Context, int64) {}

func userPermissions(ctx context.Context, src PermissionSource, userID int64) ([]string, error) {
	roleKeys, err := src.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	sets := make([][]string, 0, len(roleKeys))
	for _, key := range roleKeys {
		perms, err := src.RolePermissions(ctx, key)
		if err != nil {
			return nil, err
		}
		sets = append(sets, perms)
	}
	return Union(sets...), nil
}

// Union 合并多个权限集合, 去掉空串, 结果排序且不为 nil
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, set := range sets {
		for _, p := range set {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/authcore/pkg/cache"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/metrics"
	"go.uber.org/zap"
)

// 缓存键命名空间
const (
	NamespaceRolePermissions = "role-permissions"
	NamespaceUserRoles       = "user-roles"
)

// DefaultCacheTTL 默认缓存时长
const DefaultCacheTTL = time.Hour

// CachedSource 读穿透缓存装饰器. 缓存读写失败一律按未命中处理, 不向上传播.
type CachedSource struct {
	next    PermissionSource
	store   cache.Store
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedSource 创建带缓存的数据源
func NewCachedSource(next PermissionSource, store cache.Store, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		next:    next,
		store:   store,
		ttl:     ttl,
		log:     logger.OrNop(log).Named("permission-cache"),
		metrics: m,
	}
}

func roleCacheKey(k string) string     { return cache.Key(NamespaceRolePermissions, k) }
func userCacheKey(userID int64) string { return cache.Key(NamespaceUserRoles, userID) }

// RolePermissions 角色权限
func (c *CachedSource) RolePermissions(ctx context.Context, key string) ([]string, error) {
	return c.readThrough(ctx, NamespaceRolePermissions, roleCacheKey(key), func() ([]string, error) {
		return c.next.RolePermissions(ctx, key)
	})
}

// UserRoles 用户角色
func (c *CachedSource) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	return c.readThrough(ctx, NamespaceUserRoles, userCacheKey(userID), func() ([]string, error) {
		return c.next.UserRoles(ctx, userID)
	})
}

// UserPermissions 用户经角色获得的权限, 全程经过缓存
func (c *CachedSource) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return userPermissions(ctx, c, userID)
}

// InvalidateRole 删除角色权限缓存
func (c *CachedSource) InvalidateRole(ctx context.Context, key string) {
	c.invalidate(ctx, roleCacheKey(key))
}

// InvalidateUser 删除用户角色缓存
func (c *CachedSource) InvalidateUser(ctx context.Context, userID int64) {
	c.invalidate(ctx, userCacheKey(userID))
}

func (c *CachedSource) invalidate(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.log.Warn("缓存失效失败", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedSource) readThrough(ctx context.Context, ns, key string, load func() ([]string, error)) ([]string, error) {
	var cached []string
	err := cache.GetJSON(ctx, c.store, key, &cached)
	switch {
	case err == nil:
		c.metrics.CacheLookup(ns, "hit")
		return nonNil(cached), nil
	case errors.Is(err, cache.ErrMiss):
		c.metrics.CacheLookup(ns, "miss")
	default:
		c.metrics.CacheLookup(ns, "error")
		c.log.Warn("读取缓存失败, 回源查询", zap.String("key", key), zap.Error(err))
	}

	value, err := load()
	if err != nil {
		return nil, err
	}
	value = nonNil(value)

	if err := cache.SetJSON(ctx, c.store, key, value, c.ttl); err != nil {
		c.log.Warn("写入缓存失败", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

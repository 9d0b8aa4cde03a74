package store

import (
	"context"

	"github.com/authcore/pkg/dal"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/rbac"
	"github.com/authcore/pkg/utils"
	"github.com/authcore/services/auth/internal/model"
	"gorm.io/gorm"
)

// 写操作只改数据库, 缓存失效由调用方负责

func (s *Store) findRole(ctx context.Context, tx *gorm.DB, key string) (*model.Role, error) {
	r, err := s.roles.WithTx(tx).FindOne(ctx, dal.Where("role_key = ?", key))
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NotFound("role")
	}
	if r.IsAdmin || r.Key == rbac.AdminRoleKey {
		return nil, errors.ErrRoleImmutable
	}
	return r, nil
}

// SetRolePermissions 覆盖角色权限
func (s *Store) SetRolePermissions(ctx context.Context, key string, perms []string) error {
	raw, err := encodePermissions(utils.Unique(perms))
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.findRole(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = s.roles.WithTx(tx).UpdateFields(ctx, map[string]any{"permissions": raw}, dal.Where("id = ?", r.ID))
		return err
	})
}

// DeleteRole 删除角色及其绑定, 返回受影响的用户ID
func (s *Store) DeleteRole(ctx context.Context, key string) ([]int64, error) {
	var userIDs []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.findRole(ctx, tx, key)
		if err != nil {
			return err
		}
		userRoles := s.userRoles.WithTx(tx)
		userIDs, err = dal.Pluck[model.UserRole, int64](ctx, userRoles, "user_id", dal.Where("role_id = ?", r.ID))
		if err != nil {
			return err
		}
		if err := userRoles.DeleteWhere(ctx, dal.Where("role_id = ?", r.ID)); err != nil {
			return err
		}
		if err := dal.NewBaseRepository[model.RoleMenu](tx).DeleteWhere(ctx, dal.Where("role_id = ?", r.ID)); err != nil {
			return err
		}
		return s.roles.WithTx(tx).DeleteWhere(ctx, dal.Where("id = ?", r.ID))
	})
	if err != nil {
		return nil, err
	}
	return utils.Unique(userIDs), nil
}

// SetUserRoles 覆盖用户角色
func (s *Store) SetUserRoles(ctx context.Context, userID int64, roleKeys []string) error {
	roleKeys = utils.Unique(roleKeys)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.users.WithTx(tx).FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return errors.ErrUserNotFound
		}

		var roles []model.Role
		if len(roleKeys) > 0 {
			roles, err = s.roles.WithTx(tx).FindAll(ctx, dal.Where("role_key IN ?", roleKeys))
			if err != nil {
				return err
			}
			if len(roles) != len(roleKeys) {
				return errors.BadRequest("unknown role")
			}
		}

		userRoles := s.userRoles.WithTx(tx)
		if err := userRoles.DeleteWhere(ctx, dal.Where("user_id = ?", userID)); err != nil {
			return err
		}
		return userRoles.CreateBatch(ctx, utils.Map(roles, func(r model.Role) model.UserRole {
			return model.UserRole{UserID: userID, RoleID: r.ID}
		}))
	})
}

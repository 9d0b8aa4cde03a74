package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/authcore/pkg/dal"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/oauth"
	"github.com/authcore/pkg/rbac"
	"github.com/authcore/services/auth/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store 基于gorm的仓储, 同时服务权限解析与OAuth签发
type Store struct {
	db        *gorm.DB
	log       *zap.Logger
	users     *dal.BaseRepository[model.User]
	orgs      *dal.BaseRepository[model.Org]
	userPerms *dal.BaseRepository[model.UserPermission]
	roles     *dal.BaseRepository[model.Role]
	userRoles *dal.BaseRepository[model.UserRole]
	menus     *dal.BaseRepository[model.Menu]
	clients   *dal.BaseRepository[model.Client]
	groups    *dal.BaseRepository[model.PermissionGroup]
	bindings  *dal.BaseRepository[model.ClientGroup]
}

var (
	_ rbac.Repository        = (*Store)(nil)
	_ oauth.ClientRepository = (*Store)(nil)
)

// New 创建仓储
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{
		db:        db,
		log:       logger.OrNop(log).Named("store"),
		users:     dal.NewBaseRepository[model.User](db),
		orgs:      dal.NewBaseRepository[model.Org](db),
		userPerms: dal.NewBaseRepository[model.UserPermission](db),
		roles:     dal.NewBaseRepository[model.Role](db),
		userRoles: dal.NewBaseRepository[model.UserRole](db),
		menus:     dal.NewBaseRepository[model.Menu](db),
		clients:   dal.NewBaseRepository[model.Client](db),
		groups:    dal.NewBaseRepository[model.PermissionGroup](db),
		bindings:  dal.NewBaseRepository[model.ClientGroup](db),
	}
}

// Migrate 建表
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(model.All()...)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*rbac.User, error) {
	u, err := s.users.FindOne(ctx, dal.Where("username = ?", strings.TrimSpace(username)))
	if err != nil || u == nil {
		return nil, err
	}
	return toUser(u), nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (*rbac.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return toUser(u), nil
}

func (s *Store) FindRolesByUserID(ctx context.Context, userID int64) ([]rbac.Role, error) {
	rows, err := s.roles.FindAll(ctx,
		dal.WithSelect("sys_role.*"),
		dal.WithJoins("JOIN sys_user_role ON sys_user_role.role_id = sys_role.id"),
		dal.Where("sys_user_role.user_id = ? AND sys_role.status = ?", userID, model.StatusEnabled),
		dal.WithOrder("sys_role.sort, sys_role.id"),
	)
	if err != nil {
		return nil, err
	}
	roles := make([]rbac.Role, 0, len(rows))
	for i := range rows {
		roles = append(roles, s.toRole(&rows[i]))
	}
	return roles, nil
}

func (s *Store) FindRolePermissions(ctx context.Context, roleKey string) ([]string, error) {
	r, err := s.roles.FindOne(ctx, dal.Where("role_key = ? AND status = ?", roleKey, model.StatusEnabled))
	if err != nil || r == nil {
		return nil, err
	}
	return s.decodePermissions("role", r.Key, r.Permissions), nil
}

func (s *Store) FindUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return dal.Pluck[model.UserPermission, string](ctx, s.userPerms, "permission", dal.Where("user_id = ?", userID))
}

func (s *Store) FindOrgPermissions(ctx context.Context, userID int64) ([]string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil || u.OrgID == 0 {
		return nil, err
	}
	org, err := s.orgs.FindOne(ctx, dal.Where("id = ? AND status = ?", u.OrgID, model.StatusEnabled))
	if err != nil || org == nil {
		return nil, err
	}
	return s.decodePermissions("org", org.Name, org.Permissions), nil
}

func (s *Store) FindAllMenus(ctx context.Context) ([]rbac.Menu, error) {
	rows, err := s.menus.FindAll(ctx, dal.WithOrder("sort, id"))
	if err != nil {
		return nil, err
	}
	return toMenus(rows), nil
}

func (s *Store) FindMenusByRoleBindings(ctx context.Context, roleKeys []string) ([]rbac.Menu, error) {
	if len(roleKeys) == 0 {
		return []rbac.Menu{}, nil
	}
	rows, err := s.menus.FindAll(ctx,
		dal.WithSelect("sys_menu.*"),
		dal.WithJoins("JOIN sys_role_menu ON sys_role_menu.menu_id = sys_menu.id"),
		dal.WithJoins("JOIN sys_role ON sys_role.id = sys_role_menu.role_id"),
		dal.Where("sys_role.role_key IN ? AND sys_role.status = ?", roleKeys, model.StatusEnabled),
		dal.WithOrder("sys_menu.sort, sys_menu.id"),
	)
	if err != nil {
		return nil, err
	}
	return toMenus(rows), nil
}

func (s *Store) FindClientByClientID(ctx context.Context, clientID string) (*oauth.Client, error) {
	c, err := s.clients.FindOne(ctx, dal.Where("client_id = ?", clientID))
	if err != nil || c == nil {
		return nil, err
	}
	groupIDs, err := dal.Pluck[model.ClientGroup, int64](ctx, s.bindings, "group_id", dal.Where("client_id = ?", c.ID))
	if err != nil {
		return nil, err
	}
	return &oauth.Client{
		ID:                   c.ID,
		ClientID:             c.ClientID,
		Name:                 c.Name,
		SecretHash:           c.SecretHash,
		Enabled:              c.Status == model.StatusEnabled,
		TokenLifetimeSeconds: c.TokenLifetime,
		GroupIDs:             groupIDs,
	}, nil
}

func (s *Store) FindEnabledPermissionGroupsByIDs(ctx context.Context, ids []int64) ([]oauth.PermissionGroup, error) {
	if len(ids) == 0 {
		return []oauth.PermissionGroup{}, nil
	}
	rows, err := s.groups.FindAll(ctx, dal.Where("id IN ? AND status = ?", ids, model.StatusEnabled), dal.WithOrder("id"))
	if err != nil {
		return nil, err
	}
	groups := make([]oauth.PermissionGroup, 0, len(rows))
	for _, g := range rows {
		groups = append(groups, oauth.PermissionGroup{
			ID:          g.ID,
			Key:         g.Key,
			Name:        g.Name,
			Permissions: s.decodePermissions("permission group", g.Key, g.Permissions),
			Enabled:     true,
		})
	}
	return groups, nil
}

// decodePermissions 解析JSON权限数组, 格式错误时按空集合处理
func (s *Store) decodePermissions(kind, owner, raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		s.log.Warn("权限数据格式错误, 按空处理",
			zap.String("kind", kind),
			zap.String("owner", owner),
			zap.Error(err),
		)
		return []string{}
	}
	return perms
}

func encodePermissions(perms []string) (string, error) {
	if perms == nil {
		perms = []string{}
	}
	data, err := json.Marshal(perms)
	return string(data), err
}

func toUser(u *model.User) *rbac.User {
	return &rbac.User{
		ID:           u.ID,
		Username:     u.Username,
		Nickname:     u.Nickname,
		Avatar:       u.Avatar,
		PasswordHash: u.Password,
		Enabled:      u.Status == model.StatusEnabled,
		OrgID:        u.OrgID,
	}
}

func (s *Store) toRole(r *model.Role) rbac.Role {
	return rbac.Role{
		ID:          r.ID,
		Key:         r.Key,
		Name:        r.Name,
		IsAdmin:     r.IsAdmin,
		Permissions: s.decodePermissions("role", r.Key, r.Permissions),
		Enabled:     r.Status == model.StatusEnabled,
	}
}

func toMenus(rows []model.Menu) []rbac.Menu {
	menus := make([]rbac.Menu, 0, len(rows))
	for _, m := range rows {
		menus = append(menus, rbac.Menu{
			ID:         m.ID,
			ParentID:   m.ParentID,
			Name:       m.Name,
			Type:       rbac.MenuType(m.Type),
			RoutePath:  m.Path,
			Component:  m.Component,
			Icon:       m.Icon,
			Permission: m.Permission,
			Visible:    m.Visible == 1,
			Enabled:    m.Status == model.StatusEnabled,
			SortOrder:  m.Sort,
		})
	}
	return menus
}

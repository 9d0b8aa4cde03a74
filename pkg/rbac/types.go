package rbac

import (
	"context"
)

// AdminRoleKey 内置管理员角色
const AdminRoleKey = "admin"

// User 用户主体
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Nickname     string `json:"nickname"`
	Avatar       string `json:"avatar"`
	PasswordHash string `json:"-"`
	Enabled      bool   `json:"-"`
	OrgID        int64  `json:"-"`
}

// Role 角色
type Role struct {
	ID          int64    `json:"id"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	IsAdmin     bool     `json:"isAdmin"`
	Permissions []string `json:"permissions"`
	Enabled     bool     `json:"enabled"`
}

// Immutable 管理员角色不可修改、不可删除
func (r *Role) Immutable() bool {
	return r.IsAdmin || r.Key == AdminRoleKey
}

// MenuType 菜单类型
type MenuType int8

const (
	MenuTypeDirectory MenuType = 1 // 目录
	MenuTypePage      MenuType = 2 // 页面
	MenuTypeAction    MenuType = 3 // 按钮
)

// Menu 菜单节点
type Menu struct {
	ID         int64    `json:"id"`
	ParentID   int64    `json:"parentId"`
	Name       string   `json:"name"`
	Type       MenuType `json:"type"`
	RoutePath  string   `json:"path"`
	Component  string   `json:"component,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	Permission string   `json:"permission,omitempty"`
	Visible    bool     `json:"visible"`
	Enabled    bool     `json:"enabled"`
	SortOrder  int      `json:"sort"`
	Children   []*Menu  `json:"children,omitempty"`
}

// UserInfo 会话初始化所需的用户视图
type UserInfo struct {
	User        *User    `json:"user"`
	Permissions []string `json:"permissions"`
	Menus       []*Menu  `json:"menus"`
	IsAdmin     bool     `json:"isAdmin"`
}

// Repository 权限计算依赖的只读仓储. 未找到单条记录时返回 nil, nil.
type Repository interface {
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	// FindRolesByUserID 用户绑定的启用角色
	FindRolesByUserID(ctx context.Context, userID int64) ([]Role, error)
	// FindRolePermissions 启用角色的权限, 角色不存在或已停用时为空
	FindRolePermissions(ctx context.Context, roleKey string) ([]string, error)
	// FindUserPermissions 用户直接授予的权限
	FindUserPermissions(ctx context.Context, userID int64) ([]string, error)
	// FindOrgPermissions 用户所属启用组织的权限
	FindOrgPermissions(ctx context.Context, userID int64) ([]string, error)
	FindAllMenus(ctx context.Context) ([]Menu, error)
	// FindMenusByRoleBindings 通过角色-菜单绑定关联出的菜单
	FindMenusByRoleBindings(ctx context.Context, roleKeys []string) ([]Menu, error)
}

package model

import (
	"github.com/authcore/pkg/dal"
)

// Client OAuth客户端
type Client struct {
	dal.Model
	ClientID      string `gorm:"size:64;uniqueIndex;not null" json:"clientId"`
	Name          string `gorm:"size:50;not null" json:"name"`
	SecretHash    string `gorm:"size:255;not null" json:"-"`
	Status        int8   `gorm:"default:1" json:"status"`
	TokenLifetime int64  `gorm:"default:0" json:"tokenLifetime"` // 秒, 0使用默认值
}

// TableName 表名
func (Client) TableName() string {
	return "sys_oauth_client"
}

// PermissionGroup 权限组
type PermissionGroup struct {
	dal.Model
	Key         string `gorm:"column:group_key;size:50;uniqueIndex;not null" json:"key"`
	Name        string `gorm:"size:50;not null" json:"name"`
	Permissions string `gorm:"type:text" json:"permissions"` // JSON数组
	Status      int8   `gorm:"default:1" json:"status"`
}

// TableName 表名
func (PermissionGroup) TableName() string {
	return "sys_permission_group"
}

// ClientGroup 客户端权限组关联
type ClientGroup struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID int64 `gorm:"index:idx_client_group;not null" json:"clientId"`
	GroupID  int64 `gorm:"index:idx_client_group;not null" json:"groupId"`
}

// TableName 表名
func (ClientGroup) TableName() string {
	return "sys_client_group"
}

// All 需要迁移的全部模型
func All() []any {
	return []any{
		&User{}, &Org{}, &UserPermission{},
		&Role{}, &UserRole{}, &RoleMenu{},
		&Menu{},
		&Client{}, &PermissionGroup{}, &ClientGroup{},
	}
}

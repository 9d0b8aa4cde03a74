package model

import (
	"github.com/authcore/pkg/dal"
)

// 状态
const (
	StatusDisabled int8 = 0
	StatusEnabled  int8 = 1
)

// User 用户模型
type User struct {
	dal.Model
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:255;not null" json:"-"`
	Nickname string `gorm:"size:50" json:"nickname"`
	Avatar   string `gorm:"size:255" json:"avatar"`
	Status   int8   `gorm:"default:1" json:"status"` // 1:正常 0:禁用
	OrgID    int64  `gorm:"index" json:"orgId"`
}

// TableName 表名
func (User) TableName() string {
	return "sys_user"
}

// Org 组织, 成员继承组织权限
type Org struct {
	dal.Model
	Name        string `gorm:"size:50;not null" json:"name"`
	Permissions string `gorm:"type:text" json:"permissions"` // JSON数组
	Status      int8   `gorm:"default:1" json:"status"`
}

// TableName 表名
func (Org) TableName() string {
	return "sys_org"
}

// UserPermission 用户直接授权
type UserPermission struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64  `gorm:"index;not null" json:"userId"`
	Permission string `gorm:"size:100;not null" json:"permission"`
}

// TableName 表名
func (UserPermission) TableName() string {
	return "sys_user_permission"
}

package model

import (
	"github.com/authcore/pkg/dal"
)

// Role 角色模型
type Role struct {
	dal.Model
	Key         string `gorm:"column:role_key;size:50;uniqueIndex;not null" json:"key"`
	Name        string `gorm:"size:50;not null" json:"name"`
	IsAdmin     bool   `gorm:"default:false" json:"isAdmin"`
	Permissions string `gorm:"type:text" json:"permissions"` // JSON数组
	Status      int8   `gorm:"default:1" json:"status"`
	Sort        int    `gorm:"default:0" json:"sort"`
}

// TableName 表名
func (Role) TableName() string {
	return "sys_role"
}

// UserRole 用户角色关联
type UserRole struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"index:idx_user_role;not null" json:"userId"`
	RoleID int64 `gorm:"index:idx_user_role;not null" json:"roleId"`
}

// TableName 表名
func (UserRole) TableName() string {
	return "sys_user_role"
}

// RoleMenu 角色菜单关联
type RoleMenu struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID int64 `gorm:"index:idx_role_menu;not null" json:"roleId"`
	MenuID int64 `gorm:"index:idx_role_menu;not null" json:"menuId"`
}

// TableName 表名
func (RoleMenu) TableName() string {
	return "sys_role_menu"
}

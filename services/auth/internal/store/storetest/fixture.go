// Package storetest 提供基于内存 sqlite 的测试数据
package storetest

import (
	"testing"

	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/database"
	"github.com/authcore/services/auth/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 测试账号
const (
	RootPassword   = "root-pass"
	AlicePassword  = "alice-pass"
	ViewerPassword = "viewer-pass"
	LegacyPassword = "plain-pass"

	ReportingSecret = "s3cret"
	OpsSecret       = "ops-secret"
	RetiredSecret   = "old-secret"
)

// 固定ID, 按创建顺序自增
const (
	RootID int64 = iota + 1
	AliceID
	ViewerID
	DisabledID
	LegacyID
)

// Hasher 测试用低迭代次数
func Hasher() *auth.Hasher {
	return auth.NewHasher(&config.AuthConfig{HashIterations: 10, KeyLength: 32})
}

// Open 打开空的内存库并建表
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", LogLevel: "silent"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// Seeded 打开内存库并写入完整测试数据
func Seeded(t testing.TB, hasher *auth.Hasher) *gorm.DB {
	t.Helper()
	db := Open(t)
	Seed(t, db, hasher)
	return db
}

// Seed 写入测试数据:
// root 为超级管理员; alice 拥有 r1 r2 角色、直接授权 d 和组织权限;
// viewer 只能看用户列表; gone 已停用; legacy 使用明文密码.
func Seed(t testing.TB, db *gorm.DB, hasher *auth.Hasher) {
	t.Helper()
	create := func(v any) { require.NoError(t, db.Create(v).Error) }
	disable := func(v any) { require.NoError(t, db.Model(v).Update("status", model.StatusDisabled).Error) }

	org := &model.Org{Name: "ops-org", Permissions: `["monitor:job:list"]`, Status: model.StatusEnabled}
	create(org)

	users := []*model.User{
		{Username: "root", Password: hasher.HashPassword("root", RootPassword), Nickname: "Root", Status: model.StatusEnabled},
		{Username: "alice", Password: hasher.HashPassword("alice", AlicePassword), Nickname: "Alice", Avatar: "/a.png", Status: model.StatusEnabled, OrgID: org.ID},
		{Username: "viewer", Password: hasher.HashPassword("viewer", ViewerPassword), Nickname: "Viewer", Status: model.StatusEnabled},
		{Username: "gone", Password: hasher.HashPassword("gone", "gone-pass"), Status: model.StatusEnabled},
		{Username: "legacy", Password: LegacyPassword, Status: model.StatusEnabled},
	}
	for _, u := range users {
		create(u)
	}
	disable(users[3])

	roles := map[string]*model.Role{
		"admin":  {Key: "admin", Name: "Administrator", IsAdmin: true, Permissions: `["*:*:*"]`, Status: model.StatusEnabled},
		"r1":     {Key: "r1", Name: "Role 1", Permissions: `["a","b"]`, Status: model.StatusEnabled, Sort: 1},
		"r2":     {Key: "r2", Name: "Role 2", Permissions: `["b","c"]`, Status: model.StatusEnabled, Sort: 2},
		"viewer": {Key: "viewer", Name: "Viewer", Permissions: `["system:user:list"]`, Status: model.StatusEnabled},
		"broken": {Key: "broken", Name: "Broken", Permissions: `{not json`, Status: model.StatusEnabled},
		"off":    {Key: "off", Name: "Off", Permissions: `["x"]`, Status: model.StatusEnabled},
	}
	for _, key := range []string{"admin", "r1", "r2", "viewer", "broken", "off"} {
		create(roles[key])
	}
	disable(roles["off"])

	bind := func(userID int64, keys ...string) {
		for _, k := range keys {
			create(&model.UserRole{UserID: userID, RoleID: roles[k].ID})
		}
	}
	bind(RootID, "admin")
	bind(AliceID, "r1", "r2", "off")
	bind(ViewerID, "viewer")
	bind(DisabledID, "viewer")

	create(&model.UserPermission{UserID: AliceID, Permission: "d"})

	menus := []*model.Menu{
		{Name: "system", Type: 1, Visible: 1, Status: 1, Sort: 1},
		{ParentID: 1, Name: "users", Type: 2, Path: "/system/users", Permission: "system:user:list", Visible: 1, Status: 1, Sort: 2},
		{ParentID: 1, Name: "roles", Type: 2, Path: "/system/roles", Permission: "system:role:list", Visible: 1, Status: 1, Sort: 1},
		{ParentID: 2, Name: "delete user", Type: 3, Permission: "system:user:delete", Visible: 1, Status: 1},
		{Name: "monitor", Type: 1, Visible: 1, Status: 1, Sort: 2},
		{ParentID: 5, Name: "jobs", Type: 2, Path: "/monitor/jobs", Permission: "monitor:job:list", Visible: 1, Status: 1},
	}
	for _, m := range menus {
		create(m)
	}
	require.NoError(t, db.Model(menus[5]).Update("visible", 0).Error)

	for _, menuID := range []int64{1, 2, 3, 4} {
		create(&model.RoleMenu{RoleID: roles["viewer"].ID, MenuID: menuID})
	}
	for _, menuID := range []int64{1, 2} {
		create(&model.RoleMenu{RoleID: roles["r1"].ID, MenuID: menuID})
	}

	groups := map[string]*model.PermissionGroup{
		"xyz": {Key: "xyz", Name: "XYZ", Permissions: `["x","y","z"]`, Status: model.StatusEnabled},
		"all": {Key: "all", Name: "All", Permissions: `["system:user:list","*:*:*"]`, Status: model.StatusEnabled},
		"off": {Key: "off", Name: "Off", Permissions: `["w"]`, Status: model.StatusEnabled},
	}
	for _, key := range []string{"xyz", "all", "off"} {
		create(groups[key])
	}
	disable(groups["off"])

	secret := func(s string) string {
		h, err := hasher.HashSecret(s)
		require.NoError(t, err)
		return h
	}
	clients := []*model.Client{
		{ClientID: "reporting", Name: "Reporting", SecretHash: secret(ReportingSecret), Status: model.StatusEnabled},
		{ClientID: "ops", Name: "Ops", SecretHash: secret(OpsSecret), Status: model.StatusEnabled, TokenLifetime: 600},
		{ClientID: "retired", Name: "Retired", SecretHash: secret(RetiredSecret), Status: model.StatusEnabled},
	}
	for _, c := range clients {
		create(c)
	}
	disable(clients[2])

	create(&model.ClientGroup{ClientID: clients[0].ID, GroupID: groups["xyz"].ID})
	create(&model.ClientGroup{ClientID: clients[0].ID, GroupID: groups["off"].ID})
	create(&model.ClientGroup{ClientID: clients[1].ID, GroupID: groups["all"].ID})
	create(&model.ClientGroup{ClientID: clients[2].ID, GroupID: groups["xyz"].ID})
}

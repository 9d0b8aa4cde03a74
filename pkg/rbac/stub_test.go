package rbac

import (
	"context"
	"sync"
)

type stubRepo struct {
	mu        sync.Mutex
	users     map[int64]*User
	roles     map[string]Role
	userRoles map[int64][]string
	direct    map[int64][]string
	org       map[int64][]string
	menus     []Menu
	roleMenus map[string][]int64
	calls     map[string]int
	err       error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:     map[int64]*User{},
		roles:     map[string]Role{},
		userRoles: map[int64][]string{},
		direct:    map[int64][]string{},
		org:       map[int64][]string{},
		roleMenus: map[string][]int64{},
		calls:     map[string]int{},
	}
}

func (s *stubRepo) hit(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	return s.err
}

func (s *stubRepo) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubRepo) setRolePermissions(key string, perms ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roles[key]
	r.Key, r.Enabled, r.Permissions = key, true, perms
	s.roles[key] = r
}

func (s *stubRepo) FindUserByUsername(_ context.Context, username string) (*User, error) {
	if err := s.hit("FindUserByUsername"); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindUserByID(_ context.Context, id int64) (*User, error) {
	if err := s.hit("FindUserByID"); err != nil {
		return nil, err
	}
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) FindRolesByUserID(_ context.Context, userID int64) ([]Role, error) {
	if err := s.hit("FindRolesByUserID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Role
	for _, key := range s.userRoles[userID] {
		if r, ok := s.roles[key]; ok && r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRepo) FindRolePermissions(_ context.Context, roleKey string) ([]string, error) {
	if err := s.hit("FindRolePermissions"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleKey]
	if !ok || !r.Enabled {
		return nil, nil
	}
	return append([]string(nil), r.Permissions...), nil
}

func (s *stubRepo) FindUserPermissions(_ context.Context, userID int64) ([]string, error) {
	if err := s.hit("FindUserPermissions"); err != nil {
		return nil, err
	}
	return s.direct[userID], nil
}

func (s *stubRepo) FindOrgPermissions(_ context.Context, userID int64) ([]string, error) {
	if err := s.hit("FindOrgPermissions"); err != nil {
		return nil, err
	}
	return s.org[userID], nil
}

func (s *stubRepo) FindAllMenus(_ context.Context) ([]Menu, error) {
	if err := s.hit("FindAllMenus"); err != nil {
		return nil, err
	}
	return append([]Menu(nil), s.menus...), nil
}

func (s *stubRepo) FindMenusByRoleBindings(_ context.Context, roleKeys []string) ([]Menu, error) {
	if err := s.hit("FindMenusByRoleBindings"); err != nil {
		return nil, err
	}
	byID := make(map[int64]Menu, len(s.menus))
	for _, m := range s.menus {
		byID[m.ID] = m
	}
	var out []Menu
	for _, key := range roleKeys {
		for _, id := range s.roleMenus[key] {
			out = append(out, byID[id])
		}
	}
	return out, nil
}

// sampleMenus 系统管理目录/用户与角色页面/若干按钮, 另有一个隐藏页面和一个停用页面
func sampleMenus() []Menu {
	return []Menu{
		{ID: 1, ParentID: 0, Name: "system", Type: MenuTypeDirectory, Visible: true, Enabled: true, SortOrder: 1},
		{ID: 2, ParentID: 1, Name: "users", Type: MenuTypePage, Permission: "system:user:list", Visible: true, Enabled: true, SortOrder: 2},
		{ID: 3, ParentID: 1, Name: "roles", Type: MenuTypePage, Permission: "system:role:list", Visible: true, Enabled: true, SortOrder: 1},
		{ID: 4, ParentID: 2, Name: "delete user", Type: MenuTypeAction, Permission: "system:user:delete", Visible: true, Enabled: true},
		{ID: 5, ParentID: 0, Name: "monitor", Type: MenuTypeDirectory, Visible: true, Enabled: true, SortOrder: 2},
		{ID: 6, ParentID: 5, Name: "jobs", Type: MenuTypePage, Permission: "monitor:job:list", Visible: false, Enabled: true},
		{ID: 7, ParentID: 5, Name: "legacy", Type: MenuTypePage, Permission: "monitor:legacy:list", Visible: true, Enabled: false},
	}
}

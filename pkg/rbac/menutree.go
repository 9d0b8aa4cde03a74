package rbac

import (
	"sort"

	"github.com/authcore/pkg/auth"
)

// VisibilityPolicy 菜单可见性策略
type VisibilityPolicy int

const (
	// AdminPolicy 保留所有启用节点, 忽略 visible
	AdminPolicy VisibilityPolicy = iota
	// MemberPolicy 只保留可见且启用的节点, 页面节点还需持有其权限
	MemberPolicy
)

// BuildTree 将扁平菜单组装为森林, 根节点 parentId 为 0, 子节点按 sort 升序.
// 入参不会被修改; 重复 ID 只保留第一条, 父节点缺失的节点被丢弃.
func BuildTree(menus []Menu) []*Menu {
	seen := make(map[int64]struct{}, len(menus))
	children := make(map[int64][]*Menu, len(menus))
	nodes := make([]*Menu, 0, len(menus))

	for i := range menus {
		m := menus[i]
		if _, dup := seen[m.ID]; dup || m.ParentID == m.ID {
			continue
		}
		seen[m.ID] = struct{}{}
		m.Children = nil
		node := &m
		nodes = append(nodes, node)
		children[m.ParentID] = append(children[m.ParentID], node)
	}

	for parentID := range children {
		sortMenus(children[parentID])
	}
	for _, node := range nodes {
		node.Children = children[node.ID]
	}
	return children[0]
}

func sortMenus(menus []*Menu) {
	sort.SliceStable(menus, func(i, j int) bool {
		if menus[i].SortOrder != menus[j].SortOrder {
			return menus[i].SortOrder < menus[j].SortOrder
		}
		return menus[i].ID < menus[j].ID
	})
}

// CollectPermissions 深度优先收集子树中所有非空权限, 去重并保持遍历顺序
func CollectPermissions(tree []*Menu) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(nodes []*Menu)
	walk = func(nodes []*Menu) {
		for _, n := range nodes {
			if n.Permission != "" {
				if _, ok := seen[n.Permission]; !ok {
					seen[n.Permission] = struct{}{}
					out = append(out, n.Permission)
				}
			}
			walk(n.Children)
		}
	}
	walk(tree)
	return out
}

// FilterTree 按策略过滤菜单树, 返回新的树.
// MemberPolicy 下子节点全部被过滤掉的目录也会被移除.
func FilterTree(tree []*Menu, policy VisibilityPolicy, held []string) []*Menu {
	out := make([]*Menu, 0, len(tree))
	for _, n := range tree {
		if !visible(n, policy, held) {
			continue
		}
		node := *n
		node.Children = FilterTree(n.Children, policy, held)
		if policy == MemberPolicy && n.Type == MenuTypeDirectory && len(n.Children) > 0 && len(node.Children) == 0 {
			continue
		}
		if len(node.Children) == 0 {
			node.Children = nil
		}
		out = append(out, &node)
	}
	return out
}

func visible(n *Menu, policy VisibilityPolicy, held []string) bool {
	if !n.Enabled {
		return false
	}
	if policy == AdminPolicy {
		return true
	}
	if !n.Visible {
		return false
	}
	if n.Type == MenuTypePage && n.Permission != "" {
		return auth.MatchesAny(held, n.Permission)
	}
	return true
}

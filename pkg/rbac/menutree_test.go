package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []*Menu) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildTree(t *testing.T) {
	flat := sampleMenus()
	tree := BuildTree(flat)

	require.Equal(t, []int64{1, 5}, ids(tree))
	assert.Equal(t, []int64{3, 2}, ids(tree[0].Children), "children sorted by sort order")
	assert.Equal(t, []int64{4}, ids(tree[0].Children[1].Children))
	assert.Equal(t, []int64{6, 7}, ids(tree[1].Children))

	for _, m := range flat {
		assert.Nil(t, m.Children, "input must not be mutated")
	}
}

func TestBuildTreeDropsOrphansAndDuplicates(t *testing.T) {
	tree := BuildTree([]Menu{
		{ID: 1, ParentID: 0, SortOrder: 2},
		{ID: 2, ParentID: 0, SortOrder: 1},
		{ID: 2, ParentID: 1},
		{ID: 3, ParentID: 99},
		{ID: 4, ParentID: 4},
		{ID: 5, ParentID: 1},
	})
	require.Equal(t, []int64{2, 1}, ids(tree))
	assert.Equal(t, []int64{5}, ids(tree[1].Children))
	assert.Empty(t, tree[0].Children)
}

func TestBuildTreeEmpty(t *testing.T) {
	assert.Empty(t, BuildTree(nil))
}

func TestCollectPermissions(t *testing.T) {
	tree := BuildTree(sampleMenus())

	assert.Equal(t, []string{
		"system:role:list",
		"system:user:list",
		"system:user:delete",
		"monitor:job:list",
		"monitor:legacy:list",
	}, CollectPermissions(tree))

	users := tree[0].Children[1]
	assert.Equal(t, []string{"system:user:list", "system:user:delete"}, CollectPermissions([]*Menu{users}))
	assert.Empty(t, CollectPermissions(nil))
}

func TestFilterTreeAdminPolicy(t *testing.T) {
	tree := FilterTree(BuildTree(sampleMenus()), AdminPolicy, nil)

	require.Equal(t, []int64{1, 5}, ids(tree))
	assert.Equal(t, []int64{6}, ids(tree[1].Children), "hidden kept, disabled dropped")
}

func TestFilterTreeMemberPolicy(t *testing.T) {
	source := BuildTree(sampleMenus())
	tree := FilterTree(source, MemberPolicy, []string{"system:user:list"})

	require.Equal(t, []int64{1}, ids(tree), "monitor directory has nothing visible left")
	require.Equal(t, []int64{2}, ids(tree[0].Children))
	assert.Equal(t, []int64{4}, ids(tree[0].Children[0].Children))

	// 源树保持不变
	assert.Equal(t, []int64{3, 2}, ids(source[0].Children))
}

func TestFilterTreeMemberWildcard(t *testing.T) {
	tree := FilterTree(BuildTree(sampleMenus()), MemberPolicy, []string{"system:*:*"})
	require.Equal(t, []int64{1}, ids(tree))
	assert.Equal(t, []int64{3, 2}, ids(tree[0].Children))
}

func TestFilterTreeKeepsEmptyDirectory(t *testing.T) {
	tree := FilterTree(BuildTree([]Menu{
		{ID: 1, Type: MenuTypeDirectory, Visible: true, Enabled: true},
	}), MemberPolicy, nil)
	assert.Equal(t, []int64{1}, ids(tree))
}

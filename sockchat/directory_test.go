package sockchat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectoryReplaceUsersExcludesSelf(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()

	d.ReplaceUsers([]string{"alice", "bob", "bob", "", "carol"}, "bob")
	req.Equal([]string{"alice", "carol"}, d.Users())
}

func TestDirectoryReplaceIsWholesale(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()

	d.ReplaceUsers([]string{"alice", "carol"}, "bob")
	d.ReplaceUsers([]string{"dave"}, "bob")
	req.Equal([]string{"dave"}, d.Users())

	d.ReplaceGroups([]Group{{Name: "team", MemberCount: 3}})
	d.ReplaceGroups([]Group{{Name: "ops", MemberCount: 1}, {Name: "", MemberCount: 9}})
	req.Equal([]Group{{Name: "ops", MemberCount: 1}}, d.Groups())
}

func TestDirectoryGroupLookup(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()
	d.ReplaceGroups([]Group{{Name: "team", MemberCount: 2}})

	g, ok := d.Group("team")
	req.True(ok)
	req.Equal(2, g.MemberCount)

	_, ok = d.Group("missing")
	req.False(ok)
}

func TestDirectorySnapshotsAreCopies(t *testing.T) {
	d := NewDirectory()
	d.ReplaceUsers([]string{"alice"}, "bob")
	users := d.Users()
	users[0] = "mutated"
	require.Equal(t, []string{"alice"}, d.Users())
}

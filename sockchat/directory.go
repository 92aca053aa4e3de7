package sockchat

import (
	"sync"

	"github.com/samber/lo"
)

// Group is one entry in the group roster.
type Group struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// Directory holds the latest server snapshot of who is online and which
// groups exist. The server returns the full roster on every refresh, so
// snapshots are replaced wholesale, never patched.
type Directory struct {
	mu     sync.RWMutex
	users  []string
	groups []Group
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// ReplaceUsers swaps in a new online-user snapshot, excluding self.
func (d *Directory) ReplaceUsers(users []string, self string) {
	next := lo.Uniq(lo.Filter(users, func(u string, _ int) bool {
		return u != "" && u != self
	}))
	d.mu.Lock()
	d.users = next
	d.mu.Unlock()
}

// ReplaceGroups swaps in a new group roster snapshot.
func (d *Directory) ReplaceGroups(groups []Group) {
	next := lo.Filter(groups, func(g Group, _ int) bool {
		return g.Name != ""
	})
	d.mu.Lock()
	d.groups = next
	d.mu.Unlock()
}

// Users returns a copy of the current online-user snapshot.
func (d *Directory) Users() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.users))
	copy(out, d.users)
	return out
}

// Groups returns a copy of the current group roster snapshot.
func (d *Directory) Groups() []Group {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Group, len(d.groups))
	copy(out, d.groups)
	return out
}

// Group looks up one roster entry by name.
func (d *Directory) Group(name string) (Group, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Find(d.groups, func(g Group) bool { return g.Name == name })
}

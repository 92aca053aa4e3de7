package sockchat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileIdentityStoreRoundTrip(t *testing.T) {
	req := require.New(t)
	store := NewFileIdentityStore(filepath.Join(t.TempDir(), "nested", "identity"))

	name, err := store.Load()
	req.NoError(err)
	req.Empty(name)

	req.NoError(store.Save("bob"))
	name, err = store.Load()
	req.NoError(err)
	req.Equal("bob", name)

	req.NoError(store.Clear())
	name, err = store.Load()
	req.NoError(err)
	req.Empty(name)

	// Clearing twice is fine.
	req.NoError(store.Clear())
}

func TestSessionConfirmPersists(t *testing.T) {
	req := require.New(t)
	store := NewFileIdentityStore(filepath.Join(t.TempDir(), "identity"))
	s := newSession(store)

	s.confirm("bob")
	req.Equal("bob", s.Identity())
	req.True(s.isConfirmed())

	persisted, err := store.Load()
	req.NoError(err)
	req.Equal("bob", persisted)
}

func TestSessionDropKeepsIdentity(t *testing.T) {
	req := require.New(t)
	s := newSession(nil)

	s.confirm("bob")
	s.dropConnection()
	req.False(s.isConfirmed())
	req.Equal("bob", s.Identity())
	req.Equal("bob", s.restoreCandidate())
}

func TestSessionRestoreCandidateFromDisk(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "identity")
	req.NoError(NewFileIdentityStore(path).Save("bob"))

	// Fresh process: nothing in memory, identity on disk.
	s := newSession(NewFileIdentityStore(path))
	req.Equal("bob", s.restoreCandidate())
}

func TestSessionRestoreCandidateEmptyWhenConfirmed(t *testing.T) {
	s := newSession(nil)
	s.confirm("bob")
	require.Empty(t, s.restoreCandidate())
}

func TestSessionClearWipesDisk(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "identity")
	store := NewFileIdentityStore(path)
	s := newSession(store)

	s.confirm("bob")
	s.clear()
	req.Empty(s.Identity())

	persisted, err := store.Load()
	req.NoError(err)
	req.Empty(persisted)
}

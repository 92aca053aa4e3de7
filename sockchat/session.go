package sockchat

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// IdentityStore persists the last confirmed identity across restarts.
// Load returns "" when nothing is stored.
type IdentityStore interface {
	Load() (string, error)
	Save(identity string) error
	Clear() error
}

// FileIdentityStore keeps the identity in a single file.
type FileIdentityStore struct {
	path string
}

// NewFileIdentityStore persists under path; the parent directory is
// created on first save.
func NewFileIdentityStore(path string) *FileIdentityStore {
	return &FileIdentityStore{path: path}
}

// DefaultIdentityPath returns the conventional identity file location
// under the user config dir.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sockchat", "identity"), nil
}

// Load reads the stored identity; a missing file is not an error.
func (f *FileIdentityStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the identity, creating the parent directory if needed.
func (f *FileIdentityStore) Save(identity string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(identity+"\n"), 0o600)
}

// Clear removes the stored identity; a missing file is not an error.
func (f *FileIdentityStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// noopIdentityStore disables persistence.
type noopIdentityStore struct{}

func (noopIdentityStore) Load() (string, error) { return "", nil }
func (noopIdentityStore) Save(string) error     { return nil }
func (noopIdentityStore) Clear() error          { return nil }

// session owns the local identity. The confirmed flag is scoped to one
// connection instance: a drop clears confirmation but keeps the identity
// so re-registration can be attempted once the connection is back.
type session struct {
	mu           sync.Mutex
	store        IdentityStore
	identity     string
	registeredAt time.Time
	confirmed    bool
}

func newSession(store IdentityStore) *session {
	if store == nil {
		store = noopIdentityStore{}
	}
	return &session{store: store}
}

func (s *session) setStore(store IdentityStore) {
	if store == nil {
		store = noopIdentityStore{}
	}
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

// Identity returns the local identity, or "" when unregistered. The
// identity is retained across connection drops; check isConfirmed for
// whether this connection instance has an accepted registration.
func (s *session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// isConfirmed reports whether the server accepted a registration on the
// current connection instance.
func (s *session) isConfirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// confirm records a server-accepted registration and persists it.
func (s *session) confirm(name string) {
	s.mu.Lock()
	s.identity = name
	s.registeredAt = time.Now()
	s.confirmed = true
	store := s.store
	s.mu.Unlock()
	_ = store.Save(name)
}

// dropConnection marks the session unconfirmed but retains the identity
// for automatic re-registration.
func (s *session) dropConnection() {
	s.mu.Lock()
	s.confirmed = false
	s.mu.Unlock()
}

// restoreCandidate returns the identity to re-register automatically, or
// "" when none applies. Falls back to the persisted identity so a fresh
// process can restore its previous session.
func (s *session) restoreCandidate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed {
		return ""
	}
	if s.identity != "" {
		return s.identity
	}
	name, err := s.store.Load()
	if err != nil {
		return ""
	}
	s.identity = name
	return name
}

// clear forgets the identity in memory and on disk.
func (s *session) clear() {
	s.mu.Lock()
	s.identity = ""
	s.registeredAt = time.Time{}
	s.confirmed = false
	store := s.store
	s.mu.Unlock()
	_ = store.Clear()
}

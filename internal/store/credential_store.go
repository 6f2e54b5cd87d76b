package store

import (
	"crypto/subtle"
	"fmt"
	"os"
	"sort"
	"sync"

	"securemail/internal/domain"
)

// CredentialFile is the username to password mapping kept as a JSON object
// on disk. The server loads it once at startup.
type CredentialFile struct {
	path string

	mu    sync.RWMutex
	users map[string]string
}

// LoadCredentialFile reads path. A missing or unparsable file is an error.
func LoadCredentialFile(path string) (*CredentialFile, error) {
	users := make(map[string]string)
	if err := readJSON(path, &users); err != nil {
		return nil, fmt.Errorf("store: credentials %s: %w", path, err)
	}
	return &CredentialFile{path: path, users: users}, nil
}

// OpenCredentialFile is LoadCredentialFile, except that a missing file
// yields an empty mapping which Put will create.
func OpenCredentialFile(path string) (*CredentialFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &CredentialFile{path: path, users: make(map[string]string)}, nil
	}
	return LoadCredentialFile(path)
}

// Verify reports whether creds names a registered user with exactly that
// password.
func (s *CredentialFile) Verify(creds domain.Credentials) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want, ok := s.users[creds.Username.String()]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(creds.Password)) == 1
}

// Exists reports whether username is registered.
func (s *CredentialFile) Exists(username domain.Username) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[username.String()]
	return ok
}

// Usernames returns the registered names in sorted order.
func (s *CredentialFile) Usernames() []domain.Username {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Username, 0, len(s.users))
	for u := range s.users {
		out = append(out, domain.Username(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Put adds or replaces a user and rewrites the file. A running server does
// not observe the change until it is restarted.
func (s *CredentialFile) Put(username domain.Username, password string) error {
	if err := username.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[username.String()] = password
	return writeJSON(s.path, s.users, 0o600)
}

// Compile-time assertion that CredentialFile implements domain.CredentialStore.
var _ domain.CredentialStore = (*CredentialFile)(nil)

package store

import (
	"os"
	"path/filepath"
	"sync"

	"securemail/internal/domain"
)

const publicKeySuffix = "_public.pem"

// FileKeyStorage keeps one PEM file per user, named <username>_public.pem,
// in a single directory.
type FileKeyStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileKeyStorage returns a FileKeyStorage rooted at dir.
func NewFileKeyStorage(dir string) *FileKeyStorage { return &FileKeyStorage{dir: dir} }

// PublicKeyPath is where the key for username is kept.
func (s *FileKeyStorage) PublicKeyPath(username domain.Username) string {
	return filepath.Join(s.dir, username.String()+publicKeySuffix)
}

// LoadPublicKey returns the stored key. A missing or empty file means the
// user has never presented one.
func (s *FileKeyStorage) LoadPublicKey(username domain.Username) ([]byte, bool, error) {
	if err := username.Validate(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readOptional(s.PublicKeyPath(username))
	if err != nil {
		return nil, false, err
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	return b, true, nil
}

// SavePublicKey replaces the stored key for username.
func (s *FileKeyStorage) SavePublicKey(username domain.Username, raw []byte) error {
	if err := username.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return replaceFile(s.PublicKeyPath(username), raw, 0o644)
}

// Close is a no-op.
func (s *FileKeyStorage) Close() error { return nil }

// Compile-time assertion that FileKeyStorage implements domain.KeyStorage.
var _ domain.KeyStorage = (*FileKeyStorage)(nil)

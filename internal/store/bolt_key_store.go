package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"securemail/internal/domain"
)

const (
	keysBucket     = "keys"
	metadataBucket = "metadata"
	versionKey     = "version"
	boltVersion    = 0
)

// BoltKeyStorage keeps pinned keys in a bbolt database, one entry per user
// in the keys bucket.
type BoltKeyStorage struct {
	db *bolt.DB
}

// OpenBoltKeyStorage creates or loads the database at path.
func OpenBoltKeyStorage(path string) (*BoltKeyStorage, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(keysBucket)); err != nil {
			return err
		}
		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != boltVersion {
				return fmt.Errorf("store: incompatible key database version: %v", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{boltVersion})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltKeyStorage{db: db}, nil
}

// LoadPublicKey returns the stored key for username.
func (s *BoltKeyStorage) LoadPublicKey(username domain.Username) ([]byte, bool, error) {
	if err := username.Validate(); err != nil {
		return nil, false, err
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(keysBucket)).Get([]byte(username)); len(v) > 0 {
			// v is only valid inside the transaction.
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return raw, raw != nil, nil
}

// SavePublicKey replaces the stored key for username.
func (s *BoltKeyStorage) SavePublicKey(username domain.Username, raw []byte) error {
	if err := username.Validate(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysBucket)).Put([]byte(username), raw)
	})
}

// Close flushes and closes the database.
func (s *BoltKeyStorage) Close() error {
	_ = s.db.Sync()
	return s.db.Close()
}

// Compile-time assertion that BoltKeyStorage implements domain.KeyStorage.
var _ domain.KeyStorage = (*BoltKeyStorage)(nil)

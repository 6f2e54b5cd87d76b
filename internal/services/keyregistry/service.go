package keyregistry

import (
	"fmt"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"securemail/internal/crypto"
	"securemail/internal/domain"
	"securemail/internal/instrument"
)

// Service is the key registry shared by all connection workers.
type Service struct {
	storage   domain.KeyStorage
	mailboxes domain.MailboxProvisioner
	log       *logging.Logger

	mu    sync.RWMutex
	cache map[domain.Username]*crypto.PublicKey

	locks keyedMutex
}

// New returns a registry over storage. When mailboxes is not nil, a
// registration also creates the user's mailbox.
func New(storage domain.KeyStorage, mailboxes domain.MailboxProvisioner, log *logging.Logger) *Service {
	return &Service{
		storage:   storage,
		mailboxes: mailboxes,
		log:       log,
		cache:     make(map[domain.Username]*crypto.PublicKey),
	}
}

// Lookup returns the pinned key for username. ok is false when the user has
// never registered one, or the stored key can no longer be parsed, in which
// case the user is asked for it again.
func (s *Service) Lookup(username domain.Username) (domain.Encrypter, bool, error) {
	if k := s.cached(username); k != nil {
		return k, true, nil
	}

	// Cache fills and registrations of one user are serialized.
	unlock := s.locks.Lock(username)
	defer unlock()
	if k := s.cached(username); k != nil {
		return k, true, nil
	}

	raw, ok, err := s.storage.LoadPublicKey(username)
	if err != nil {
		return nil, false, fmt.Errorf("keyregistry: load %s: %w", username, err)
	}
	if !ok {
		return nil, false, nil
	}
	k, err := crypto.ParsePublicKeyPEM(raw)
	if err != nil {
		s.log.Warningf("Ignoring unreadable key for %s: %v", username, err)
		return nil, false, nil
	}

	s.mu.Lock()
	s.cache[username] = k
	s.mu.Unlock()
	return k, true, nil
}

// Register pins raw, a PEM encoded RSA public key, for username. A later
// registration replaces the key.
func (s *Service) Register(username domain.Username, raw []byte) (domain.Encrypter, error) {
	if err := username.Validate(); err != nil {
		return nil, err
	}
	k, err := crypto.ParsePublicKeyPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("keyregistry: key for %s: %w", username, err)
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	if s.mailboxes != nil {
		if err := s.mailboxes.Ensure(username); err != nil {
			return nil, fmt.Errorf("keyregistry: mailbox for %s: %w", username, err)
		}
	}
	if err := s.storage.SavePublicKey(username, raw); err != nil {
		return nil, fmt.Errorf("keyregistry: save %s: %w", username, err)
	}

	s.mu.Lock()
	s.cache[username] = k
	s.mu.Unlock()

	s.log.Noticef("Pinned key for %s: %s", username, k.Fingerprint())
	instrument.KeyRegistered()
	return k, nil
}

func (s *Service) cached(username domain.Username) *crypto.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[username]
}

// Compile-time assertion that Service implements domain.KeyRegistry.
var _ domain.KeyRegistry = (*Service)(nil)

package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"securemail/internal/crypto"
	"securemail/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12

	privateSuffix = "_private.pem"
	publicSuffix  = "_public.pem"
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrExists is returned by Generate when a key pair is already present.
	ErrExists = errors.New("identity: key pair already exists")
)

// Service manages the key pairs kept in one directory.
type Service struct {
	dir  string
	bits int
}

// New returns a service storing key pairs under dir. A zero bits selects
// crypto.DefaultKeyBits.
func New(dir string, bits int) *Service {
	if bits == 0 {
		bits = crypto.DefaultKeyBits
	}
	return &Service{dir: dir, bits: bits}
}

// PrivateKeyPath returns the location of name's private key.
func (s *Service) PrivateKeyPath(name string) string {
	return filepath.Join(s.dir, name+privateSuffix)
}

// PublicKeyPath returns the location of name's public key.
func (s *Service) PublicKeyPath(name string) string {
	return filepath.Join(s.dir, name+publicSuffix)
}

// Generate creates a key pair for name and returns its fingerprint. The
// private key is sealed when passphrase is not empty. An existing pair is
// only replaced when overwrite is set.
func (s *Service) Generate(name, passphrase string, overwrite bool) (domain.Fingerprint, error) {
	if err := domain.Username(name).Validate(); err != nil {
		return "", err
	}
	if passphrase != "" && !isSecurePassphrase(passphrase) {
		return "", ErrWeakPassphrase
	}
	if !overwrite {
		if _, err := os.Stat(s.PrivateKeyPath(name)); err == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, s.PrivateKeyPath(name))
		}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", err
	}

	priv, err := crypto.GenerateKeyPair(s.bits)
	if err != nil {
		return "", err
	}
	pub := priv.Public()
	pubPEM, err := pub.MarshalPEM()
	if err != nil {
		return "", err
	}

	privPEM := priv.MarshalPEM()
	defer crypto.Wipe(privPEM)
	out := privPEM
	if passphrase != "" {
		if out, err = crypto.SealPrivateKey(passphrase, privPEM); err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(s.PrivateKeyPath(name), out, 0o600); err != nil {
		return "", err
	}
	if err := os.WriteFile(s.PublicKeyPath(name), pubPEM, 0o644); err != nil {
		return "", err
	}
	return pub.Fingerprint(), nil
}

// Load returns name's private key together with the PEM encoding of its
// public key, as uploaded on first contact.
func (s *Service) Load(name, passphrase string) (*crypto.PrivateKey, []byte, error) {
	priv, err := crypto.LoadPrivateKeyFile(s.PrivateKeyPath(name), passphrase)
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err := os.ReadFile(s.PublicKeyPath(name))
	if err != nil {
		return nil, nil, err
	}
	return priv, pubPEM, nil
}

// LoadPublic returns name's public key.
func (s *Service) LoadPublic(name string) (*crypto.PublicKey, error) {
	return crypto.LoadPublicKeyFile(s.PublicKeyPath(name))
}

// Sealed reports whether name's private key needs a passphrase.
func (s *Service) Sealed(name string) (bool, error) {
	raw, err := os.ReadFile(s.PrivateKeyPath(name))
	if err != nil {
		return false, err
	}
	defer crypto.Wipe(raw)
	return crypto.IsSealed(raw), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

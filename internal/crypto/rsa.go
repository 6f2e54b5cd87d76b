package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // #nosec G505 -- OAEP label hash fixed by the wire protocol.
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"securemail/internal/domain"
)

// DefaultKeyBits is the modulus size used by GenerateKeyPair callers.
const DefaultKeyBits = 2048

var (
	// ErrNoPEM is returned when the input holds no PEM block.
	ErrNoPEM = errors.New("crypto: no PEM block found")

	// ErrNotRSA is returned for PEM keys of any other algorithm.
	ErrNotRSA = errors.New("crypto: key is not RSA")
)

// PublicKey is an RSA public key able to encrypt short secrets for its owner.
type PublicKey struct {
	key *rsa.PublicKey
	fp  domain.Fingerprint
}

// NewPublicKey wraps k.
func NewPublicKey(k *rsa.PublicKey) (*PublicKey, error) {
	fp, err := FingerprintKey(k)
	if err != nil {
		return nil, err
	}
	return &PublicKey{key: k, fp: fp}, nil
}

// Encrypt encrypts plaintext with RSA-OAEP (SHA-1).
func (k *PublicKey) Encrypt(plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, k.key, plaintext, nil)
}

// Fingerprint returns the OpenSSH SHA256 fingerprint of the key.
func (k *PublicKey) Fingerprint() domain.Fingerprint { return k.fp }

// RSA returns the underlying key.
func (k *PublicKey) RSA() *rsa.PublicKey { return k.key }

// MarshalPEM encodes the key as a PKIX "PUBLIC KEY" block.
func (k *PublicKey) MarshalPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// PrivateKey is an RSA private key.
type PrivateKey struct {
	key *rsa.PrivateKey
}

// Decrypt reverses PublicKey.Encrypt.
func (k *PrivateKey) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha1.New(), rand.Reader, k.key, ciphertext, nil)
}

// Public returns the public half.
func (k *PrivateKey) Public() *PublicKey {
	pub, err := NewPublicKey(&k.key.PublicKey)
	if err != nil {
		// The key was validated when it was parsed or generated.
		panic(err)
	}
	return pub
}

// MarshalPEM encodes the key as a PKCS#1 "RSA PRIVATE KEY" block.
func (k *PrivateKey) MarshalPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.key),
	})
}

// GenerateKeyPair returns a fresh RSA key of the given size.
func GenerateKeyPair(bits int) (*PrivateKey, error) {
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: k}, nil
}

// ParsePublicKeyPEM accepts PKIX "PUBLIC KEY" and PKCS#1 "RSA PUBLIC KEY"
// blocks.
func ParsePublicKeyPEM(raw []byte) (*PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrNoPEM
	}
	var k *rsa.PublicKey
	switch block.Type {
	case "RSA PUBLIC KEY":
		parsed, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("crypto: parse PKCS#1 public key: %w", err)
		}
		k = parsed
	default:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("crypto: parse PKIX public key: %w", err)
		}
		rk, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, ErrNotRSA
		}
		k = rk
	}
	return NewPublicKey(k)
}

// ParsePrivateKeyPEM accepts PKCS#1 "RSA PRIVATE KEY" and PKCS#8
// "PRIVATE KEY" blocks.
func ParsePrivateKeyPEM(raw []byte) (*PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrNoPEM
	}
	defer Wipe(block.Bytes)

	if block.Type == "RSA PRIVATE KEY" {
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("crypto: parse PKCS#1 private key: %w", err)
		}
		return &PrivateKey{key: k}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse PKCS#8 private key: %w", err)
	}
	k, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return &PrivateKey{key: k}, nil
}

// LoadPrivateKeyFile reads a private key written by the keygen tool. Sealed
// files need passphrase; plain PEM files ignore it.
func LoadPrivateKeyFile(path, passphrase string) (*PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if IsSealed(raw) {
		pt, err := OpenPrivateKey(passphrase, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer Wipe(pt)
		return ParsePrivateKeyPEM(pt)
	}
	defer Wipe(raw)
	return ParsePrivateKeyPEM(raw)
}

// LoadPublicKeyFile reads a PEM public key from path.
func LoadPublicKeyFile(path string) (*PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePublicKeyPEM(raw)
}

// Compile-time assertion that PublicKey implements domain.Encrypter.
var _ domain.Encrypter = (*PublicKey)(nil)

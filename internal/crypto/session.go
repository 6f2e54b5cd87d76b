package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

const (
	// SessionKeyBytes is the size of a session key (AES-256).
	SessionKeyBytes = 32

	// BlockSize is the session cipher block size.
	BlockSize = aes.BlockSize

	padByte = ' '
)

// ErrBlockLength is returned when a ciphertext is empty or not a whole number
// of blocks.
var ErrBlockLength = errors.New("crypto: ciphertext is not a multiple of the block size")

// NewSessionKey returns a fresh random session key.
func NewSessionKey() ([]byte, error) {
	k := make([]byte, SessionKeyBytes)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

// SessionCipher encrypts each 16-byte block independently under the session
// key (ECB). It holds no mutable state.
type SessionCipher struct {
	block cipher.Block
}

// NewSessionCipher returns a cipher for key, which must be 16, 24 or 32 bytes.
func NewSessionCipher(key []byte) (*SessionCipher, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &SessionCipher{block: b}, nil
}

// Seal pads plaintext with spaces to the next block boundary (always adding
// at least one byte) and encrypts it.
func (c *SessionCipher) Seal(plaintext []byte) []byte {
	out := Pad(plaintext)
	for i := 0; i < len(out); i += BlockSize {
		c.block.Encrypt(out[i:i+BlockSize], out[i:i+BlockSize])
	}
	return out
}

// Open decrypts ciphertext and strips the trailing space padding.
func (c *SessionCipher) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrBlockLength
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(out); i += BlockSize {
		c.block.Decrypt(out[i:i+BlockSize], ciphertext[i:i+BlockSize])
	}
	return Unpad(out), nil
}

// Pad right-pads b with spaces to (len(b)/BlockSize+1)*BlockSize bytes.
func Pad(b []byte) []byte {
	n := (len(b)/BlockSize + 1) * BlockSize
	out := make([]byte, n)
	copy(out, b)
	for i := len(b); i < n; i++ {
		out[i] = padByte
	}
	return out
}

// Unpad strips trailing padding. Trailing spaces that were part of the
// message are indistinguishable from padding and are removed too.
func Unpad(b []byte) []byte {
	return bytes.TrimRight(b, string(padByte))
}

package handshake

import (
	"errors"
	"fmt"
	"strings"

	"securemail/internal/crypto"
	"securemail/internal/domain"
)

// Plaintext markers and the acknowledgment token.
const (
	MarkerNewClient = "NEW_CLIENT"
	MarkerRejected  = "Invalid username or password"
	Ack             = "OK"
)

var (
	// ErrDecrypt is returned when a handshake message does not decrypt.
	ErrDecrypt = errors.New("handshake: decryption failed")

	// ErrMalformedCredentials is returned when the credentials lack a colon.
	ErrMalformedCredentials = errors.New("handshake: malformed credentials")

	// ErrRejected is returned when the username or password is wrong.
	ErrRejected = errors.New("handshake: invalid username or password")

	// ErrBadPublicKey is returned when a new client uploads an unusable key.
	ErrBadPublicKey = errors.New("handshake: bad public key")

	// ErrBadAck is returned when the acknowledgment is missing or wrong.
	ErrBadAck = errors.New("handshake: bad acknowledgment")
)

// Error carries the username a failed handshake claimed, once it is known.
type Error struct {
	Username domain.Username
	Err      error
}

func (e *Error) Error() string { return fmt.Sprintf("%v (user %q)", e.Err, e.Username) }

func (e *Error) Unwrap() error { return e.Err }

// FrameConn is the framed transport the handshake runs on.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(b []byte) error
}

// Decrypter is the private half of an RSA key pair.
type Decrypter interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Session is the outcome of a successful handshake.
type Session struct {
	Username domain.Username
	Key      []byte

	// NewClient is set when the client's key was pinned by this handshake.
	NewClient bool
}

// Cipher returns the session cipher for s.
func (s *Session) Cipher() (*crypto.SessionCipher, error) {
	return crypto.NewSessionCipher(s.Key)
}

// FormatCredentials renders creds the way Accept parses them.
func FormatCredentials(creds domain.Credentials) []byte {
	return []byte(creds.Username.String() + ":" + creds.Password)
}

// ParseCredentials splits on the first colon, so a password may contain
// colons but a username may not.
func ParseCredentials(b []byte) (domain.Credentials, error) {
	user, pass, ok := strings.Cut(string(b), ":")
	if !ok {
		return domain.Credentials{}, ErrMalformedCredentials
	}
	return domain.Credentials{Username: domain.Username(user), Password: pass}, nil
}

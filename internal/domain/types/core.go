package types

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/secure/precis"
)

// ErrInvalidUsername is returned for names that cannot be used as a mailbox
// directory or key file component.
var ErrInvalidUsername = errors.New("invalid username")

// Username identifies a registered user, a mailbox and a pinned public key.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Validate reports whether u is usable as a single path component. Names are
// checked against the PRECIS username profile without case mapping, so the
// stored form is exactly what the user typed.
func (u Username) Validate() error {
	s := string(u)
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, s)
	}
	if strings.ContainsAny(s, `/\:`) || strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, s)
	}
	norm, err := precis.UsernameCasePreserved.String(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidUsername, s, err)
	}
	if norm != s {
		return fmt.Errorf("%w: %q is not in canonical form", ErrInvalidUsername, s)
	}
	return nil
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

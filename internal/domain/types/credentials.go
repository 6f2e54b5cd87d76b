package types

// Credentials is a username/password pair presented during the handshake.
// Passwords are compared as exact strings.
type Credentials struct {
	Username Username
	Password string
}

package interfaces

import domaintypes "securemail/internal/domain/types"

// Encrypter encrypts short secrets for one peer.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Fingerprint() domaintypes.Fingerprint
}

// KeyRegistry resolves a user to the key used to deliver their session key,
// pinning keys on first use.
type KeyRegistry interface {
	// Lookup returns ok=false when the user has never presented a key.
	Lookup(username domaintypes.Username) (key Encrypter, ok bool, err error)

	// Register pins raw for username. Re-registering replaces the old key.
	Register(username domaintypes.Username, raw []byte) (Encrypter, error)
}

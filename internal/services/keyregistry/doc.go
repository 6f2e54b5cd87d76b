// Package keyregistry resolves usernames to the RSA public keys used to
// deliver session keys, pinning a key the first time a user presents one.
//
// Keys are cached in memory after the first lookup. Registrations for the
// same user are serialized; different users never wait on each other.
package keyregistry

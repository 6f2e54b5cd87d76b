// Package identity creates and loads the RSA key pairs of mail users and of
// the server.
//
// A pair is kept as <name>_private.pem and <name>_public.pem in one
// directory. The private half is sealed under a passphrase when one is
// given, and the passphrase must then satisfy a basic strength policy.
package identity

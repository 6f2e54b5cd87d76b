// Package commands defines the securemail client CLI.
//
// Commands
//
//   - keygen       Create an RSA key pair for a user or for the server
//   - fingerprint  Print the fingerprint of a public key
//   - connect      Log in to a mail server and use the interactive menu
//
// Keys live in one directory (--key-dir) as <name>_private.pem and
// <name>_public.pem. connect also expects the server's public key there as
// server_public.pem.
package commands

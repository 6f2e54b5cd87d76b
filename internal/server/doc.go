// Package server implements the mail server: a TCP listener that hands each
// accepted connection to its own worker goroutine, which runs the handshake
// and then the menu loop over a challenge channel.
//
// Workers share nothing but the key registry and the mailbox store. A worker
// that panics is recovered and its connection closed; the listener and the
// other workers carry on.
package server

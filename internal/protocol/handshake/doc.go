// Package handshake establishes the session key of a connection.
//
// The client sends "username:password" encrypted to the server's RSA key.
// The server either rejects it with a plaintext marker, or replies with the
// session key encrypted to the client's pinned RSA key. A client whose key
// is not yet pinned is first asked for it with the NEW_CLIENT marker. The
// client proves it holds the session key by returning "OK" under the
// session cipher.
//
// Every failure ends the connection; there is no retry or renegotiation.
package handshake

// Package wire delimits protocol messages on a byte stream.
//
// Each message travels as one frame: a 4-byte big-endian length followed by
// that many bytes. Frames carry opaque bytes; plaintext markers, RSA blocks
// and session-encrypted payloads all use the same framing.
package wire

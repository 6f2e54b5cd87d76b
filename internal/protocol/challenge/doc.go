// Package challenge implements the per-message challenge carried inside the
// session cipher once the handshake has finished.
//
// The issuing side (the server) prefixes every frame it sends with two
// operands encoded as 6-character decimal fields left-padded with '.':
//
//	"..4711...815" + payload
//
// The answering side must start its next frame with the sum of the operands,
// padded the same way to 6 characters:
//
//	"..5526" + payload
//
// Exchanges are strictly half-duplex. The issuer keeps exactly one
// outstanding answer; a frame that does not carry it is discarded and the
// issuer keeps reading, up to a bounded number of frames, after which the
// connection is considered hostile.
//
// Operands come from crypto/rand so the next expected answer cannot be
// predicted from earlier traffic. The header only defends against replay of
// whole frames; it does nothing against tampering within a frame.
package challenge

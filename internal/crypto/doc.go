// Package crypto exposes the primitives used by the mail protocol.
//
// Contents
//
//   - RSA key pairs: PEM parsing and encoding, generation, and RSA-OAEP with
//     SHA-1 for the credential block and the session key (PublicKey,
//     PrivateKey, GenerateKeyPair)
//   - The AES-256 session cipher in ECB mode with space padding to the block
//     size (SessionCipher, NewSessionKey)
//   - OpenSSH-style SHA256 fingerprints for pinned keys (FingerprintKey)
//   - Passphrase-sealed private key files using scrypt and ChaCha20-Poly1305
//     (SealPrivateKey, OpenPrivateKey)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// The session cipher offers confidentiality per 16-byte block only. It has no
// integrity protection and identical plaintext blocks encrypt identically
// within a session. That is a property of the protocol being served, and the
// challenge header is its only replay defence.
package crypto

package crypto

import (
	"crypto/rsa"

	"golang.org/x/crypto/ssh"

	"securemail/internal/domain"
)

// FingerprintKey returns the OpenSSH SHA256 fingerprint of pub, e.g.
// "SHA256:uNiVztksCsDhcc0u9e8BujQXVUpKZIDTMczCvj3tD2s".
func FingerprintKey(pub *rsa.PublicKey) (domain.Fingerprint, error) {
	sk, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(ssh.FingerprintSHA256(sk)), nil
}

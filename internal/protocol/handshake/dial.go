package handshake

import (
	"bytes"

	"securemail/internal/crypto"
	"securemail/internal/domain"
)

// Dial runs the client side of the handshake on conn. publicPEM is sent
// only if the server has not pinned a key for the user yet.
func Dial(
	conn FrameConn,
	server domain.Encrypter,
	priv Decrypter,
	publicPEM []byte,
	creds domain.Credentials,
) (*Session, error) {
	pt := FormatCredentials(creds)
	ct, err := server.Encrypt(pt)
	crypto.Wipe(pt)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteFrame(ct); err != nil {
		return nil, err
	}

	sess := &Session{Username: creds.Username}
	reply, err := conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(reply, []byte(MarkerRejected)):
		return nil, ErrRejected
	case bytes.Equal(reply, []byte(MarkerNewClient)):
		if err := conn.WriteFrame(publicPEM); err != nil {
			return nil, err
		}
		if reply, err = conn.ReadFrame(); err != nil {
			return nil, err
		}
		sess.NewClient = true
	}

	if sess.Key, err = priv.Decrypt(reply); err != nil {
		return nil, ErrDecrypt
	}
	cipher, err := sess.Cipher()
	if err != nil {
		return nil, ErrDecrypt
	}
	if err := conn.WriteFrame(cipher.Seal([]byte(Ack))); err != nil {
		return nil, err
	}
	return sess, nil
}

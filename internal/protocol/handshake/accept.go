package handshake

import (
	"fmt"

	"securemail/internal/crypto"
	"securemail/internal/domain"
)

// Accept runs the server side of the handshake on conn.
func Accept(
	conn FrameConn,
	priv Decrypter,
	creds domain.CredentialStore,
	keys domain.KeyRegistry,
) (*Session, error) {
	// AwaitCredentials
	ct, err := conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	pt, err := priv.Decrypt(ct)
	if err != nil {
		return nil, ErrDecrypt
	}
	c, err := ParseCredentials(pt)
	crypto.Wipe(pt)
	if err != nil {
		return nil, err
	}
	user := c.Username

	// VerifyIdentity
	if !creds.Verify(c) {
		if err := conn.WriteFrame([]byte(MarkerRejected)); err != nil {
			return nil, &Error{Username: user, Err: err}
		}
		return nil, &Error{Username: user, Err: ErrRejected}
	}

	// ResolveClientKey
	sess := &Session{Username: user}
	clientKey, ok, err := keys.Lookup(user)
	if err != nil {
		return nil, &Error{Username: user, Err: err}
	}
	if !ok {
		if err := conn.WriteFrame([]byte(MarkerNewClient)); err != nil {
			return nil, &Error{Username: user, Err: err}
		}
		raw, err := conn.ReadFrame()
		if err != nil {
			return nil, &Error{Username: user, Err: err}
		}
		if _, err := crypto.ParsePublicKeyPEM(raw); err != nil {
			return nil, &Error{Username: user, Err: fmt.Errorf("%w: %v", ErrBadPublicKey, err)}
		}
		if clientKey, err = keys.Register(user, raw); err != nil {
			return nil, &Error{Username: user, Err: err}
		}
		sess.NewClient = true
	}

	// DeliverSessionKey
	if sess.Key, err = crypto.NewSessionKey(); err != nil {
		return nil, &Error{Username: user, Err: err}
	}
	wrapped, err := clientKey.Encrypt(sess.Key)
	if err != nil {
		return nil, &Error{Username: user, Err: err}
	}
	if err := conn.WriteFrame(wrapped); err != nil {
		return nil, &Error{Username: user, Err: err}
	}

	// AwaitAck
	cipher, err := sess.Cipher()
	if err != nil {
		return nil, &Error{Username: user, Err: err}
	}
	ack, err := conn.ReadFrame()
	if err != nil {
		return nil, &Error{Username: user, Err: err}
	}
	if got, err := cipher.Open(ack); err != nil || string(got) != Ack {
		return nil, &Error{Username: user, Err: ErrBadAck}
	}
	return sess, nil
}

package challenge

import (
	"errors"
	"fmt"

	"securemail/internal/crypto"
)

// DefaultRetries is how many frames Receive reads looking for the expected
// answer before giving up.
const DefaultRetries = 10

var (
	// ErrExhausted is returned when no frame within the retry budget carried
	// the expected answer. The connection must be dropped.
	ErrExhausted = errors.New("challenge: no frame answered the challenge")

	// ErrNoChallenge is returned by a Receive that is not preceded by a Send
	// (issuer) or by a Send that is not preceded by a Receive (responder).
	ErrNoChallenge = errors.New("challenge: no outstanding challenge")
)

// FrameConn is the framed transport under a channel.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(b []byte) error
}

// Channel is the issuing side. It owns the session cipher and the single
// outstanding answer of one connection and must not be shared.
type Channel struct {
	conn    FrameConn
	cipher  *crypto.SessionCipher
	retries int

	expected  string
	pending   bool
	discarded int
}

// NewChannel wraps an established session. retries <= 0 selects
// DefaultRetries.
func NewChannel(conn FrameConn, cipher *crypto.SessionCipher, retries int) *Channel {
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Channel{conn: conn, cipher: cipher, retries: retries}
}

// Send issues a fresh challenge with payload. The new answer replaces any
// previous one.
func (c *Channel) Send(payload []byte) error {
	a, b, err := New()
	if err != nil {
		return err
	}
	msg := make([]byte, 0, HeaderSize+len(payload))
	msg = append(msg, EncodeHeader(a, b)...)
	msg = append(msg, payload...)
	if err := c.conn.WriteFrame(c.cipher.Seal(msg)); err != nil {
		return err
	}
	c.expected = Answer(a, b)
	c.pending = true
	return nil
}

// SendString is Send for text payloads.
func (c *Channel) SendString(payload string) error { return c.Send([]byte(payload)) }

// Receive returns the payload of the first frame carrying the outstanding
// answer. Frames that fail to decrypt or carry another answer are discarded.
// Transport errors are returned immediately.
func (c *Channel) Receive() ([]byte, error) {
	if !c.pending {
		return nil, ErrNoChallenge
	}
	for i := 0; i < c.retries; i++ {
		ct, err := c.conn.ReadFrame()
		if err != nil {
			return nil, err
		}
		pt, err := c.cipher.Open(ct)
		if err != nil {
			c.discarded++
			continue
		}
		answer, payload, err := DecodeAnswer(string(pt))
		if err != nil || answer != c.expected {
			c.discarded++
			continue
		}
		c.pending = false
		c.expected = ""
		return []byte(payload), nil
	}
	return nil, fmt.Errorf("%w after %d frames", ErrExhausted, c.retries)
}

// ReceiveString is Receive for text payloads.
func (c *Channel) ReceiveString() (string, error) {
	b, err := c.Receive()
	return string(b), err
}

// Discarded is the number of frames dropped by Receive so far.
func (c *Channel) Discarded() int { return c.discarded }

// Responder is the answering side (the client).
type Responder struct {
	conn   FrameConn
	cipher *crypto.SessionCipher

	answer  string
	pending bool
}

// NewResponder wraps an established session.
func NewResponder(conn FrameConn, cipher *crypto.SessionCipher) *Responder {
	return &Responder{conn: conn, cipher: cipher}
}

// Receive reads one issuer frame, remembers the answer to its challenge and
// returns the payload.
func (r *Responder) Receive() ([]byte, error) {
	ct, err := r.conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	pt, err := r.cipher.Open(ct)
	if err != nil {
		return nil, err
	}
	a, b, payload, err := DecodeHeader(string(pt))
	if err != nil {
		return nil, err
	}
	r.answer = Answer(a, b)
	r.pending = true
	return []byte(payload), nil
}

// ReceiveString is Receive for text payloads.
func (r *Responder) ReceiveString() (string, error) {
	b, err := r.Receive()
	return string(b), err
}

// Send answers the most recent challenge and carries payload. The issuer
// accepts the answer at most once, so a second Send without an intervening
// Receive would be discarded by the peer and is refused here.
func (r *Responder) Send(payload []byte) error {
	if !r.pending {
		return ErrNoChallenge
	}
	msg := make([]byte, 0, FieldWidth+len(payload))
	msg = append(msg, EncodeAnswer(r.answer)...)
	msg = append(msg, payload...)
	if err := r.conn.WriteFrame(r.cipher.Seal(msg)); err != nil {
		return err
	}
	r.pending = false
	return nil
}

// SendString is Send for text payloads.
func (r *Responder) SendString(payload string) error { return r.Send([]byte(payload)) }

package challenge

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"securemail/internal/crypto"
)

// queue is an in-memory FrameConn endpoint for single goroutine tests.
type queue struct {
	in  *[][]byte
	out *[][]byte
}

func (q queue) ReadFrame() ([]byte, error) {
	if len(*q.in) == 0 {
		return nil, io.EOF
	}
	b := (*q.in)[0]
	*q.in = (*q.in)[1:]
	return b, nil
}

func (q queue) WriteFrame(b []byte) error {
	*q.out = append(*q.out, append([]byte(nil), b...))
	return nil
}

func newPair(t *testing.T) (*Channel, *Responder, *[][]byte, *crypto.SessionCipher) {
	t.Helper()
	key, err := crypto.NewSessionKey()
	require.NoError(t, err)
	c, err := crypto.NewSessionCipher(key)
	require.NoError(t, err)

	var toClient, toServer [][]byte
	issuer := NewChannel(queue{in: &toServer, out: &toClient}, c, 0)
	responder := NewResponder(queue{in: &toClient, out: &toServer}, c)
	return issuer, responder, &toServer, c
}

func TestExchange(t *testing.T) {
	require := require.New(t)
	issuer, responder, _, _ := newPair(t)

	require.NoError(issuer.SendString(""))
	require.NoError(issuer.SendString("menu"))

	got, err := responder.ReceiveString()
	require.NoError(err)
	require.Empty(got)
	got, err = responder.ReceiveString()
	require.NoError(err)
	require.Equal("menu", got)

	require.NoError(responder.SendString("1"))
	got, err = issuer.ReceiveString()
	require.NoError(err)
	require.Equal("1", got)
	require.Zero(issuer.Discarded())
}

func TestDiscardsFramesWithoutAnswer(t *testing.T) {
	require := require.New(t)
	issuer, responder, toServer, c := newPair(t)

	require.NoError(issuer.SendString("prompt"))
	_, err := responder.Receive()
	require.NoError(err)

	// A frame that does not decrypt to whole blocks, one with a wrong answer
	// and one too short to carry an answer.
	*toServer = append(*toServer,
		[]byte("garbage"),
		c.Seal([]byte("....-1spoofed")),
		c.Seal([]byte("1")),
	)
	require.NoError(responder.SendString("real"))

	got, err := issuer.ReceiveString()
	require.NoError(err)
	require.Equal("real", got)
	require.Equal(3, issuer.Discarded())
}

func TestReplayedAnswerIsRejected(t *testing.T) {
	require := require.New(t)
	issuer, responder, toServer, _ := newPair(t)

	require.NoError(issuer.SendString("one"))
	_, err := responder.Receive()
	require.NoError(err)
	require.NoError(responder.SendString("first"))
	captured := append([]byte(nil), (*toServer)[0]...)
	_, err = issuer.Receive()
	require.NoError(err)

	// The answer is consumed: receiving again without a new challenge fails.
	_, err = issuer.Receive()
	require.ErrorIs(err, ErrNoChallenge)

	// A fresh challenge invalidates the captured frame.
	require.NoError(issuer.SendString("two"))
	*toServer = append(*toServer, captured)
	_, err = responder.Receive()
	require.NoError(err)
	require.NoError(responder.SendString("second"))

	got, err := issuer.ReceiveString()
	require.NoError(err)
	require.Equal("second", got)
	require.Equal(1, issuer.Discarded())
}

func TestExhausted(t *testing.T) {
	require := require.New(t)
	issuer, _, toServer, c := newPair(t)

	require.NoError(issuer.SendString("prompt"))
	for i := 0; i < DefaultRetries; i++ {
		*toServer = append(*toServer, c.Seal([]byte("....-1nope")))
	}
	*toServer = append(*toServer, c.Seal([]byte("never read")))

	_, err := issuer.Receive()
	require.ErrorIs(err, ErrExhausted)
	require.Equal(DefaultRetries, issuer.Discarded())
	require.Len(*toServer, 1, "reads stop at the retry budget")
}

func TestResponderNeedsChallenge(t *testing.T) {
	_, responder, _, _ := newPair(t)
	require.ErrorIs(t, responder.SendString("x"), ErrNoChallenge)
}

func TestTransportErrorIsImmediate(t *testing.T) {
	issuer, _, _, _ := newPair(t)
	require.NoError(t, issuer.SendString("prompt"))
	_, err := issuer.Receive()
	require.ErrorIs(t, err, io.EOF)
}

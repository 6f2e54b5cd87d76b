package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultMaxFrameSize bounds a single frame. It leaves room for the
	// largest mail body (1,000,000 characters of UTF-8) plus headers and
	// padding.
	DefaultMaxFrameSize = 8 << 20

	headerSize = 4
)

// ErrFrameTooLarge is returned when a peer announces or a caller submits a
// frame above the limit.
var ErrFrameTooLarge = errors.New("wire: frame too large")

// Conn reads and writes frames on an underlying stream. It is not safe for
// concurrent use; each connection is owned by a single worker.
type Conn struct {
	rw       io.ReadWriter
	maxFrame int
}

// NewConn wraps rw. A maxFrame of zero or less selects DefaultMaxFrameSize.
func NewConn(rw io.ReadWriter, maxFrame int) *Conn {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &Conn{rw: rw, maxFrame: maxFrame}
}

// WriteFrame sends b as one frame.
func (c *Conn) WriteFrame(b []byte) error {
	if len(b) > c.maxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(b))
	}
	buf := make([]byte, headerSize+len(b))
	binary.BigEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[headerSize:], b)
	_, err := c.rw.Write(buf)
	return err
}

// ReadFrame blocks until a whole frame has arrived. There is no deadline; a
// stalled peer stalls the caller.
func (c *Conn) ReadFrame() ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(c.rw, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if uint64(n) > uint64(c.maxFrame) {
		return nil, fmt.Errorf("%w: peer announced %d bytes", ErrFrameTooLarge, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(c.rw, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

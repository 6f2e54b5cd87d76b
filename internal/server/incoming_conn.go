package server

import (
	"container/list"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync/atomic"

	"gopkg.in/op/go-logging.v1"

	"securemail/internal/instrument"
	"securemail/internal/protocol/challenge"
	"securemail/internal/protocol/handshake"
	"securemail/internal/wire"
)

var incomingConnID uint64

type incomingConn struct {
	l   *listener
	log *logging.Logger

	c  net.Conn
	e  *list.Element
	id uint64
}

func newIncomingConn(l *listener, conn net.Conn) *incomingConn {
	c := &incomingConn{
		l:  l,
		c:  conn,
		id: atomic.AddUint64(&incomingConnID, 1), // Diagnostic only, wrapping is fine.
	}
	c.log = l.s.cfg.LogBackend.GetLogger(fmt.Sprintf("conn:%d", c.id))
	c.log.Debugf("New incoming connection: %v", conn.RemoteAddr())

	// The worker is spawned by the listener once the conn is on its list.
	return c
}

func (c *incomingConn) worker() {
	instrument.WorkerStarted()
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("Worker panic: %v\n%s", r, debug.Stack())
		}
		c.log.Debugf("Closing.")
		c.c.Close()
		c.l.onClosedConn(c) // Remove from the connection list.
		instrument.WorkerDone()
	}()

	cfg := c.l.s.cfg
	conn := wire.NewConn(c.c, cfg.MaxFrameSize)

	sess, err := handshake.Accept(conn, cfg.PrivateKey, cfg.Credentials, cfg.Keys)
	if err != nil {
		c.onHandshakeError(err)
		return
	}
	instrument.Handshake(instrument.HandshakeOK)
	if sess.NewClient {
		c.log.Noticef("Registered first key for %s", sess.Username)
	}
	c.log.Noticef("Connection and handshake completed with %s", sess.Username)

	cipher, err := sess.Cipher()
	if err != nil {
		c.log.Errorf("Session cipher for %s: %v", sess.Username, err)
		return
	}
	ch := challenge.NewChannel(conn, cipher, cfg.ChallengeRetries)
	d := &dispatcher{
		ch:        ch,
		user:      sess.Username,
		mailboxes: cfg.Mailboxes,
		log:       c.log,
		now:       cfg.Now,
	}
	err = d.run()
	instrument.ChallengeDiscarded(ch.Discarded())

	switch {
	case err == nil:
	case errors.Is(err, challenge.ErrExhausted):
		instrument.ChallengeExhausted()
		c.log.Warningf("Dropping %s: %v", sess.Username, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		c.log.Infof("Connection with %s closed by peer", sess.Username)
	default:
		c.log.Errorf("Session with %s failed: %v", sess.Username, err)
	}
}

func (c *incomingConn) onHandshakeError(err error) {
	var herr *handshake.Error
	if !errors.As(err, &herr) {
		instrument.Handshake(instrument.HandshakeFailed)
		c.log.Warningf("Handshake failed: %v", err)
		return
	}
	if errors.Is(err, handshake.ErrRejected) {
		instrument.Handshake(instrument.HandshakeRejected)
		c.log.Noticef("The received client information: %s is invalid (Connection Terminated).", herr.Username)
		return
	}
	instrument.Handshake(instrument.HandshakeFailed)
	c.log.Warningf("Handshake with %s failed: %v", herr.Username, herr.Err)
}

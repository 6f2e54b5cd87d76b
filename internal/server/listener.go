package server

import (
	"container/list"
	"errors"
	"net"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"securemail/internal/instrument"
)

const keepAliveInterval = 3 * time.Minute

type listener struct {
	sync.Mutex
	Worker

	s   *Server
	log *logging.Logger

	l     net.Listener
	conns *list.List

	closeAllWg sync.WaitGroup
}

func newListener(s *Server, addr string) (*listener, error) {
	l := &listener{
		s:     s,
		log:   s.cfg.LogBackend.GetLogger("listener"),
		conns: list.New(),
	}

	var err error
	if l.l, err = net.Listen("tcp", addr); err != nil {
		return nil, err
	}

	l.Go(l.worker)
	return l, nil
}

// Halt closes the listening socket and every live connection, then waits
// for all workers to return.
func (l *listener) Halt() {
	l.l.Close()
	l.Worker.Halt()

	l.Lock()
	for e := l.conns.Front(); e != nil; e = e.Next() {
		e.Value.(*incomingConn).c.Close()
	}
	l.Unlock()
	l.closeAllWg.Wait()
}

func (l *listener) worker() {
	addr := l.l.Addr()
	l.log.Noticef("Listening on: %v", addr)
	defer func() {
		l.log.Noticef("Stopping listening on: %v", addr)
		l.l.Close() // Usually redundant, but harmless.
	}()
	for {
		conn, err := l.l.Accept()
		if err != nil {
			select {
			case <-l.HaltCh():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Warningf("Error accepting connection: %v", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(keepAliveInterval)
		}

		l.log.Debugf("Accepted new connection: %v", conn.RemoteAddr())
		instrument.ConnectionAccepted()

		l.onNewConn(conn)
	}
}

func (l *listener) onNewConn(conn net.Conn) {
	c := newIncomingConn(l, conn)

	l.closeAllWg.Add(1)
	l.Lock()
	defer func() {
		l.Unlock()
		go c.worker()
	}()
	c.e = l.conns.PushFront(c)
}

func (l *listener) onClosedConn(c *incomingConn) {
	l.Lock()
	defer func() {
		l.Unlock()
		l.closeAllWg.Done()
	}()
	l.conns.Remove(c.e)
}

// count is the number of live connections.
func (l *listener) count() int {
	l.Lock()
	defer l.Unlock()
	return l.conns.Len()
}

package server

import (
	"errors"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"securemail/internal/domain"
	"securemail/internal/log"
	"securemail/internal/protocol/handshake"
)

// Config holds everything a Server needs. The stores and the registry are
// shared by all workers and must be safe for concurrent use.
type Config struct {
	// Address is the TCP address to listen on, e.g. ":13000".
	Address string

	PrivateKey  handshake.Decrypter
	Credentials domain.CredentialStore
	Keys        domain.KeyRegistry
	Mailboxes   domain.MailboxStore

	// ChallengeRetries bounds the frames read while waiting for a
	// challenge answer. Zero selects the default.
	ChallengeRetries int

	// MaxFrameSize bounds a single frame. Zero selects the default.
	MaxFrameSize int

	LogBackend *log.Backend

	// Now stamps received mail. It defaults to time.Now.
	Now func() time.Time
}

func (cfg *Config) validate() error {
	switch {
	case cfg.PrivateKey == nil:
		return errors.New("server: no private key")
	case cfg.Credentials == nil:
		return errors.New("server: no credential store")
	case cfg.Keys == nil:
		return errors.New("server: no key registry")
	case cfg.Mailboxes == nil:
		return errors.New("server: no mailbox store")
	case cfg.LogBackend == nil:
		return errors.New("server: no log backend")
	}
	return nil
}

// Server is a running mail server.
type Server struct {
	cfg *Config
	log *logging.Logger

	listener *listener

	haltOnce sync.Once
	haltedCh chan interface{}
}

// New starts listening on cfg.Address and serving connections.
func New(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:      cfg,
		log:      cfg.LogBackend.GetLogger("server"),
		haltedCh: make(chan interface{}),
	}

	var err error
	if s.listener, err = newListener(s, cfg.Address); err != nil {
		s.log.Errorf("Failed to start listener '%v': %v", cfg.Address, err)
		return nil, err
	}
	s.log.Notice("The server is ready to accept connections")
	return s, nil
}

// Addr is the address the server is listening on.
func (s *Server) Addr() string { return s.listener.l.Addr().String() }

// Connections is the number of connections currently being served.
func (s *Server) Connections() int { return s.listener.count() }

// Shutdown stops accepting, closes every connection and waits for the
// workers to return.
func (s *Server) Shutdown() {
	s.haltOnce.Do(s.halt)
}

// Wait blocks until Shutdown has finished.
func (s *Server) Wait() {
	<-s.haltedCh
}

func (s *Server) halt() {
	s.log.Notice("Starting graceful shutdown.")
	s.listener.Halt()
	s.log.Notice("Shutdown complete.")
	close(s.haltedCh)
}

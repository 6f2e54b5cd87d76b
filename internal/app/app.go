package app

import (
	"gopkg.in/op/go-logging.v1"

	"securemail/internal/config"
	"securemail/internal/server"
)

// Server is a configured, running mail server together with its wiring.
type Server struct {
	*server.Server

	Wire *Wire
	log  *logging.Logger
}

// NewServer builds the wiring for cfg and starts serving.
func NewServer(cfg *config.Config, passphrase PassphraseFunc) (*Server, error) {
	w, err := NewWire(cfg, passphrase)
	if err != nil {
		return nil, err
	}
	log := w.LogBackend.GetLogger("app")
	log.Noticef("Server key fingerprint: %s", w.PrivateKey.Public().Fingerprint())
	if w.Metrics != nil {
		log.Noticef("Serving metrics on %v", w.Metrics.Addr())
	}

	srv, err := server.New(&server.Config{
		Address:          cfg.Server.Address,
		PrivateKey:       w.PrivateKey,
		Credentials:      w.Credentials,
		Keys:             w.Registry,
		Mailboxes:        w.Mailboxes,
		ChallengeRetries: cfg.Protocol.ChallengeRetries,
		MaxFrameSize:     cfg.Protocol.MaxFrameSize,
		LogBackend:       w.LogBackend,
	})
	if err != nil {
		w.Close()
		return nil, err
	}
	return &Server{Server: srv, Wire: w, log: log}, nil
}

// RotateLog reopens the log file.
func (s *Server) RotateLog() {
	if err := s.Wire.LogBackend.Rotate(); err != nil {
		s.log.Errorf("Failed to rotate log: %v", err)
		return
	}
	s.log.Notice("Log rotated")
}

// Shutdown stops the server and releases the wiring. It is safe to call more
// than once and from several goroutines.
func (s *Server) Shutdown() {
	s.Server.Shutdown()
	if err := s.Wire.Close(); err != nil {
		s.log.Warningf("Failed to close stores: %v", err)
	}
}

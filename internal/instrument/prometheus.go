// Package instrument holds the server's Prometheus metrics.
package instrument

import (
	"errors"
	goLog "log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"securemail/internal/domain"
)

const namespace = "securemail"

var (
	connectionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Number of accepted TCP connections",
		},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connections currently served by a worker",
		},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Handshakes by outcome",
		},
		[]string{"result"},
	)
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Menu operations requested by clients",
		},
		[]string{"operation"},
	)
	challengeDiscards = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_discarded_frames_total",
			Help:      "Frames dropped for not answering the outstanding challenge",
		},
	)
	challengeExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_exhausted_total",
			Help:      "Connections dropped after the challenge retry budget ran out",
		},
	)
	mailsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mails_stored_total",
			Help:      "Mail records written, one per recipient",
		},
	)
	keysRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_registered_total",
			Help:      "Public keys pinned on first use",
		},
	)

	registerOnce sync.Once
)

// Handshake outcomes.
const (
	HandshakeOK       = "ok"
	HandshakeRejected = "rejected"
	HandshakeFailed   = "failed"
)

// Init registers the metrics with the default registry. It is safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsAccepted,
			activeSessions,
			handshakes,
			operations,
			challengeDiscards,
			challengeExhausted,
			mailsStored,
			keysRegistered,
		)
	})
}

// Listener serves /metrics until Close.
type Listener struct {
	srv *http.Server
	ln  net.Listener
}

// Listen registers the metrics and starts serving them on addr.
func Listen(addr string, errorLog *goLog.Logger) (*Listener, error) {
	Init()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	l := &Listener{
		srv: &http.Server{
			Handler:           mux,
			ErrorLog:          errorLog,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln: ln,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && errorLog != nil {
			errorLog.Printf("metrics listener: %v", err)
		}
	}()
	return l, nil
}

// Addr is the address actually bound.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops serving.
func (l *Listener) Close() error { return l.srv.Close() }

// ConnectionAccepted counts an accepted connection.
func ConnectionAccepted() { connectionsAccepted.Inc() }

// WorkerStarted and WorkerDone track live workers.
func WorkerStarted() { activeSessions.Inc() }

func WorkerDone() { activeSessions.Dec() }

// Handshake counts a handshake outcome.
func Handshake(result string) { handshakes.WithLabelValues(result).Inc() }

// Operation counts a menu selection.
func Operation(c domain.Choice) { operations.WithLabelValues(c.String()).Inc() }

// ChallengeDiscarded adds n dropped frames.
func ChallengeDiscarded(n int) {
	if n > 0 {
		challengeDiscards.Add(float64(n))
	}
}

// ChallengeExhausted counts a connection dropped by the retry budget.
func ChallengeExhausted() { challengeExhausted.Inc() }

// MailStored counts one stored record.
func MailStored() { mailsStored.Inc() }

// KeyRegistered counts a pinned key.
func KeyRegistered() { keysRegistered.Inc() }

// Package servertest starts a mail server on loopback with a fixed set of
// users, for tests of the server and of its clients.
package servertest

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"securemail/internal/client"
	"securemail/internal/crypto"
	"securemail/internal/domain"
	"securemail/internal/log"
	"securemail/internal/protocol/challenge"
	"securemail/internal/protocol/handshake"
	"securemail/internal/server"
	"securemail/internal/services/keyregistry"
	"securemail/internal/store"
	"securemail/internal/wire"
)

// Users maps the registered test users to their passwords.
var Users = map[domain.Username]string{
	"alice": "p1",
	"bob":   "p2",
	"carol": "p3",
}

// Epoch is the first timestamp the harness clock hands out. Every call
// advances it by one second.
var Epoch = time.Date(2024, 11, 23, 10, 0, 0, 0, time.Local)

const keyBits = 1024

var (
	keysOnce sync.Once
	keys     map[string]*crypto.PrivateKey
	keysErr  error
)

// Key returns the test private key of name, "server" or a user. Keys are
// generated once per test binary.
func Key(t testing.TB, name string) *crypto.PrivateKey {
	t.Helper()
	keysOnce.Do(func() {
		keys = make(map[string]*crypto.PrivateKey)
		for _, n := range []string{"server", "alice", "bob", "carol", "mallory"} {
			if keys[n], keysErr = crypto.GenerateKeyPair(keyBits); keysErr != nil {
				return
			}
		}
	})
	require.NoError(t, keysErr)
	k, ok := keys[name]
	require.True(t, ok, "no test key for %q", name)
	return k
}

// SyncBuffer is a bytes.Buffer safe for concurrent writers.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Harness is a running server and the stores behind it.
type Harness struct {
	Server    *server.Server
	Dir       string
	Mailboxes *store.MailboxFileStore
	Registry  *keyregistry.Service
	Log       *SyncBuffer
}

// Option adjusts the server configuration before it starts.
type Option func(*server.Config)

// Start runs a server on 127.0.0.1 and shuts it down when the test ends.
func Start(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	dir := t.TempDir()

	credPath := filepath.Join(dir, "user_pass.json")
	creds, err := store.OpenCredentialFile(credPath)
	require.NoError(t, err)
	for u, p := range Users {
		require.NoError(t, creds.Put(u, p))
	}

	h := &Harness{Dir: dir, Log: new(SyncBuffer)}
	backend, err := log.NewWriter(h.Log, "DEBUG")
	require.NoError(t, err)

	h.Mailboxes = store.NewMailboxFileStore(filepath.Join(dir, "mail"), backend.GetLogger("mailbox"))
	h.Registry = keyregistry.New(
		store.NewFileKeyStorage(filepath.Join(dir, "keys")),
		h.Mailboxes,
		backend.GetLogger("keyregistry"),
	)

	var tick int64
	cfg := &server.Config{
		Address:     "127.0.0.1:0",
		PrivateKey:  Key(t, "server"),
		Credentials: creds,
		Keys:        h.Registry,
		Mailboxes:   h.Mailboxes,
		LogBackend:  backend,
		Now: func() time.Time {
			return Epoch.Add(time.Duration(atomic.AddInt64(&tick, 1)-1) * time.Second)
		},
	}
	for _, o := range opts {
		o(cfg)
	}

	h.Server, err = server.New(cfg)
	require.NoError(t, err)
	t.Cleanup(h.Server.Shutdown)
	return h
}

// ClientConfig returns a client configuration for user.
func (h *Harness) ClientConfig(t testing.TB, user domain.Username, password string) *client.Config {
	t.Helper()
	k := Key(t, user.String())
	pem, err := k.Public().MarshalPEM()
	require.NoError(t, err)
	return &client.Config{
		Address:     h.Server.Addr(),
		ServerKey:   Key(t, "server").Public(),
		PrivateKey:  k,
		PublicPEM:   pem,
		Credentials: domain.Credentials{Username: user, Password: password},
	}
}

// Dial connects user with the registered password.
func (h *Harness) Dial(t testing.TB, user domain.Username) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, h.ClientConfig(t, user, Users[user]))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// Raw is an established session below the client API, for tests that need
// to send what a well-behaved client would not.
type Raw struct {
	Conn      net.Conn
	Frames    *wire.Conn
	Cipher    *crypto.SessionCipher
	Responder *challenge.Responder
}

// DialRaw performs the handshake for user and reads the first, empty
// challenge. The menu has not been read yet.
func (h *Harness) DialRaw(t testing.TB, user domain.Username) *Raw {
	t.Helper()
	conn, err := net.DialTimeout("tcp", h.Server.Addr(), 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	cfg := h.ClientConfig(t, user, Users[user])
	frames := wire.NewConn(conn, 0)
	sess, err := handshake.Dial(frames, cfg.ServerKey, cfg.PrivateKey, cfg.PublicPEM, cfg.Credentials)
	require.NoError(t, err)
	cipher, err := sess.Cipher()
	require.NoError(t, err)

	r := &Raw{Conn: conn, Frames: frames, Cipher: cipher, Responder: challenge.NewResponder(frames, cipher)}
	first, err := r.Responder.ReceiveString()
	require.NoError(t, err)
	require.Empty(t, first)
	return r
}

// Eventually polls cond until it holds or a few seconds pass.
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond, msg)
}

// WriteFile is a small helper for fixtures.
func WriteFile(t testing.TB, path string, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

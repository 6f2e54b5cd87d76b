package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"securemail/internal/config"
	"securemail/internal/domain"
	"securemail/internal/services/identity"
)

const testPassphrase = "Server-Secret-99"

func setup(t *testing.T, backend string) (*config.Config, string) {
	t.Helper()
	require := require.New(t)

	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")
	ids := identity.New(keyDir, 1024)
	_, err := ids.Generate(ServerKeyName, testPassphrase, false)
	require.NoError(err)
	_, err = ids.Generate("alice", "", false)
	require.NoError(err)

	creds := filepath.Join(dir, "user_pass.json")
	require.NoError(os.WriteFile(creds, []byte(`{"alice":"p1"}`), 0o600))

	body := `
[Server]
Address = "127.0.0.1:0"
DataDir = "` + filepath.Join(dir, "data") + `"
PrivateKeyFile = "` + ids.PrivateKeyPath(ServerKeyName) + `"
CredentialsFile = "` + creds + `"

[KeyRegistry]
Backend = "` + backend + `"

[Logging]
File = "` + filepath.Join(dir, "server.log") + `"
Level = "DEBUG"

[Metrics]
Address = "127.0.0.1:0"
`
	cfg, err := config.Load([]byte(body))
	require.NoError(err)
	return cfg, keyDir
}

func TestServerRoundTrip(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			require := require.New(t)
			cfg, keyDir := setup(t, backend)

			srv, err := NewServer(cfg, func() (string, error) { return testPassphrase, nil })
			require.NoError(err)
			defer srv.Shutdown()
			require.NotNil(srv.Wire.Metrics)

			c, err := DialClient(context.Background(), ClientConfig{
				KeyDir:   keyDir,
				Address:  srv.Addr(),
				Username: "alice",
				Password: "p1",
			})
			require.NoError(err)
			defer c.Close()
			require.True(c.Session().NewClient)

			require.NoError(c.SendMail([]domain.Username{"alice"}, "Note", "to self"))
			listing, err := c.Inbox()
			require.NoError(err)
			require.Contains(listing, "alice")
			require.Contains(listing, "Note")

			rec, ok, err := c.ReadEmail("1")
			require.NoError(err)
			require.True(ok)
			require.True(strings.HasSuffix(rec, "to self"))
			require.NoError(c.Quit())

			pinned, found, err := srv.Wire.KeyStorage.LoadPublicKey("alice")
			require.NoError(err)
			require.True(found)
			require.NotEmpty(pinned)

			srv.RotateLog()
		})
	}
}

func TestShutdownTwice(t *testing.T) {
	require := require.New(t)
	cfg, _ := setup(t, config.BackendBolt)

	srv, err := NewServer(cfg, func() (string, error) { return testPassphrase, nil })
	require.NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Shutdown()
		}()
	}
	wg.Wait()
	srv.Shutdown()
	srv.Wait()

	require.NoError(srv.Wire.Close())
	_, _, err = srv.Wire.KeyStorage.LoadPublicKey("alice")
	require.Error(err, "bolt storage should be closed")
}

func TestNewServerNeedsPassphrase(t *testing.T) {
	cfg, _ := setup(t, config.BackendFile)
	cfg.Metrics.Address = ""

	_, err := NewServer(cfg, nil)
	require.Error(t, err)
}

func TestNewServerMissingCredentials(t *testing.T) {
	cfg, _ := setup(t, config.BackendFile)
	cfg.Metrics.Address = ""
	cfg.Server.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := NewServer(cfg, func() (string, error) { return testPassphrase, nil })
	require.Error(t, err)
}

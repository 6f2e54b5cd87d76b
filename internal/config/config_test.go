package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	require := require.New(t)

	_, err := Load(nil)
	require.Error(err, "no Load() with nil config")

	cfg, err := Load([]byte(""))
	require.NoError(err)
	require.Equal(":13000", cfg.Server.Address)
	require.Equal(".", cfg.Server.DataDir)
	require.Equal("server_private.pem", cfg.Server.PrivateKeyFile)
	require.Equal("user_pass.json", cfg.Server.CredentialsFile)
	require.Equal(BackendFile, cfg.KeyRegistry.Backend)
	require.Equal(".", cfg.KeyRegistry.Dir)
	require.Equal("keys.db", cfg.KeyRegistry.BoltFile)
	require.Equal(10, cfg.Protocol.ChallengeRetries)
	require.Equal(8<<20, cfg.Protocol.MaxFrameSize)
	require.Equal("NOTICE", cfg.Logging.Level)
	require.Empty(cfg.Metrics.Address)

	require.Equal(cfg, Default())
}

func TestLoadFile(t *testing.T) {
	require := require.New(t)

	body := `# A full configuration.
[Server]
Address = "127.0.0.1:2525"
DataDir = "/var/lib/securemail"

[KeyRegistry]
Backend = "bolt"

[Protocol]
ChallengeRetries = 3

[Logging]
Level = "debug"
File = "/var/log/securemail.log"

[Metrics]
Address = "127.0.0.1:6543"
`
	path := filepath.Join(t.TempDir(), "mailserver.toml")
	require.NoError(os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(err)
	require.Equal("127.0.0.1:2525", cfg.Server.Address)
	require.Equal(BackendBolt, cfg.KeyRegistry.Backend)
	require.Equal("/var/lib/securemail", cfg.KeyRegistry.Dir)
	require.Equal("/var/lib/securemail/keys.db", cfg.KeyRegistry.BoltFile)
	require.Equal(3, cfg.Protocol.ChallengeRetries)
	require.Equal("DEBUG", cfg.Logging.Level)
	require.Equal("127.0.0.1:6543", cfg.Metrics.Address)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(err)
}

func TestValidation(t *testing.T) {
	for name, body := range map[string]string{
		"backend":      "[KeyRegistry]\nBackend = \"sqlite\"\n",
		"retries":      "[Protocol]\nChallengeRetries = -1\n",
		"frame size":   "[Protocol]\nMaxFrameSize = 16\n",
		"log level":    "[Logging]\nLevel = \"LOUD\"\n",
		"unknown key":  "[Server]\nPort = 13000\n",
		"syntax error": "[Server\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(body))
			require.Error(t, err)
		})
	}
}

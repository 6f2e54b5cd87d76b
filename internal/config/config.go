// Package config implements the mail server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"securemail/internal/protocol/challenge"
	"securemail/internal/wire"
)

const (
	defaultAddress         = ":13000"
	defaultDataDir         = "."
	defaultPrivateKeyFile  = "server_private.pem"
	defaultCredentialsFile = "user_pass.json"
	defaultBoltFile        = "keys.db"
	defaultLogLevel        = "NOTICE"

	// BackendFile keeps one PEM file per user.
	BackendFile = "file"

	// BackendBolt keeps pinned keys in a bbolt database.
	BackendBolt = "bolt"

	minFrameSize = 4096
)

// Server is the listener and file layout configuration.
type Server struct {
	// Address is the TCP address to listen on.
	Address string

	// DataDir is the root of the per-user mailbox directories.
	DataDir string

	// PrivateKeyFile is the server's RSA private key, plain PEM or sealed
	// with a passphrase.
	PrivateKeyFile string

	// CredentialsFile is the JSON username to password mapping.
	CredentialsFile string
}

func (sCfg *Server) applyDefaults() {
	if sCfg.Address == "" {
		sCfg.Address = defaultAddress
	}
	if sCfg.DataDir == "" {
		sCfg.DataDir = defaultDataDir
	}
	if sCfg.PrivateKeyFile == "" {
		sCfg.PrivateKeyFile = defaultPrivateKeyFile
	}
	if sCfg.CredentialsFile == "" {
		sCfg.CredentialsFile = defaultCredentialsFile
	}
}

// KeyRegistry selects where pinned client keys are kept.
type KeyRegistry struct {
	// Backend is "file" or "bolt".
	Backend string

	// Dir holds the <username>_public.pem files. It defaults to the
	// server DataDir.
	Dir string

	// BoltFile is the bbolt database used by the bolt backend. It defaults
	// to keys.db in Dir.
	BoltFile string
}

func (kCfg *KeyRegistry) applyDefaults(sCfg *Server) {
	if kCfg.Backend == "" {
		kCfg.Backend = BackendFile
	}
	if kCfg.Dir == "" {
		kCfg.Dir = sCfg.DataDir
	}
	if kCfg.BoltFile == "" {
		kCfg.BoltFile = filepath.Join(kCfg.Dir, defaultBoltFile)
	}
}

func (kCfg *KeyRegistry) validate() error {
	switch kCfg.Backend {
	case BackendFile, BackendBolt:
		return nil
	default:
		return fmt.Errorf("config: KeyRegistry: Backend '%v' is invalid", kCfg.Backend)
	}
}

// Protocol holds the session tunables.
type Protocol struct {
	// ChallengeRetries is how many frames the server reads looking for the
	// answer to its last challenge before dropping the connection.
	ChallengeRetries int

	// MaxFrameSize bounds a single protocol message in bytes.
	MaxFrameSize int
}

func (pCfg *Protocol) applyDefaults() {
	if pCfg.ChallengeRetries == 0 {
		pCfg.ChallengeRetries = challenge.DefaultRetries
	}
	if pCfg.MaxFrameSize == 0 {
		pCfg.MaxFrameSize = wire.DefaultMaxFrameSize
	}
}

func (pCfg *Protocol) validate() error {
	if pCfg.ChallengeRetries < 1 {
		return fmt.Errorf("config: Protocol: ChallengeRetries %d is invalid", pCfg.ChallengeRetries)
	}
	if pCfg.MaxFrameSize < minFrameSize {
		return fmt.Errorf("config: Protocol: MaxFrameSize %d is below %d", pCfg.MaxFrameSize, minFrameSize)
	}
	return nil
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl // Force uppercase.
	return nil
}

// Metrics is the Prometheus endpoint configuration.
type Metrics struct {
	// Address serves /metrics when set.
	Address string
}

// Config is the top level mail server configuration.
type Config struct {
	Server      *Server
	KeyRegistry *KeyRegistry
	Protocol    *Protocol
	Logging     *Logging
	Metrics     *Metrics
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Server == nil {
		cfg.Server = &Server{}
	}
	if cfg.KeyRegistry == nil {
		cfg.KeyRegistry = &KeyRegistry{}
	}
	if cfg.Protocol == nil {
		cfg.Protocol = &Protocol{}
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &Metrics{}
	}

	cfg.Server.applyDefaults()
	cfg.KeyRegistry.applyDefaults(cfg.Server)
	cfg.Protocol.applyDefaults()

	if err := cfg.KeyRegistry.validate(); err != nil {
		return err
	}
	if err := cfg.Protocol.validate(); err != nil {
		return err
	}
	return cfg.Logging.validate()
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := new(Config)
	if err := cfg.FixupAndValidate(); err != nil {
		panic("config: defaults are invalid: " + err.Error())
	}
	return cfg
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: no nil buffer as config file")
	}

	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

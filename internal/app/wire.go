package app

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"securemail/internal/config"
	"securemail/internal/crypto"
	"securemail/internal/domain"
	"securemail/internal/instrument"
	"securemail/internal/log"
	"securemail/internal/services/keyregistry"
	"securemail/internal/store"
)

// PassphraseFunc supplies the passphrase of a sealed private key. It is only
// called when one is needed.
type PassphraseFunc func() (string, error)

// Wire bundles all stores, services and listeners of a server.
type Wire struct {
	LogBackend  *log.Backend
	PrivateKey  *crypto.PrivateKey
	Credentials *store.CredentialFile
	KeyStorage  domain.KeyStorage
	Mailboxes   *store.MailboxFileStore
	Registry    *keyregistry.Service
	Metrics     *instrument.Listener

	closeOnce sync.Once
	closeErr  error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg *config.Config, passphrase PassphraseFunc) (_ *Wire, err error) {
	w := new(Wire)
	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	if w.LogBackend, err = log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable); err != nil {
		return nil, err
	}
	if w.PrivateKey, err = loadPrivateKey(cfg.Server.PrivateKeyFile, passphrase); err != nil {
		return nil, err
	}
	if w.Credentials, err = store.LoadCredentialFile(cfg.Server.CredentialsFile); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(cfg.Server.DataDir, 0o700); err != nil {
		return nil, err
	}
	w.Mailboxes = store.NewMailboxFileStore(cfg.Server.DataDir, w.LogBackend.GetLogger("mailbox"))

	switch cfg.KeyRegistry.Backend {
	case config.BackendBolt:
		if w.KeyStorage, err = store.OpenBoltKeyStorage(cfg.KeyRegistry.BoltFile); err != nil {
			return nil, err
		}
	default:
		if err = os.MkdirAll(cfg.KeyRegistry.Dir, 0o700); err != nil {
			return nil, err
		}
		w.KeyStorage = store.NewFileKeyStorage(cfg.KeyRegistry.Dir)
	}
	w.Registry = keyregistry.New(w.KeyStorage, w.Mailboxes, w.LogBackend.GetLogger("keyregistry"))

	if cfg.Metrics.Address != "" {
		errLog := w.LogBackend.GetGoLogger("metrics", "WARNING")
		if w.Metrics, err = instrument.Listen(cfg.Metrics.Address, errLog); err != nil {
			return nil, fmt.Errorf("app: metrics listener: %w", err)
		}
	} else {
		instrument.Init()
	}
	return w, nil
}

// Close releases what NewWire opened. Only the first call does any work.
func (w *Wire) Close() error {
	w.closeOnce.Do(func() { w.closeErr = w.close() })
	return w.closeErr
}

func (w *Wire) close() error {
	var errs []error
	if w.Metrics != nil {
		errs = append(errs, w.Metrics.Close())
	}
	if w.KeyStorage != nil {
		errs = append(errs, w.KeyStorage.Close())
	}
	return errors.Join(errs...)
}

func loadPrivateKey(path string, passphrase PassphraseFunc) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sealed := crypto.IsSealed(raw)
	crypto.Wipe(raw)

	var pass string
	if sealed {
		if passphrase == nil {
			return nil, fmt.Errorf("app: %s is sealed and no passphrase was given", path)
		}
		if pass, err = passphrase(); err != nil {
			return nil, err
		}
	}
	return crypto.LoadPrivateKeyFile(path, pass)
}

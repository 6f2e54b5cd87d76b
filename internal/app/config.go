package app

import (
	"context"

	"securemail/internal/client"
	"securemail/internal/domain"
	"securemail/internal/services/identity"
)

// ClientConfig holds runtime wiring options for a client session.
type ClientConfig struct {
	KeyDir     string // holds <user>_*.pem and server_public.pem
	Address    string // server address, e.g. 127.0.0.1:13000
	Username   string
	Password   string
	Passphrase PassphraseFunc // for a sealed private key; may be nil
}

// ServerKeyName is the name under which the server's public key is kept in a
// client key directory.
const ServerKeyName = "server"

// DialClient loads the user's keys and the server key from cfg.KeyDir and
// opens a session.
func DialClient(ctx context.Context, cfg ClientConfig) (*client.Client, error) {
	ids := identity.New(cfg.KeyDir, 0)

	sealed, err := ids.Sealed(cfg.Username)
	if err != nil {
		return nil, err
	}
	var pass string
	if sealed && cfg.Passphrase != nil {
		if pass, err = cfg.Passphrase(); err != nil {
			return nil, err
		}
	}
	priv, pubPEM, err := ids.Load(cfg.Username, pass)
	if err != nil {
		return nil, err
	}
	serverKey, err := ids.LoadPublic(ServerKeyName)
	if err != nil {
		return nil, err
	}

	return client.Dial(ctx, &client.Config{
		Address:    cfg.Address,
		ServerKey:  serverKey,
		PrivateKey: priv,
		PublicPEM:  pubPEM,
		Credentials: domain.Credentials{
			Username: domain.Username(cfg.Username),
			Password: cfg.Password,
		},
	})
}

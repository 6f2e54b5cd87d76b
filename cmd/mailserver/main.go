// Command mailserver runs the secure mail server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"securemail/internal/app"
	"securemail/internal/config"
	"securemail/internal/services/identity"
)

// passphraseEnv names the environment variable consulted before prompting
// for the passphrase of a sealed server key.
const passphraseEnv = "SECUREMAIL_PASSPHRASE"

type rootFlags struct {
	ConfigFile string
	GenOnly    bool
}

func newRootCommand() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "mailserver",
		Short: "Secure mail server",
		Long: `The mail server authenticates users against a credentials file, pins each
user's RSA public key on first contact and keeps one mailbox directory per
user. Every session is encrypted with a fresh key the server sends under the
user's pinned public key, and every message carries a challenge against replay.`,
		Example: `  # Start with the defaults (keys and mailboxes in the current directory)
  mailserver

  # Start with a configuration file
  mailserver -f /etc/securemail/mailserver.toml

  # Create the server key pair and exit
  mailserver -f mailserver.toml --generate-only

  # Register a user
  mailserver -f mailserver.toml adduser alice`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.ConfigFile)
			if err != nil {
				return err
			}
			if flags.GenOnly {
				return generateServerKey(cmd, cfg)
			}
			return runServer(cfg)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "f", "",
		"path to the server configuration file (TOML format)")
	cmd.Flags().BoolVarP(&flags.GenOnly, "generate-only", "g", false,
		"generate the server key pair and exit without starting the server")

	cmd.AddCommand(newAddUserCommand(&flags))
	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(versioninfo.Short()),
	); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%v': %v", path, err)
	}
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	haltCh := make(chan os.Signal, 1)
	signal.Notify(haltCh, os.Interrupt, syscall.SIGTERM)

	rotateCh := make(chan os.Signal, 1)
	signal.Notify(rotateCh, syscall.SIGHUP)

	svr, err := app.NewServer(cfg, readPassphrase)
	if err != nil {
		return fmt.Errorf("failed to spawn server instance: %v", err)
	}
	defer svr.Shutdown()

	// Halt the server gracefully on SIGINT/SIGTERM.
	go func() {
		<-haltCh
		svr.Shutdown()
	}()

	// Rotate server logs upon SIGHUP.
	go func() {
		for range rotateCh {
			svr.RotateLog()
		}
	}()

	svr.Wait()
	return nil
}

// generateServerKey writes the server key pair next to the configured
// private key file. The public half is what clients need as
// server_public.pem.
func generateServerKey(cmd *cobra.Command, cfg *config.Config) error {
	path := cfg.Server.PrivateKeyFile
	name, ok := strings.CutSuffix(filepath.Base(path), "_private.pem")
	if !ok {
		return fmt.Errorf("private key file %q must be named <name>_private.pem", path)
	}

	pass := os.Getenv(passphraseEnv)
	ids := identity.New(filepath.Dir(path), 0)
	fp, err := ids.Generate(name, pass, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server key written to %s\nPublic key: %s\nFingerprint: %s\n",
		ids.PrivateKeyPath(name), ids.PublicKeyPath(name), fp)
	return nil
}

func readPassphrase() (string, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return pass, nil
	}
	return readSecret("Server key passphrase: ")
}

func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("not a terminal; cannot prompt for a secret")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

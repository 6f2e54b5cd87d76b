package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	keyDir     string
	passphrase string
)

// Execute runs the CLI.
func Execute() error {
	return fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(versioninfo.Short()),
	)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "securemail",
		Short:        "Secure mail client and key tool",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&keyDir, "key-dir", ".", "directory holding the PEM key files")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the private key")

	root.AddCommand(keygenCmd(), fingerprintCmd(), connectCmd())
	return root
}

// readSecret prompts on the terminal without echo.
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

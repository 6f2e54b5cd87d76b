package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"securemail/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <public.pem>",
		Short: "Print a public key fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := crypto.LoadPublicKeyFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", pub.Fingerprint())
			return nil
		},
	}
}

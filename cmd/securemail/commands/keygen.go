package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"securemail/internal/crypto"
	"securemail/internal/services/identity"
)

func keygenCmd() *cobra.Command {
	var (
		bits  int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "keygen <name>",
		Short: "Generate an RSA key pair",
		Long: `Generate an RSA key pair as <name>_private.pem and <name>_public.pem in
--key-dir. With -p the private key is sealed under the passphrase.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := identity.New(keyDir, bits)
			fp, err := ids.Generate(args[0], passphrase, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key pair created.\nPrivate key: %s\nPublic key: %s\nFingerprint: %s\n",
				ids.PrivateKeyPath(args[0]), ids.PublicKeyPath(args[0]), fp)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", crypto.DefaultKeyBits, "RSA modulus size")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key pair")
	return cmd
}

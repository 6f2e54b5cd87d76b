package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"securemail/internal/domain"
	"securemail/internal/store"
)

func newAddUserCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "adduser <username>",
		Short: "Add a user to the credentials file or change their password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.ConfigFile)
			if err != nil {
				return err
			}
			username := domain.Username(args[0])
			if err := username.Validate(); err != nil {
				return err
			}

			creds, err := store.OpenCredentialFile(cfg.Server.CredentialsFile)
			if err != nil {
				return err
			}
			password, err := readSecret("Password: ")
			if err != nil {
				return err
			}
			confirm, err := readSecret("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			if password == "" {
				return errors.New("empty password")
			}

			existed := creds.Exists(username)
			if err := creds.Put(username, password); err != nil {
				return err
			}
			verb := "Added"
			if existed {
				verb = "Updated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s\n", verb, username, cfg.Server.CredentialsFile)
			fmt.Fprintln(cmd.OutOrStdout(), "Restart the server to pick up the change.")
			return nil
		},
	}
}

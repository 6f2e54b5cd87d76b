package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"securemail/internal/app"
	"securemail/internal/client"
)

// connect: log in as --username and run the interactive menu.
func connectCmd() *cobra.Command {
	var (
		address  string
		username string
		filesDir string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Log in to a mail server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if address == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter the server host name or IP: ")
				line, err := in.ReadString('\n')
				if err != nil {
					return err
				}
				address = strings.TrimSpace(line)
				if !strings.Contains(address, ":") {
					address += ":13000"
				}
			}
			if username == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter your username: ")
				line, err := in.ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}
			password, err := readSecret("Enter your password: ")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			c, err := app.DialClient(ctx, app.ClientConfig{
				KeyDir:   keyDir,
				Address:  address,
				Username: username,
				Password: password,
				Passphrase: func() (string, error) {
					if passphrase != "" {
						return passphrase, nil
					}
					return readSecret("Private key passphrase: ")
				},
			})
			if err != nil {
				return err
			}
			defer c.Close()

			p := &client.Prompt{
				Client:   c,
				In:       in,
				Out:      cmd.OutOrStdout(),
				FilesDir: filesDir,
			}
			return p.Run()
		},
	}
	cmd.Flags().StringVar(&address, "server", "", "server address, host:port (prompted when empty)")
	cmd.Flags().StringVar(&username, "username", "", "your username (prompted when empty)")
	cmd.Flags().StringVar(&filesDir, "files", ".", "directory for mail content files")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout for establishing the connection")
	return cmd
}

// Package client is the user side of the mail protocol: it dials a server,
// runs the handshake and then answers the server's challenges while driving
// the menu. Run wraps it in the interactive prompt loop used by the CLI.
package client

// Package app wires the mail server and client from configuration.
//
// NewWire builds the concrete stores, the key registry and the optional
// metrics endpoint from a config.Config. Server starts a server.Server over
// a Wire. DialClient does the same for the client side from a ClientConfig.
package app

// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration and the gRPC session client into a small REPL:
// register or log in, inspect the current identity with status, refresh the
// access token and log out. The REPL is started via App.Run, which blocks
// until the user exits.
package cli

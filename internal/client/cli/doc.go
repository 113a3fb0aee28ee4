// Package cli provides the interactive SessionKeeper command-line client.
//
// It wires configuration, the shared credential store, the session
// supervisor and an interactive REPL. The supervisor runs in the background
// for the lifetime of the REPL and prints a notice as soon as the session
// expires, whether the token ran out here or another process logged out.
//
// Commands:
//   - login           read a token (hidden input) and store it
//   - mint <ttl>      issue and store a development token
//   - logout          clear the shared credential
//   - status          show session state and remaining time
//   - verify          re-check the stored credential now
//   - help, exit|quit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled.
package cli

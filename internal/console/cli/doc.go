// Package cli provides the interactive police records console.
//
// It wires configuration, device storage, the agent directory, the session
// manager and the auth gate behind a small REPL. On start the console tries a
// silent login from what the device remembers, then keeps the session honest
// with a background revalidation watcher.
//
// Commands:
//   - login / logout
//   - recover     issue a temporary password from NIP + registered email
//   - whoami      protected: the signed-in agent
//   - dashboard   protected: headline counts over the records
//
// Protected commands go through authgate.Gate; when it redirects, the REPL
// shows the reason and the login prompt instead of the view.
package cli

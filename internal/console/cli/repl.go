package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Recover(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Dashboard(ctx context.Context) error
}

// runREPL reads commands line by line from reader, dispatches them to a and
// writes prompts and replies to out.
// It exits on EOF or when the operator types "exit" or "quit".
//
//	Not logged in:
//	  - help                  show available commands
//	  - login                 sign in
//	  - recover               issue a temporary password
//	  - exit | quit
//
//	Logged in:
//	  - help
//	  - whoami                the signed-in agent
//	  - (d)ashboard           headline counts
//	  - logout
//	  - exit | quit
//
// Handlers report their own failures to the operator, so returned errors are
// ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "poli %s > \n", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: whoami, (d)ashboard, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: login, recover, whoami, (d)ashboard, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "d", "dashboard":
			_ = a.Dashboard(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}

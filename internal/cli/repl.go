package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Verify(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it to a. Handlers read
// their own prompts from the same reader. The loop exits on EOF, on "exit" or "quit", or when ctx is cancelled.
//
//	Not logged in:
//	  - help           show available commands
//	  - register       create an account
//	  - login          authenticate and start a session
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - refresh        renew the access token with the refresh token
//	  - passwd         change the password
//	  - verify         check the current access token
//	  - logout         revoke the refresh token and end the session
//
// Handler errors are reported and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("auth> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		err = nil
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: refresh, passwd, verify, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "refresh":
			err = a.Refresh(ctx)

		case "passwd":
			err = a.ChangePassword(ctx)

		case "verify":
			err = a.Verify(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Server(ctx context.Context, input string) error
	SignIn(ctx context.Context) error
	PIN(ctx context.Context, code string) error
	Accounts(ctx context.Context) error
	Use(ctx context.Context, domain, user string) error
	SignOut(ctx context.Context, domain, user string) error
	Status(ctx context.Context) error
}

const helpText = "Available commands: server <domain>, signin, pin [code], accounts, " +
	"use <domain> <user>, signout <domain> <user>, status, exit"

// runREPL starts a simple read–eval–print loop for the fediauth CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Errors returned by handlers are
// printed and the loop continues. The loop exits on scanner EOF, when ctx is
// done, or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("fediauth%s> ", withSpace(statusFn())))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "server":
			if len(args) == 0 {
				printlnFn("Usage: server <domain>")
				continue
			}
			err = a.Server(ctx, strings.Join(args, " "))

		case "signin", "login":
			err = a.SignIn(ctx)

		case "pin":
			err = a.PIN(ctx, strings.Join(args, ""))

		case "accounts", "l", "list":
			err = a.Accounts(ctx)

		case "use":
			if len(args) != 2 {
				printlnFn("Usage: use <domain> <user>")
				continue
			}
			err = a.Use(ctx, args[0], args[1])

		case "signout", "logout":
			if len(args) != 2 {
				printlnFn("Usage: signout <domain> <user>")
				continue
			}
			err = a.SignOut(ctx, args[0], args[1])

		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func withSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}

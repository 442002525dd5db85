package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it;
// tests use a recording stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Report(ctx context.Context) error
	Advance(ctx context.Context, args []string) error
	Upvote(ctx context.Context, args []string) error
	Repost(ctx context.Context, args []string) error
	Watch(ctx context.Context, args []string) error
	Unwatch(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: login, (l)ist [page], show <id>, watch <id>, unwatch <id>, exit"
	helpSignedIn  = "Available commands: (l)ist [page], show <id>, report, advance <id> <status>, upvote <id>, repost <id>, watch <id>, unwatch <id>, whoami, logout, exit"
)

// runREPL reads commands from reader until EOF, "exit" or "quit" and
// dispatches them to a. Command errors are printed and the loop goes on.
//
//	Not signed in:
//	  - help, login, list [page], show <id>, watch <id>, unwatch <id>, exit | quit
//
//	Signed in, additionally:
//	  - report             file a new issue (interactive)
//	  - advance <id> <st>  move an issue to Pending, In Progress or Resolved
//	  - upvote <id>, repost <id>
//	  - whoami, logout
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("civic %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "l", "list":
			cmdErr = a.List(ctx, args)

		case "show":
			cmdErr = a.Show(ctx, args)

		case "report":
			cmdErr = a.Report(ctx)

		case "advance":
			cmdErr = a.Advance(ctx, args)

		case "upvote":
			cmdErr = a.Upvote(ctx, args)

		case "repost":
			cmdErr = a.Repost(ctx, args)

		case "watch":
			cmdErr = a.Watch(ctx, args)

		case "unwatch":
			cmdErr = a.Unwatch(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}

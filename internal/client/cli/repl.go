package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	CloudRegister(ctx context.Context) error
	CloudLogin(ctx context.Context) error
	CloudLogout(ctx context.Context) error

	Generate(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Mkdir(ctx context.Context, args []string) error
	Folders(ctx context.Context) error
	Rmdir(ctx context.Context, args []string) error

	Sync(ctx context.Context) error
	Stats(ctx context.Context) error
	Cleanup(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

var errNotLoggedIn = errors.New("please login or register first")

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: generate, (l)ist, search, show, export, delete, mkdir, folders, rmdir, sync, stats, cleanup, status, cloud-register, cloud-login, cloud-logout, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit". Command
// errors are printed and do not stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "gallery %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(out, "Bye!")
			return
		}
		if err := dispatch(ctx, a, cmd, args, out); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			fmt.Fprintln(out, helpLoggedIn)
		} else {
			fmt.Fprintln(out, helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		switch cmd {
		case "logout", "generate", "l", "list", "search", "show", "export", "delete", "mkdir",
			"folders", "rmdir", "sync", "stats", "cleanup", "status", "cloud-register", "cloud-login", "cloud-logout":
			return errNotLoggedIn
		}
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "generate":
		return a.Generate(ctx, args)
	case "l", "list":
		return a.List(ctx, args)
	case "search":
		return a.Search(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "export":
		return a.Export(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "mkdir":
		return a.Mkdir(ctx, args)
	case "folders":
		return a.Folders(ctx)
	case "rmdir":
		return a.Rmdir(ctx, args)
	case "sync":
		return a.Sync(ctx)
	case "stats":
		return a.Stats(ctx)
	case "cleanup":
		return a.Cleanup(ctx, args)
	case "status":
		return a.Status(ctx)
	case "cloud-register":
		return a.CloudRegister(ctx)
	case "cloud-login":
		return a.CloudLogin(ctx)
	case "cloud-logout":
		return a.CloudLogout(ctx)
	}

	fmt.Fprintln(out, "Unknown command:", cmd)
	return nil
}

// idlecore runs the idle game in a terminal.
// Usage: idlecore [--version] [--plain] [--script <file>] [--trace] [--content <dir>] [--slot <name>]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nathoo/idlecore/app"
	"github.com/nathoo/idlecore/cli"
	"github.com/nathoo/idlecore/cli/command"
	"github.com/nathoo/idlecore/config"
	"github.com/nathoo/idlecore/logging"
	"github.com/nathoo/idlecore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: idlecore [--version] [--plain] [--script <file>] [--trace] [--content <dir>] [--slot <name>]"

func main() {
	plain := false
	trace := false
	var scriptFile, contentDir, slot string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("idlecore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script", "--content", "--slot":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a value\n", args[i])
				os.Exit(1)
			}
			i++
			switch args[i-1] {
			case "--script":
				scriptFile = args[i]
			case "--content":
				contentDir = args[i]
			case "--slot":
				slot = args[i]
			}
		case "-h", "--help":
			fmt.Println(usage)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q\n%s\n", args[i], usage)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if contentDir != "" {
		cfg.ContentDir = contentDir
	}
	if slot != "" {
		cfg.SaveSlot = slot
	}

	if err := run(cfg, scriptFile, plain, trace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, scriptFile string, plain, trace bool) error {
	// Logs go to the log file or nowhere so the terminal stays clean.
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		logOut = nil
	}
	logger, closer, err := logging.Setup(cfg, logOut)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Start(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	s := command.NewSession(a.Game)
	defer s.Close()

	// Script mode: read commands from a file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(s)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.Run(ctx)
		return nil
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		c := cli.New(s)
		c.Trace = trace
		c.Run(ctx)
		return nil
	}

	return tui.Run(ctx, s, a.Game)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Package cli provides plain line-oriented terminal I/O for the idle game:
// a prompt loop, output formatting and meta-command dispatch.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/idlecore/cli/command"
	"github.com/nathoo/idlecore/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *command.Session
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given session.
func New(s *command.Session) *CLI {
	return &CLI{
		Session: s,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the title and status, then loops: prompt → input → dispatch →
// output. It returns when input ends, /quit is entered or ctx is done.
func (c *CLI) Run(ctx context.Context) {
	game := c.Session.Defs().Game
	c.printLine(banner(game))
	c.printLine("")
	c.printLines(c.Session.Status())

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Session.Step(input)
		c.printLines(result.Output)

		if c.Trace {
			c.printTrace(result)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	if strings.Fields(input)[0] == "/trace" {
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}
		return false
	}

	lines, quit, handled := c.Session.Meta(ctx, input)
	if !handled {
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", strings.Fields(input)[0]))
		return false
	}
	for _, line := range lines {
		c.printSystem(line)
	}
	return quit
}

func (c *CLI) printTrace(result command.Result) {
	c.printSystem(fmt.Sprintf("[trace] Intent: verb=%q object=%q target=%q", result.Intent.Verb, result.Intent.Object, result.Intent.Target))
	if result.Err != nil {
		c.printSystem(fmt.Sprintf("[trace] Error: %v", result.Err))
	}
	if len(result.Events) > 0 {
		c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
		}
	}
}

func banner(g types.GameDef) string {
	line := g.Title
	if g.Version != "" {
		line += " v" + g.Version
	}
	if g.Author != "" {
		line += " by " + g.Author
	}
	return line
}

func (c *CLI) printLines(lines []string) {
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

// Shell is the interactive pvctl prompt.
type Shell struct {
	client  PVClient
	timeout time.Duration
}

// NewShell creates a shell using c. timeout bounds each command.
func NewShell(c PVClient, timeout time.Duration) *Shell {
	return &Shell{client: c, timeout: timeout}
}

// Run reads commands until EOF, "exit" or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pv> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("get"), readline.PcItem("put"), readline.PcItem("info"),
			readline.PcItem("monitor"), readline.PcItem("help"), readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	s.printHelp(out)
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		quit, err := s.Execute(ctx, line, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs one command line. It reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string, w io.Writer) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		return true, nil
	case "help", "?":
		s.printHelp(w)
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch cmd {
	case "get", "g":
		if len(args) == 0 {
			return false, errors.New("usage: get <pv>...")
		}
		return false, RunGet(ctx, s.client, args, w)

	case "put", "p":
		if len(args) < 2 {
			return false, errors.New("usage: put <pv> <value>")
		}
		return false, RunPut(ctx, s.client, args[0], strings.Join(args[1:], " "), w)

	case "info", "i":
		if len(args) == 0 {
			return false, errors.New("usage: info <pv>...")
		}
		return false, RunInfo(ctx, s.client, args, w)

	case "monitor", "m":
		// monitor <pv> [events]; bounded by the command timeout.
		if len(args) == 0 {
			return false, errors.New("usage: monitor <pv> [events]")
		}
		count := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return false, fmt.Errorf("invalid event count %q", args[1])
			}
			count = n
		}
		mask, _ := ParseMask("")
		return false, RunMonitor(ctx, s.client, args[:1], mask, count, w)

	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (s *Shell) printHelp(w io.Writer) {
	fmt.Fprint(w, `Commands:
  get <pv>...            Read values
  put <pv> <value>       Write a value (arrays: 1,2,3)
  info <pv>...           Show type, count and description
  monitor <pv> [n]       Print n events (default: until timeout)
  help                   Show this help
  exit                   Leave the shell
`)
}

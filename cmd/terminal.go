package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/config"
	"github.com/lehigh-university-libraries/reviewbox/internal/state"
)

// terminal is a line-oriented prompt. It confirms destructive actions and
// prints notices for the interactive commands.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// ReadCommand prompts and returns the next trimmed line split into a verb
// and its arguments. ok is false at end of input.
func (t *terminal) ReadCommand(prompt string) (verb string, args []string, ok bool) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", nil, false
	}
	// A lone space is the skip key.
	if strings.Trim(line, "\r\n") == " " {
		return " ", nil, true
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, true
	}
	return fields[0], fields[1:], true
}

func (t *terminal) Confirm(ctx context.Context, prompt string) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(t.out, "%s [y/N] ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (t *terminal) Notify(msg string) {
	fmt.Fprintln(t.out, "! "+msg)
}

func (t *terminal) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// openState returns the Redis store when configured and the YAML file store
// otherwise. The returned close function is never nil.
func openState(cfg *config.Config) (state.Store, func(), error) {
	if cfg.RedisAddr != "" {
		pool := state.NewRedisPool(cfg.RedisAddr, 2)
		store := state.NewRedis(pool, "reviewbox:")
		slog.Debug("using redis state", "addr", cfg.RedisAddr)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close redis pool", "err", err)
			}
		}, nil
	}
	store, err := state.OpenFile(cfg.StateFile)
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() {}, nil
}

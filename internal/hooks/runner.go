package hooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"go.uber.org/zap"

	"agentkit/internal/hookinput"
)

// Input is the sanitized hook input the handlers read.
type Input = hookinput.Input

// DefaultMaxStdinBytes bounds how much of stdin a hook reads.
const DefaultMaxStdinBytes = 1 << 20

// RunOptions tunes input handling.
type RunOptions struct {
	MaxStdinBytes  int64
	MaxFieldLength int
	// DumpDir receives the redacted input when set. Only used in debug mode.
	DumpDir string
}

// Runner is the fail-open boundary around the Dispatcher. Whatever goes
// wrong inside a handler, the host sees a successful hook with no output.
type Runner struct {
	Dispatcher *Dispatcher
	Log        *zap.Logger
	Options    RunOptions
}

// Run reads one hook invocation from stdin, dispatches it and copies the
// handler output to stdout only when the handler succeeded. The event name
// is args[0] when given, else the event field of the input.
func (r *Runner) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	var buf bytes.Buffer
	ev, err := r.run(ctx, args, stdin, &buf)
	if err != nil {
		log.Error("hook failed, continuing silently",
			zap.String("event", ev.String()),
			zap.Error(err))
		return
	}
	if buf.Len() == 0 {
		return
	}
	if _, err := buf.WriteTo(stdout); err != nil {
		log.Error("write hook output", zap.String("event", ev.String()), zap.Error(err))
	}
}

func (r *Runner) run(ctx context.Context, args []string, stdin io.Reader, w io.Writer) (ev EventType, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s handler: %v\n%s", ev, p, debug.Stack())
		}
	}()

	if r.Dispatcher == nil {
		return Unknown, fmt.Errorf("no dispatcher configured")
	}

	limit := r.Options.MaxStdinBytes
	if limit <= 0 {
		limit = DefaultMaxStdinBytes
	}
	raw := ""
	if stdin != nil {
		raw, err = hookinput.ReadLimited(stdin, limit)
		if err != nil {
			return Unknown, fmt.Errorf("read stdin: %w", err)
		}
	}

	in := hookinput.Parse(raw, hookinput.Options{
		MaxLength: r.Options.MaxFieldLength,
		DumpDir:   r.Options.DumpDir,
	})

	name := in.Event
	if len(args) > 0 && args[0] != "" {
		name = args[0]
	}
	ev = ParseEventType(name)

	if err := ctx.Err(); err != nil {
		return ev, err
	}
	return ev, r.Dispatcher.Dispatch(ev, in, w)
}

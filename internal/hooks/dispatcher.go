// Package hooks is the hook dispatcher: one handler per host lifecycle
// event, each reading session state fresh from disk, deciding what to print
// and writing state back only on real transitions.
//
// Handlers return errors normally. Only Runner converts failures into the
// silent success the host expects.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"agentkit/internal/config"
	"agentkit/internal/logging"
	"agentkit/internal/persona"
	"agentkit/internal/session"
	"agentkit/internal/telemetry"
)

// StateStore is the file store the handlers read and write through.
type StateStore interface {
	Load(path string) json.RawMessage
	Write(path string, content any) bool
}

// SectionComposer produces the persona prompt sections.
type SectionComposer interface {
	Compose(p persona.Persona) (string, error)
}

// Paths locates the state files.
type Paths struct {
	Runtime string
	Boulder string
	Ralph   string
}

// Limits bounds the Stop continuation policy.
type Limits struct {
	StopMaxBlocks int
	StopCooldown  time.Duration
}

// DefaultLimits matches config.DefaultLimits.
func DefaultLimits() Limits {
	return Limits{StopMaxBlocks: 8, StopCooldown: 3 * time.Second}
}

// Deps are the Dispatcher's collaborators. Store and Paths are required.
type Deps struct {
	Paths     Paths
	Limits    Limits
	Store     StateStore
	Sections  SectionComposer
	Telemetry telemetry.Emitter
	Clock     func() time.Time
}

// DepsFromConfig fills Paths and Limits from cfg.
func DepsFromConfig(cfg *config.Config) Deps {
	return Deps{
		Paths: Paths{
			Runtime: cfg.RuntimePath(),
			Boulder: cfg.BoulderPath(),
			Ralph:   cfg.RalphPath(),
		},
		Limits: Limits{
			StopMaxBlocks: cfg.Limits.StopMaxBlocks,
			StopCooldown:  cfg.Limits.GetStopCooldown(),
		},
	}
}

// Dispatcher routes events to handlers.
type Dispatcher struct {
	paths     Paths
	limits    Limits
	store     StateStore
	sections  SectionComposer
	telemetry telemetry.Emitter
	now       func() time.Time
	log       *logging.Logger
}

// NewDispatcher creates a Dispatcher. Missing optional collaborators are
// replaced with no-op versions.
func NewDispatcher(d Deps) (*Dispatcher, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("hooks: state store is required")
	}
	if d.Paths.Runtime == "" {
		return nil, fmt.Errorf("hooks: runtime state path is required")
	}
	if d.Limits.StopMaxBlocks <= 0 {
		d.Limits.StopMaxBlocks = DefaultLimits().StopMaxBlocks
	}
	if d.Sections == nil {
		d.Sections = noSections{}
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Nop{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Dispatcher{
		paths:     d.Paths,
		limits:    d.Limits,
		store:     d.Store,
		sections:  d.Sections,
		telemetry: d.Telemetry,
		now:       d.Clock,
		log:       logging.Get(logging.CategoryHook),
	}, nil
}

// Dispatch runs the handler for ev, writing its output to w. Unknown events
// do nothing.
func (d *Dispatcher) Dispatch(ev EventType, in Input, w io.Writer) error {
	d.log.Debug("event=%s session=%q", ev, in.SessionID)
	switch ev {
	case SessionStart:
		return d.handleSessionStart(in, w)
	case UserPromptSubmit:
		return d.handleUserPromptSubmit(in, w)
	case PreToolUse:
		return d.handlePreToolUse(in, w)
	case Stop:
		return d.handleStop(in, w)
	}
	d.log.Debug("unknown event, no handler")
	return nil
}

// loadRuntime reads the session runtime document fresh from disk.
func (d *Dispatcher) loadRuntime() *session.Runtime {
	return session.Decode(d.store.Load(d.paths.Runtime))
}

// saveRuntime writes rt back. A failed write is logged by the store and
// otherwise ignored: the handler proceeds on the state it already has.
func (d *Dispatcher) saveRuntime(rt *session.Runtime) {
	if !d.store.Write(d.paths.Runtime, rt) {
		d.log.Warn("runtime state write skipped")
	}
}

// emit sends the handler event plus its latency score.
func (d *Dispatcher) emit(in Input, start time.Time, name string, metadata map[string]any) {
	end := d.now()
	traceID := telemetry.TraceID(in.SessionID, end)
	d.telemetry.Event(traceID, name, metadata)
	d.telemetry.Score(traceID, "hook.latency_ms", float64(end.Sub(start).Milliseconds()))
}

// composeSections renders the sections for p.
func (d *Dispatcher) composeSections(p persona.Persona) (string, error) {
	text, err := d.sections.Compose(p)
	if err != nil {
		return "", fmt.Errorf("compose sections for %s: %w", p, err)
	}
	return text, nil
}

type noSections struct{}

func (noSections) Compose(persona.Persona) (string, error) { return "", nil }

// blockResponse is the only JSON the PreToolUse and Stop handlers print.
type blockResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func writeBlock(w io.Writer, reason string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(blockResponse{Decision: "block", Reason: reason}); err != nil {
		return fmt.Errorf("write block decision: %w", err)
	}
	return nil
}

func writeText(w io.Writer, s string) error {
	if s == "" {
		return nil
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

package hooks

import (
	"io"

	"agentkit/internal/boulder"
	"agentkit/internal/ralph"
	"agentkit/internal/session"
)

// MsgContinuation is the reason printed when Stop is blocked.
const MsgContinuation = "Continuation active: finish work or use /claude-agent-kit:stop-continuation"

// Reasons a Stop is allowed, reported in telemetry.
const (
	ReasonContinuationDisabled = "continuation_disabled"
	ReasonCooldown             = "cooldown"
	ReasonMaxBlocks            = "max_blocks_auto_disabled"
)

// stopOutcome collects what the Stop handler decided for telemetry.
type stopOutcome struct {
	decision   string
	reason     string
	stopBlocks int64
	ulw        bool
	boulder    bool
	ralph      ralph.Status
}

func (o stopOutcome) metadata() map[string]any {
	m := map[string]any{
		"decision":       o.decision,
		"stop_blocks":    o.stopBlocks,
		"ulw_active":     o.ulw,
		"boulder_active": o.boulder,
		"ralph_active":   o.ralph.Active,
	}
	if o.ralph.Active {
		m["ralph_iteration"] = o.ralph.Iteration
	}
	if o.reason != "" {
		m["reason"] = o.reason
	}
	return m
}

// handleStop decides whether the host may stop. It blocks while any
// continuation mechanism is active, throttled by a cooldown and bounded by a
// ceiling after which continuation disables itself.
func (d *Dispatcher) handleStop(in Input, w io.Writer) error {
	start := d.now()
	out, err := d.decideStop(in, w)
	if err != nil {
		return err
	}
	d.emit(in, start, "hook.stop", out.metadata())
	return nil
}

func (d *Dispatcher) decideStop(in Input, w io.Writer) (stopOutcome, error) {
	key := session.Key(in.SessionID)
	rt := d.loadRuntime()
	rec := rt.Get(key)

	out := stopOutcome{decision: "allow", stopBlocks: rec.ULW.StopBlocks}

	if rec.StopContinuation.Disabled {
		out.reason = ReasonContinuationDisabled
		return out, nil
	}

	out.ralph = ralph.Check(d.store, d.paths.Ralph, in.AssistantText, in.Prompt)
	out.boulder = boulder.Read(d.store, d.paths.Boulder).IsActive()
	out.ulw = rec.ULW.Enabled
	if !out.ralph.Active && !out.boulder && !out.ulw {
		return out, nil
	}

	now := d.now()
	if rec.InCooldown(now, d.limits.StopCooldown) {
		out.reason = ReasonCooldown
		return out, nil
	}

	if rec.ULW.StopBlocks >= int64(d.limits.StopMaxBlocks) {
		d.log.Warn("stop blocks %d reached ceiling, disabling continuation", rec.ULW.StopBlocks)
		rt.Ensure(key).DisableContinuation(session.AutoDisableReason, now)
		d.saveRuntime(rt)
		out.reason = ReasonMaxBlocks
		return out, nil
	}

	rt.Ensure(key).RecordStopBlock(now)
	d.saveRuntime(rt)
	if out.ralph.Active && !ralph.Increment(d.store, d.paths.Ralph) {
		d.log.Warn("ralph iteration not advanced")
	}

	out.decision = "block"
	if err := writeBlock(w, MsgContinuation); err != nil {
		return out, err
	}
	return out, nil
}

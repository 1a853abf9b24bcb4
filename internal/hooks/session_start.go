package hooks

import (
	"io"

	"agentkit/internal/boulder"
	"agentkit/internal/session"
)

// handleSessionStart prints the persona sections and, for an active
// boulder, the resume block. It never writes state.
func (d *Dispatcher) handleSessionStart(in Input, w io.Writer) error {
	start := d.now()

	p := d.loadRuntime().Get(session.Key(in.SessionID)).Persona()

	text, err := d.composeSections(p)
	if err != nil {
		return err
	}
	if err := writeText(w, text); err != nil {
		return err
	}

	b := boulder.Read(d.store, d.paths.Boulder)
	active := b.IsActive()
	hasResume := false
	if active {
		if err := writeText(w, "\n"); err != nil {
			return err
		}
		if resume := b.ResumeBlock(); resume != "" {
			if err := writeText(w, resume+"\n"); err != nil {
				return err
			}
			hasResume = true
		}
	}

	d.emit(in, start, "hook.session_start", map[string]any{
		"persona":        string(p),
		"boulder_active": active,
		"has_resume":     hasResume,
	})
	return nil
}

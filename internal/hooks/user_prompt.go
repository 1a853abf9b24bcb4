package hooks

import (
	"io"

	"agentkit/internal/detect"
	"agentkit/internal/session"
)

// ULWBanner is printed when a prompt turns on ultrawork mode.
const ULWBanner = "Ultrawork mode is active.\n" +
	"\n" +
	"Execution contract:\n" +
	"- Continue until requested work is complete.\n" +
	"- Use parallel exploration for unknown areas.\n" +
	"- Run verification gates before completion (tests, typecheck, build).\n" +
	"- Only stop when done or when /claude-agent-kit:stop-continuation is used.\n"

// handleUserPromptSubmit prints sections for the active persona, or for the
// persona the prompt switches to, and turns on ultrawork when asked.
func (d *Dispatcher) handleUserPromptSubmit(in Input, w io.Writer) error {
	start := d.now()
	key := session.Key(in.SessionID)

	rt := d.loadRuntime()
	p := rt.Get(key).Persona()

	// The persistent switch is done by the persona skill itself. Here the
	// switch only picks the sections for this prompt.
	if target, ok := detect.PersonaSwitch(in.Prompt); ok {
		d.log.Debug("persona_switch_detected target=%s", target)
		p = target
	}

	text, err := d.composeSections(p)
	if err != nil {
		return err
	}
	if err := writeText(w, text); err != nil {
		return err
	}

	triggered := detect.ULW(in.Prompt)
	if triggered {
		rt.Ensure(key).EnableULW(d.now())
		d.saveRuntime(rt)
		if err := writeText(w, "\n"+ULWBanner); err != nil {
			return err
		}
	}

	d.emit(in, start, "hook.user_prompt_submit", map[string]any{
		"persona":       string(p),
		"ulw_triggered": triggered,
	})
	return nil
}

// Package detect holds the prompt trigger matchers.
package detect

import (
	"regexp"
	"strings"

	"agentkit/internal/persona"
)

var (
	ulwRe           = regexp.MustCompile(`(?i)\b(ulw|ultrawork)\b`)
	personaSwitchRe = regexp.MustCompile(`(?i)/?claude-agent-kit:(sisyphus|hephaestus|atlas|prometheus)`)
)

// ULW reports whether text asks for ultrawork mode. Only whole words match,
// so "bulwark" and "ultraworking" do not.
func ULW(text string) bool {
	if text == "" {
		return false
	}
	return ulwRe.MatchString(text)
}

// PersonaSwitch returns the persona named by a claude-agent-kit persona
// invocation in text, if any.
func PersonaSwitch(text string) (persona.Persona, bool) {
	if text == "" {
		return "", false
	}
	m := personaSwitchRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return persona.Persona(strings.ToLower(m[1])), true
}

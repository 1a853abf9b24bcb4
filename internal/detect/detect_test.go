package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agentkit/internal/persona"
)

func TestULW(t *testing.T) {
	positive := []string{"ULW", "ulw", "ultrawork", "this needs ULW now", "UltraWork: fix it", "(ulw)", "do it, ulw."}
	for _, text := range positive {
		assert.True(t, ULW(text), text)
	}

	negative := []string{"", "bulwark", "ultraworking", "ulwx", "xulw", "ultra work", "ultraworks"}
	for _, text := range negative {
		assert.False(t, ULW(text), text)
	}
}

func TestPersonaSwitch(t *testing.T) {
	tests := []struct {
		text string
		want persona.Persona
		ok   bool
	}{
		{"/claude-agent-kit:atlas", persona.Atlas, true},
		{"claude-agent-kit:sisyphus", persona.Sisyphus, true},
		{"please /CLAUDE-AGENT-KIT:Prometheus plan this", persona.Prometheus, true},
		{"use claude-agent-kit:hephaestus then", persona.Hephaestus, true},
		{"/claude-agent-kit:plan", "", false},
		{"talk about atlas", "", false},
		{"/atlas", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := PersonaSwitch(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

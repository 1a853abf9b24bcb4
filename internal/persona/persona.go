// Package persona defines the closed set of agent personas.
package persona

import "strings"

// Persona is one of the four agent roles.
type Persona string

const (
	Sisyphus   Persona = "sisyphus"   // Default executor
	Hephaestus Persona = "hephaestus" // Deep implementation
	Prometheus Persona = "prometheus" // Planning only
	Atlas      Persona = "atlas"      // Plan execution orchestrator
)

// Default is used whenever a stored or supplied persona is invalid.
const Default = Sisyphus

// All lists the personas in a stable order.
func All() []Persona {
	return []Persona{Sisyphus, Hephaestus, Prometheus, Atlas}
}

// Parse maps a name onto a Persona, case-insensitively.
func Parse(name string) (Persona, bool) {
	p := Persona(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case Sisyphus, Hephaestus, Prometheus, Atlas:
		return p, true
	}
	return "", false
}

// Normalize returns the persona for name, falling back to Default.
func Normalize(name string) Persona {
	if p, ok := Parse(name); ok {
		return p
	}
	return Default
}

// Valid reports whether p is a member of the closed set.
func (p Persona) Valid() bool {
	switch p {
	case Sisyphus, Hephaestus, Prometheus, Atlas:
		return true
	}
	return false
}

func (p Persona) String() string { return string(p) }

// Package sections generates the persona-specific prompt text injected at
// session start and prompt submit. Content comes from agent and skill
// markdown frontmatter under the plugin root.
package sections

import (
	"fmt"
	"path/filepath"
	"strings"

	"agentkit/internal/logging"
	"agentkit/internal/persona"
)

// personaSections lists the sections each persona receives, in order.
// Prometheus gets none: its prompt is fully static.
var personaSections = map[persona.Persona][]Section{
	persona.Sisyphus:   fullSet,
	persona.Hephaestus: fullSet,
	persona.Atlas:      {ToolSelection, SkillsGuide, DelegationTable},
	persona.Prometheus: nil,
}

var fullSet = []Section{
	KeyTriggers,
	ToolSelection,
	ExploreGuide,
	LibrarianGuide,
	SkillsGuide,
	DelegationTable,
	OracleGuide,
	HardBlocks,
	AntiPatterns,
}

// SectionsFor returns the section order for p.
func SectionsFor(p persona.Persona) []Section {
	return personaSections[p]
}

// Composer builds prompt sections from a plugin root.
type Composer struct {
	AgentsDir string
	SkillsDir string
}

// NewComposer returns a Composer reading <root>/agents and <root>/skills.
func NewComposer(root string) *Composer {
	if root == "" {
		return &Composer{}
	}
	return &Composer{
		AgentsDir: filepath.Join(root, "agents"),
		SkillsDir: filepath.Join(root, "skills"),
	}
}

// Catalog discovers agents and skills.
func (c *Composer) Catalog() (Catalog, error) {
	agents, err := DiscoverAgents(c.AgentsDir)
	if err != nil {
		return Catalog{}, fmt.Errorf("discover agents: %w", err)
	}
	skills, err := DiscoverSkills(c.SkillsDir)
	if err != nil {
		return Catalog{}, fmt.Errorf("discover skills: %w", err)
	}
	return Catalog{Agents: agents, Skills: skills}, nil
}

// Compose renders every section for p, joined by blank lines with a
// trailing newline. The result is empty when no section applies.
func (c *Composer) Compose(p persona.Persona) (string, error) {
	order := SectionsFor(p)
	if len(order) == 0 {
		return "", nil
	}
	timer := logging.StartTimer(logging.CategorySections, "compose "+string(p))
	defer timer.Stop()

	catalog, err := c.Catalog()
	if err != nil {
		return "", err
	}
	logging.Sections("persona=%s agents=%d skills=%d", p, len(catalog.Agents), len(catalog.Skills))
	return catalog.Compose(order), nil
}

// Compose renders the given sections in order.
func (c Catalog) Compose(order []Section) string {
	var parts []string
	for _, s := range order {
		if text := c.Build(s); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

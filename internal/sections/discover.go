package sections

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	agentExt      = ".md"
	skillFileName = "SKILL.md"
	personaCat    = "persona"
)

// Agent is one agents/*.md definition.
type Agent struct {
	Name     string
	Filename string
	Meta     Meta
}

// IsPersona reports whether the agent is a top-level persona rather than a
// delegatable subagent.
func (a Agent) IsPersona() bool { return a.Meta.Get("category") == personaCat }

// Skill is one skills/<dir>/SKILL.md definition.
type Skill struct {
	Name string
	Dir  string
	Meta Meta
}

// DiscoverAgents scans dir for *.md files with a name field, sorted by file
// name. A missing directory yields no agents.
func DiscoverAgents(dir string) ([]Agent, error) {
	names, err := sortedEntries(dir)
	if err != nil || names == nil {
		return nil, err
	}
	var agents []Agent
	for _, name := range names {
		if !strings.HasSuffix(name, agentExt) {
			continue
		}
		path := filepath.Join(dir, name)
		if !isFile(path) {
			continue
		}
		meta := ReadFrontmatter(path)
		if meta.Get("name") == "" {
			continue
		}
		agents = append(agents, Agent{Name: meta.Get("name"), Filename: name, Meta: meta})
	}
	return agents, nil
}

// DiscoverSkills scans dir/*/SKILL.md for skills with a name field, sorted
// by directory name. A missing directory yields no skills.
func DiscoverSkills(dir string) ([]Skill, error) {
	names, err := sortedEntries(dir)
	if err != nil || names == nil {
		return nil, err
	}
	var skills []Skill
	for _, name := range names {
		path := filepath.Join(dir, name, skillFileName)
		if !isFile(path) {
			continue
		}
		meta := ReadFrontmatter(path)
		if meta.Get("name") == "" {
			continue
		}
		skills = append(skills, Skill{Name: meta.Get("name"), Dir: name, Meta: meta})
	}
	return skills, nil
}

// Subagents drops persona agents.
func Subagents(agents []Agent) []Agent {
	var out []Agent
	for _, a := range agents {
		if !a.IsPersona() {
			out = append(out, a)
		}
	}
	return out
}

// FindAgent returns the first agent called name.
func FindAgent(agents []Agent, name string) (Agent, bool) {
	for _, a := range agents {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

func sortedEntries(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

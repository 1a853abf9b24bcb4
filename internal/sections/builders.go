package sections

import (
	"fmt"
	"sort"
	"strings"
)

// Section identifies one generated prompt section.
type Section string

const (
	KeyTriggers     Section = "key_triggers"
	ToolSelection   Section = "tool_selection"
	ExploreGuide    Section = "explore_guide"
	LibrarianGuide  Section = "librarian_guide"
	OracleGuide     Section = "oracle_guide"
	DelegationTable Section = "delegation_table"
	SkillsGuide     Section = "skills_guide"
	HardBlocks      Section = "hard_blocks"
	AntiPatterns    Section = "anti_patterns"
)

var costOrder = map[string]int{"free": 0, "cheap": 1, "moderate": 2, "expensive": 3}

// Catalog is the discovered plugin content the builders read from.
type Catalog struct {
	Agents []Agent
	Skills []Skill
}

// Build renders one section. An empty string means the section does not
// apply to this catalog.
func (c Catalog) Build(s Section) string {
	switch s {
	case KeyTriggers:
		return c.keyTriggers()
	case ToolSelection:
		return c.toolSelection()
	case ExploreGuide:
		return c.exploreGuide()
	case LibrarianGuide:
		return c.librarianGuide()
	case OracleGuide:
		return c.oracleGuide()
	case DelegationTable:
		return c.delegationTable()
	case SkillsGuide:
		return c.skillsGuide()
	case HardBlocks:
		return c.hardBlocks()
	case AntiPatterns:
		return c.antiPatterns()
	}
	return ""
}

func (c Catalog) hasOracle() bool {
	_, ok := FindAgent(c.Agents, "oracle")
	return ok
}

func (c Catalog) keyTriggers() string {
	var triggers []string
	for _, a := range Subagents(c.Agents) {
		if kt := a.Meta.Get("keyTrigger"); kt != "" {
			triggers = append(triggers, fmt.Sprintf("- %s -> delegate to %s", kt, a.Name))
		}
	}
	if len(triggers) == 0 {
		return ""
	}
	triggers = append(triggers, `- "look into X" + "create PR" -> investigate AND implement (never just research)`)

	lines := []string{"## Key Triggers", "", "When you detect these patterns, route immediately:"}
	return strings.Join(append(lines, triggers...), "\n")
}

func (c Catalog) toolSelection() string {
	lines := []string{
		"## Tool Selection (Cost-Aware)",
		"",
		"| Tool / Agent | Cost | When to Use |",
		"|---|---|---|",
		"| Grep, Glob, Read | FREE | Direct file/content search, always try first |",
		"| Bash | FREE | System commands, git operations, build/test |",
	}

	subs := Subagents(c.Agents)
	sort.SliceStable(subs, func(i, j int) bool {
		return costRank(subs[i]) < costRank(subs[j])
	})
	for _, a := range subs {
		tier := strings.ToUpper(a.Meta.GetOr("costTier", "unknown"))
		lines = append(lines, fmt.Sprintf("| %s | %s | %s |", a.Name, tier, firstSentence(a.Meta.Get("description"))))
	}

	lines = append(lines,
		"",
		"**Default flow**: Direct tools (FREE) -> cheap agents -> expensive agents.",
		"Exhaust cheaper options before escalating.",
	)
	return strings.Join(lines, "\n")
}

func costRank(a Agent) int {
	if rank, ok := costOrder[a.Meta.GetOr("costTier", "expensive")]; ok {
		return rank
	}
	return costOrder["expensive"]
}

func (c Catalog) exploreGuide() string {
	explore, ok := FindAgent(c.Agents, "explore")
	if !ok {
		return ""
	}
	lines := []string{"## Explore Agent Guide", ""}
	lines = appendList(lines, "**Use Direct Tools (Grep/Glob) when:**", explore.Meta.Get("avoidWhen"))
	lines = appendList(lines, "**Use Explore Agent when:**", explore.Meta.Get("useWhen"))
	lines = append(lines,
		"Fire multiple explore agents in parallel for broad searches.",
		"Always run explore in the background.",
	)
	return strings.Join(lines, "\n")
}

func (c Catalog) librarianGuide() string {
	librarian, ok := FindAgent(c.Agents, "librarian")
	if !ok {
		return ""
	}
	lines := []string{
		"## Librarian Agent Guide",
		"",
		"**Librarian = External Research**. For open-source repos, official docs, GitHub issues/PRs.",
		"",
	}
	lines = appendList(lines, "**Fire Librarian when:**", librarian.Meta.Get("useWhen"))
	lines = append(lines,
		"Always run librarian in the background.",
		"Collect results before completing the task.",
	)
	return strings.Join(lines, "\n")
}

func (c Catalog) oracleGuide() string {
	oracle, ok := FindAgent(c.Agents, "oracle")
	if !ok {
		return ""
	}
	lines := []string{"<Oracle_Usage>", "## Oracle Consultation", ""}
	lines = appendList(lines, "**Consult Oracle when:**", oracle.Meta.Get("useWhen"))
	lines = appendList(lines, "**Do NOT consult Oracle for:**", oracle.Meta.Get("avoidWhen"))
	lines = append(lines,
		"**Usage pattern:**",
		`1. Announce: "Consulting Oracle on [topic]"`,
		"2. Invoke Oracle with focused question",
		"3. Wait for and incorporate response before proceeding",
		"",
		"**Background policy:** Always collect Oracle results before final answer.",
		"NEVER cancel an Oracle consultation.",
		"</Oracle_Usage>",
	)
	return strings.Join(lines, "\n")
}

func (c Catalog) delegationTable() string {
	var rows []string
	for _, a := range Subagents(c.Agents) {
		for _, domain := range splitList(a.Meta.Get("delegationDomains")) {
			rows = append(rows, fmt.Sprintf("| %s | %s |", domain, a.Name))
		}
	}
	if len(rows) == 0 {
		return ""
	}
	lines := []string{"## Delegation Routing", "", "| Domain | Agent |", "|---|---|"}
	return strings.Join(append(lines, rows...), "\n")
}

func (c Catalog) skillsGuide() string {
	if len(c.Skills) == 0 {
		return ""
	}
	lines := []string{
		"## Skills Guide",
		"",
		"Available skills (invoke with `/claude-agent-kit:<name>`):",
		"",
		"| Skill | Description |",
		"|---|---|",
	}
	for _, s := range c.Skills {
		lines = append(lines, fmt.Sprintf("| %s | %s |", s.Name, firstSentence(s.Meta.Get("description"))))
	}
	lines = append(lines,
		"",
		"**Evaluation protocol:**",
		"1. For every task, check: does a skill's domain overlap with this work?",
		"2. If yes, use the skill; it encodes best practices for that domain.",
		"3. Skills that spawn subagents (context: fork) run in isolated sessions.",
	)
	return strings.Join(lines, "\n")
}

func (c Catalog) hardBlocks() string {
	lines := []string{
		"## Hard Blocks (NEVER violate)",
		"",
		"- NEVER suppress type errors or linter warnings to make code compile",
		"- NEVER commit changes without explicit user request",
		"- NEVER speculate about code you haven't read; read it first",
		"- NEVER leave the codebase in a broken state (build fails, tests fail)",
		"- NEVER deliver a final answer without collecting pending background results",
	}
	if c.hasOracle() {
		lines = append(lines,
			"- NEVER cancel an Oracle consultation; always wait for results",
			"- NEVER deliver final answer before collecting Oracle results",
		)
	}
	return strings.Join(lines, "\n")
}

func (c Catalog) antiPatterns() string {
	lines := []string{
		"## Anti-Patterns (Blocking)",
		"",
		"If you catch yourself doing any of these, STOP and correct:",
		"",
		"- Type safety violations (any-casts, ts-ignore, suppressing errors)",
		"- Empty catch blocks that swallow errors silently",
		"- Deleting or skipping failing tests instead of fixing them",
		"- Firing expensive agents for tasks solvable with direct tools",
		"- Shotgun debugging (random changes hoping something works)",
		"- Bulk-cancelling background tasks instead of collecting results individually",
	}
	if c.hasOracle() {
		lines = append(lines, "- Skipping Oracle results when they're available")
	}
	return strings.Join(lines, "\n")
}

// appendList adds a bold heading, one bullet per ";"-separated item and a
// blank line. Nothing is added when the list is empty.
func appendList(lines []string, heading, list string) []string {
	if list == "" {
		return lines
	}
	lines = append(lines, heading)
	for _, item := range splitList(list) {
		lines = append(lines, "- "+item)
	}
	return append(lines, "")
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstSentence(desc string) string {
	return strings.SplitN(desc, ".", 2)[0]
}

package sections

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

var fieldLineRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)\s*:\s*(.*)$`)

// Meta holds frontmatter fields as text.
type Meta map[string]string

// Get returns the field value, or empty.
func (m Meta) Get(key string) string { return m[key] }

// GetOr returns the field value, or def when unset.
func (m Meta) GetOr(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// ReadFrontmatter reads path and parses its frontmatter. An unreadable file
// yields empty Meta.
func ReadFrontmatter(path string) Meta {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}
	}
	return ParseFrontmatter(string(data))
}

// ParseFrontmatter extracts the block between the first pair of "---"
// lines. The block is decoded as YAML; when that fails (agent metadata is
// often hand-written and not strictly valid YAML) each "key: value" line is
// taken literally.
func ParseFrontmatter(content string) Meta {
	block, ok := splitFrontmatter(content)
	if !ok {
		return Meta{}
	}
	if m, err := parseYAML(block); err == nil {
		return m
	}
	return parseLines(block)
}

// splitFrontmatter returns the lines inside the first fenced block. An
// unterminated block runs to the end of the file.
func splitFrontmatter(content string) ([]string, bool) {
	var block []string
	inside := false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == fence {
			if inside {
				return block, true
			}
			inside = true
			continue
		}
		if inside {
			block = append(block, line)
		}
	}
	return block, inside
}

func parseYAML(lines []string) (Meta, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &raw); err != nil {
		return nil, err
	}
	m := Meta{}
	for k, v := range raw {
		if s, ok := scalarText(v); ok {
			m[k] = s
		}
	}
	return m, nil
}

// scalarText flattens a YAML value. Lists join with "; " so list-valued
// fields read like the semicolon-separated form.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.TrimSpace(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := scalarText(item); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; "), true
	case map[string]any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

func parseLines(lines []string) Meta {
	m := Meta{}
	for _, line := range lines {
		match := fieldLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		m[strings.TrimSpace(match[1])] = strings.TrimSpace(match[2])
	}
	return m
}

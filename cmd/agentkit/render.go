package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Output styles for the human-facing commands. Hook output never goes
// through these.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle  = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// renderTable lays rows out in padded columns under a bold header.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			pad := 0
			if i < len(widths) {
				pad = widths[i] - lipgloss.Width(cell)
			}
			text := cell + strings.Repeat(" ", max(pad, 0))
			if style != nil {
				text = style.Render(text)
			}
			parts[i] = text
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := []string{line(header, &headStyle)}
	for _, row := range rows {
		lines = append(lines, line(row, nil))
	}
	return strings.Join(lines, "\n") + "\n"
}

// keyValues renders aligned "label  value" lines.
func keyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(labelStyle.Render(p[0] + strings.Repeat(" ", width-lipgloss.Width(p[0]))))
		b.WriteString("  ")
		b.WriteString(p[1])
		b.WriteByte('\n')
	}
	return b.String()
}

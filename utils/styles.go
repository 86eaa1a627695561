package utils

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	TextColor     = lipgloss.Color("#CCCCCC") // Light gray
	MutedColor    = lipgloss.Color("#888888") // Medium gray
	BorderColor   = lipgloss.Color("#666666") // Dark gray
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TextStyle     = lipgloss.NewStyle().Foreground(TextColor)
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(CriticalColor).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(CriticalColor)
)

// Status of one class in a transform report
type Status string

const (
	StatusRewritten Status = "rewritten"
	StatusMember    Status = "member"
	StatusSpecial   Status = "special"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

func GetStatusStyle(status Status) lipgloss.Style {
	switch status {
	case StatusFailed:
		return CriticalStyle
	case StatusSpecial:
		return WarningStyle
	case StatusMember, StatusRewritten:
		return GoodStyle
	default:
		return MutedStyle
	}
}

func GetStatusIcon(status Status) string {
	switch status {
	case StatusFailed:
		return "❌"
	case StatusSpecial:
		return "🔧"
	case StatusMember:
		return "🧩"
	case StatusRewritten:
		return "✏️"
	default:
		return "·"
	}
}

func CreateStatusIndicator(status Status, text string) string {
	return GetStatusStyle(status).Render(fmt.Sprintf("%s %s", GetStatusIcon(status), text))
}

// Table-like formatting for aligned data
func FormatKeyValue(key, value string, keyWidth int) string {
	keyStyled := InfoStyle.Width(keyWidth).Render(key + ":")
	valueStyled := TextStyle.Render(value)
	return lipgloss.JoinHorizontal(lipgloss.Left, keyStyled, " ", valueStyled)
}

// RenderList renders items one per line below a title, eliding past limit
func RenderList(title string, items []string, limit int) string {
	if len(items) == 0 {
		return ""
	}

	lines := []string{TitleStyle.Render(fmt.Sprintf("%s (%d)", title, len(items)))}
	for i, item := range items {
		if limit > 0 && i == limit {
			lines = append(lines, MutedStyle.Render(fmt.Sprintf("  ... %d more", len(items)-limit)))
			break
		}
		lines = append(lines, "  "+TextStyle.Render(item))
	}
	return strings.Join(lines, "\n")
}

// TruncateString truncates a string to fit within maxWidth
func TruncateString(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return strings.Repeat(".", maxWidth)
	}
	return s[:maxWidth-3] + "..."
}

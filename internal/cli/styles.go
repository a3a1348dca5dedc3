// Package cli renders mining results, rule lists and stored datasets for the
// terminal.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	accentColor  = lipgloss.Color("#5FAFFF")
	strongColor  = lipgloss.Color("#4ECDC4")
	warnColor    = lipgloss.Color("#FFE66D")
	weakColor    = lipgloss.Color("#FF6B6B")
	noteColor    = lipgloss.Color("#95E1D3")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333")
	headingColor = lipgloss.Color("86")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	successStyle = lipgloss.NewStyle().Foreground(strongColor)
	warningStyle = lipgloss.NewStyle().Foreground(warnColor)
	infoStyle    = lipgloss.NewStyle().Foreground(noteColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)

	// HeaderStyle renders table column headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(headingColor)

	// DefaultRuleStyle marks the fallback row of a rule list.
	DefaultRuleStyle = lipgloss.NewStyle().Italic(true).Foreground(mutedColor)
)

// Confidence bands used to shade rule rows.
const (
	StrongConfidence = 0.9
	WeakConfidence   = 0.6
)

// Icons.
const (
	SuccessIcon = "✓"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	RuleIcon    = "⛏️"
	ChartIcon   = "📊"
	FolderIcon  = "🗄️"
)

func FormatSuccess(message string) string {
	return successStyle.Render(SuccessIcon + " " + message)
}

func FormatWarning(message string) string {
	return warningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return infoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle renders a section title prefixed with the rule icon.
func FormatTitle(title string) string {
	return titleStyle.MarginBottom(1).Render(RuleIcon + "  " + title)
}

// FormatConfidence renders a confidence with three decimals, shaded by band.
func FormatConfidence(confidence float64) string {
	text := fmt.Sprintf("%.3f", confidence)
	switch {
	case confidence >= StrongConfidence:
		return successStyle.Render(text)
	case confidence < WeakConfidence:
		return lipgloss.NewStyle().Foreground(weakColor).Render(text)
	default:
		return warningStyle.Render(text)
	}
}

// RenderBox renders content under a title inside a rounded border.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}

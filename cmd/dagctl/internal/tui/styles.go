// Package tui holds dagctl's shared lipgloss styles and the read-only
// position view: a small semantic color palette reused across every
// command instead of ad hoc ANSI codes.
package tui

import "github.com/charmbracelet/lipgloss"

const (
	ColorBrand   = "42"
	ColorPrimary = "255"
	ColorMuted   = "240"
	ColorSuccess = "42"
	ColorError   = "203"
	ColorWarning = "214"
	ColorAccent  = "45"
)

var (
	BrandStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrand))
	PrimaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimary))
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	AccentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

// StatusIcon returns a glyph for a success/failure boolean.
func StatusIcon(success bool) string {
	if success {
		return SuccessStyle.Render("✓")
	}
	return ErrorStyle.Render("✗")
}

// Bullet returns a muted bullet point.
func Bullet() string { return MutedStyle.Render("·") }

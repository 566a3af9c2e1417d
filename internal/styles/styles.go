// Package styles holds the colour palette and text styles used for CLI
// status lines and tables. Colours degrade to plain text when the output is
// not a terminal.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Gray  = lipgloss.Color("#888888")
	Muted = lipgloss.Color("#555555")
	Blue  = lipgloss.Color("#5FAFFF")

	Green  = lipgloss.Color("#5FD787")
	Yellow = lipgloss.Color("#FFD787")
	Red    = lipgloss.Color("#FF8787")
)

var (
	// Header is used for table headings.
	Header = lipgloss.NewStyle().
		Foreground(Gray).
		Bold(true)

	// MutedText is for hints and less important info.
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// AccentText highlights names such as domains in messages.
	AccentText = lipgloss.NewStyle().
			Foreground(Blue)

	ErrorText = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	WarningText = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// Success, Warning and Error render a one-line status message.
func Success(msg string) string { return SuccessText.Render(msg) }

func Warning(msg string) string { return WarningText.Render(msg) }

func Error(msg string) string { return ErrorText.Render(msg) }

// DomainStateStyle returns the style for a domain state reported by the
// portal, e.g. "Active" or "Expired".
func DomainStateStyle(state string) lipgloss.Style {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "active":
		return lipgloss.NewStyle().Foreground(Green)
	case "pending", "grace":
		return lipgloss.NewStyle().Foreground(Yellow)
	case "expired", "cancelled", "fraud":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// ExpiryStyle colours a days-until-expiry count: red once expired, yellow
// inside the renewal window.
func ExpiryStyle(days, renewWindow int) lipgloss.Style {
	switch {
	case days < 0:
		return lipgloss.NewStyle().Foreground(Red).Bold(true)
	case days <= renewWindow:
		return lipgloss.NewStyle().Foreground(Yellow)
	default:
		return lipgloss.NewStyle()
	}
}

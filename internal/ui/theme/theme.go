// Package theme holds the lipgloss styles used by command output.
package theme

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/rehearse/internal/mastery"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Warning = lipgloss.Color("#EAB308") // Amber
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(18)

	Value = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	BarFilled = lipgloss.NewStyle().
			Foreground(Primary)

	BarEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// Row renders a "label  value" line.
func Row(label, value string) string {
	return Label.Render(label) + Value.Render(value)
}

// Bar renders a horizontal bar of width cells filled to ratio.
func Bar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	ratio = min(max(ratio, 0), 1)
	filled := int(ratio*float64(width) + 0.5)
	return BarFilled.Render(strings.Repeat("█", filled)) +
		BarEmpty.Render(strings.Repeat("░", width-filled))
}

// Score colors a 0-100 readiness score.
func Score(score int) lipgloss.Style {
	switch {
	case score >= 75:
		return Correct
	case score >= 40:
		return lipgloss.NewStyle().Foreground(Warning).Bold(true)
	default:
		return Incorrect
	}
}

// Level colors a mastery level.
func Level(l mastery.Level) lipgloss.Style {
	switch l {
	case mastery.LevelMastered:
		return Correct
	case mastery.LevelReviewing:
		return lipgloss.NewStyle().Foreground(Primary)
	case mastery.LevelLearning:
		return lipgloss.NewStyle().Foreground(Accent)
	default:
		return Hint
	}
}

// Rating colors a review rating by pass or fail.
func Rating(r spacedrep.Rating) lipgloss.Style {
	if r.Passed() {
		return Correct
	}
	return Incorrect
}

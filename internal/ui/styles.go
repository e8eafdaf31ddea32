package ui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4F9DDE")).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Width(14)

	LabelFocusedStyle = LabelStyle.
				Foreground(lipgloss.Color("#4F9DDE")).
				Bold(true)

	FocusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4F9DDE")).
			Bold(true)

	DisabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 2)

	ButtonFocusedStyle = ButtonStyle.
				Background(lipgloss.Color("#4F9DDE")).
				Bold(true)

	ButtonDisabledStyle = ButtonStyle.
				Foreground(lipgloss.Color("#9CA3AF")).
				Background(lipgloss.Color("#374151"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22C55E")).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4F9DDE")).
			Padding(1, 2)

	NoticeBoxStyle = BoxStyle.
			BorderForeground(lipgloss.Color("#FF4757"))
)

package ui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#0969DA")
	secondaryColor = lipgloss.Color("#8250DF")
	accentColor    = lipgloss.Color("#2DA44E")
	warningColor   = lipgloss.Color("#D29922")
	errorColor     = lipgloss.Color("#CF222E")
	dimColor       = lipgloss.Color("#6E7681")
	linkColor      = lipgloss.Color("#58A6FF")
	rankColor      = lipgloss.Color("#F778BA")
	titleColor     = lipgloss.Color("#39D353")

	HeaderStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	KeywordStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	RankStyle = lipgloss.NewStyle().
			Foreground(rankColor).
			Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(titleColor).
			Bold(true)

	LinkStyle = lipgloss.NewStyle().
			Foreground(linkColor).
			Underline(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Width(22)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	ArrowStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			SetString("│ ")

	BoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan   = lipgloss.Color("#00BFFF")
	colorPink   = lipgloss.Color("#FF0084") // Flickr pink
	colorGreen  = lipgloss.Color("#39D353")
	colorYellow = lipgloss.Color("#F5C518")
	colorRed    = lipgloss.Color("#FF3B30")
	colorDim    = lipgloss.Color("#8A8A8A")

	labelStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorPink).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	barFilledStyle = lipgloss.NewStyle().
			Foreground(colorPink)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPink).
			Padding(0, 2)
)

// Style helpers for callers that build their own lines
var (
	Label     = labelStyle.Render
	Value     = valueStyle.Render
	Success   = successStyle.Render
	Error     = errorStyle.Render
	Warning   = warningStyle.Render
	Highlight = highlightStyle.Render
	Dim       = dimStyle.Render
)

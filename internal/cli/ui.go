package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/depsentry/depsentry/pkg/vuln"
)

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings, medium severity
	colorRed    = lipgloss.Color("167") // Soft red - errors, high severity
	colorMaroon = lipgloss.Color("124") // Deep red - critical severity
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleSevCritical = lipgloss.NewStyle().Bold(true).Foreground(colorMaroon)
	styleSevHigh     = lipgloss.NewStyle().Foreground(colorRed)
	styleSevMedium   = lipgloss.NewStyle().Foreground(colorYellow)
	styleSevLow      = lipgloss.NewStyle().Foreground(colorGray)
	styleSevUnknown  = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
)

// severityStyle returns the display style for a severity level.
func severityStyle(s vuln.Severity) lipgloss.Style {
	switch s {
	case vuln.SeverityCritical:
		return styleSevCritical
	case vuln.SeverityHigh:
		return styleSevHigh
	case vuln.SeverityMedium:
		return styleSevMedium
	case vuln.SeverityLow:
		return styleSevLow
	}
	return styleSevUnknown
}

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printDetail prints an indented detail line.
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

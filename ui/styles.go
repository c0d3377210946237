package ui

import "github.com/charmbracelet/lipgloss"

// Colors.
var (
	normalDim   = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	gray        = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	cream       = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	yellowGreen = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}
	fuchsia     = lipgloss.Color("#EE6FF8")
	green       = lipgloss.Color("#04B575")
	red         = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
)

// Styles shared by the pager and the error view.
var (
	dimNormalStyle  = lipgloss.NewStyle().Foreground(normalDim)
	subtleStyle     = lipgloss.NewStyle().Foreground(gray)
	errorTitleStyle = lipgloss.NewStyle().Foreground(cream).Background(red).Padding(0, 1)
	spinnerStyle    = lipgloss.NewStyle().Foreground(fuchsia)
	playingStyle    = lipgloss.NewStyle().Foreground(green)
	pausedStyle     = lipgloss.NewStyle().Foreground(yellowGreen)
	errorStyle      = lipgloss.NewStyle().Foreground(red)

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Padding(0, 1)
)

func logoView() string {
	return logoStyle.Render("Recite")
}

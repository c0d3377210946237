package ui

import "github.com/dgnsrekt/recite/reading"

// Config contains TUI-specific configuration.
type Config struct {
	// Locator of the document being read, as given on the command line.
	Path string

	// Name of the speech engine, shown in the status bar.
	Engine string

	// Navigation policy in effect when the program starts.
	Step reading.StepLength

	// Page to start at, 1-based. Zero resumes at the saved position.
	Page int

	// Start reading as soon as the document is open.
	AutoPlay bool `env:"RECITE_AUTOPLAY" envDefault:"true"`

	EnableMouse    bool   `env:"RECITE_MOUSE"`
	MaxWidth       uint   `env:"RECITE_WIDTH" envDefault:"100"`
	HighlightColor string `env:"RECITE_HIGHLIGHT_COLOR" envDefault:"#F1F16F"`

	// For debugging the UI
	HighPerformancePager bool `env:"RECITE_HIGH_PERFORMANCE_PAGER" envDefault:"false"`
}

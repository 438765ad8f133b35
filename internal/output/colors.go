package output

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme defines the colors used for the statistics output.
type ColorScheme struct {
	Heading *color.Color
	Host    *color.Color
	Label   *color.Color
	Value   *color.Color
	Dim     *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Heading: color.New(color.FgCyan, color.Bold),
		Host:    color.New(color.FgYellow),
		Label:   color.New(color.FgBlue),
		Value:   color.New(color.FgWhite, color.Bold),
		Dim:     color.New(color.Faint),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Heading.DisableColor()
	scheme.Host.DisableColor()
	scheme.Label.DisableColor()
	scheme.Value.DisableColor()
	scheme.Dim.DisableColor()
	return scheme
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
// Callers use it to disable color for piped output.
func StdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

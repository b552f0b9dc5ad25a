package console

import "github.com/charmbracelet/lipgloss"

// Palette holds the styles used for watcher output.
type Palette struct {
	status  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

// DefaultPalette is the palette used unless another is given.
var DefaultPalette = NewPalette("#7D56F4", "#04B575", "#FF0000", "#626262")

// NewPalette builds a Palette from status, success, failure and muted
// foreground colors.
func NewPalette(status, success, failure, muted string) *Palette {
	return &Palette{
		status:  newStyle(status),
		success: newStyle(success).Bold(true),
		failure: newStyle(failure).Bold(true),
		muted:   newStyle(muted).Italic(true),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

// Package console renders a watcher to a terminal.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/thruflo/unidlewatch/internal/watcher"
)

// Banners printed when an outcome region is revealed.
const (
	SuccessBanner = "Your app is ready."
	FailureBanner = "Something went wrong while starting your app."
)

// Presenter writes status lines and outcome banners to a terminal.
type Presenter struct {
	out     io.Writer
	palette *Palette

	mu       sync.Mutex
	current  string
	revealed []watcher.State
}

var _ watcher.Presenter = (*Presenter)(nil)

// NewPresenter creates a Presenter writing to out. A nil palette uses
// DefaultPalette.
func NewPresenter(out io.Writer, palette *Palette) *Presenter {
	if palette == nil {
		palette = DefaultPalette
	}
	return &Presenter{out: out, palette: palette}
}

// ShowMessage prints text as the current status.
func (p *Presenter) ShowMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = text
	fmt.Fprintln(p.out, p.palette.status.Render("» "+text))
}

// RevealState prints the banner for a terminal state. Waiting has none.
func (p *Presenter) RevealState(s watcher.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch s {
	case watcher.Success:
		fmt.Fprintln(p.out, p.palette.success.Render("✓ "+SuccessBanner))
	case watcher.Failure:
		fmt.Fprintln(p.out, p.palette.failure.Render("✗ "+FailureBanner))
	default:
		return
	}
	p.revealed = append(p.revealed, s)
}

// Current returns the status text last shown.
func (p *Presenter) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Revealed returns the states revealed so far.
func (p *Presenter) Revealed() []watcher.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]watcher.State(nil), p.revealed...)
}

package console

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/watcher"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// Navigator announces the redirect on a terminal and, when an opener is
// set, hands the URL to it.
type Navigator struct {
	out     io.Writer
	palette *Palette
	open    func(url string) error
	logger  *logging.Logger

	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	url string
}

var _ watcher.Navigator = (*Navigator)(nil)

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithOpener hands every redirect URL to open, e.g. OpenBrowser.
func WithOpener(open func(url string) error) NavigatorOption {
	return func(n *Navigator) {
		n.open = open
	}
}

// WithNavigatorLogger sets the logger used to report opener failures.
func WithNavigatorLogger(logger *logging.Logger) NavigatorOption {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// NewNavigator creates a Navigator printing to out.
func NewNavigator(out io.Writer, palette *Palette, opts ...NavigatorOption) *Navigator {
	if palette == nil {
		palette = DefaultPalette
	}
	n := &Navigator{
		out:     out,
		palette: palette,
		logger:  logging.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Navigate prints url and opens it. Only the first call has any effect.
func (n *Navigator) Navigate(url string) {
	n.once.Do(func() {
		n.mu.Lock()
		n.url = url
		n.mu.Unlock()

		fmt.Fprintln(n.out, n.palette.muted.Render("Redirecting to "+url))
		if n.open != nil {
			if err := n.open(url); err != nil {
				n.logger.Warn("failed to open redirect", "url", url, "error", err)
			}
		}
		close(n.done)
	})
}

// Done is closed once Navigate has been called.
func (n *Navigator) Done() <-chan struct{} {
	return n.done
}

// URL returns the URL navigated to, empty before Navigate.
func (n *Navigator) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.url
}

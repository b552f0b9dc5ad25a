//go:build js && wasm

package dom

import (
	"net/url"
	"syscall/js"
	"time"

	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/watcher"
)

// RedirectHostAttribute is the body data attribute carrying the host
// baked into the page.
const RedirectHostAttribute = "data-redirect-host"

// Page describes where the watcher finds its inputs.
type Page struct {
	// URL is the page's own location; its host parameter selects the
	// target being unidled.
	URL *url.URL
	// RedirectHost is the host navigated to on success.
	RedirectHost string
}

// CurrentPage reads the page URL and the baked redirect host.
func CurrentPage() (Page, error) {
	u, err := url.Parse(js.Global().Get("location").Get("href").String())
	if err != nil {
		return Page{}, err
	}
	host := ""
	if body := js.Global().Get("document").Get("body"); present(body) {
		if v := body.Call("getAttribute", RedirectHostAttribute); v.Type() == js.TypeString {
			host = v.String()
		}
	}
	return Page{URL: u, RedirectHost: host}, nil
}

// Start wires the page's elements, EventSource, timer and location to a
// Watcher and opens the stream. Updates are handled on the browser's event
// loop as they arrive.
func Start(page Page, delay time.Duration, logger *logging.Logger) (*watcher.Watcher, error) {
	presenter, err := NewPresenter(WrapDocument(js.Global().Get("document")))
	if err != nil {
		return nil, err
	}

	var w *watcher.Watcher
	source := Open(watcher.EventsPath(watcher.HostParam(page.URL)), func(in watcher.Inbound) {
		w.Handle(in)
	})
	w = watcher.New(source, presenter,
		watcher.WithScheduler(Scheduler{}),
		watcher.WithNavigator(NewNavigator()),
		watcher.WithRedirect(page.RedirectHost, delay),
		watcher.WithLogger(logger),
	)
	return w, nil
}

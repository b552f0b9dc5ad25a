//go:build js && wasm

package dom

import (
	"syscall/js"
	"time"

	"github.com/thruflo/unidlewatch/internal/watcher"
)

// Navigator sends the browser to a new URL.
type Navigator struct {
	location js.Value
}

var _ watcher.Navigator = Navigator{}

// NewNavigator returns a Navigator driving window.location.
func NewNavigator() Navigator {
	return Navigator{location: js.Global().Get("location")}
}

// Navigate sets location.href.
func (n Navigator) Navigate(url string) {
	n.location.Set("href", url)
}

// Scheduler runs callbacks with window.setTimeout so they execute on the
// browser's event loop like every other callback.
type Scheduler struct{}

var _ watcher.Scheduler = Scheduler{}

// AfterFunc calls f once after d.
func (Scheduler) AfterFunc(d time.Duration, f func()) {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		f()
		return nil
	})
	js.Global().Call("setTimeout", cb, d.Milliseconds())
}

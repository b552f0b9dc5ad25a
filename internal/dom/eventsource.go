//go:build js && wasm

package dom

import (
	"sync"
	"syscall/js"

	"github.com/thruflo/unidlewatch/internal/watcher"
)

// EventSource subscribes to the events endpoint with the browser's
// EventSource and hands every update to a handler.
type EventSource struct {
	source js.Value
	// Callbacks stay registered for the page's lifetime. Releasing one
	// from inside its own invocation is not allowed, and the page is
	// navigated away from shortly after the stream closes anyway.
	funcs []js.Func

	once sync.Once
}

var _ watcher.Closer = (*EventSource)(nil)

// Open connects to path and calls handle for every message, success and
// error event. handle runs on the browser's event loop.
func Open(path string, handle func(watcher.Inbound)) *EventSource {
	es := &EventSource{
		source: js.Global().Get("EventSource").New(path),
	}

	for event, fn := range listeners(handle) {
		es.on(event, fn)
	}

	return es
}

func (es *EventSource) on(event string, fn func(data string)) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		data := ""
		if len(args) > 0 {
			if d := args[0].Get("data"); d.Type() == js.TypeString {
				data = d.String()
			}
		}
		fn(data)
		return nil
	})
	es.funcs = append(es.funcs, f)
	es.source.Call("addEventListener", event, f)
}

// Close closes the EventSource. Further calls do nothing.
func (es *EventSource) Close() error {
	es.once.Do(func() {
		es.source.Call("close")
	})
	return nil
}

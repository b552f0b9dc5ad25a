package dom

import "github.com/thruflo/unidlewatch/internal/watcher"

// connectionLost is shown when the EventSource reports an error without
// any text of its own.
const connectionLost = "Lost connection to the server"

// listeners maps the EventSource events the page listens for to the
// watcher input each one produces. data is the event's data, empty when
// the event carries none.
func listeners(handle func(watcher.Inbound)) map[string]func(data string) {
	return map[string]func(string){
		"message":            func(data string) { handle(watcher.Progress(data)) },
		watcher.EventSuccess: func(data string) { handle(watcher.Succeeded(data)) },
		watcher.EventError:   func(data string) { handle(watcher.Errored(errorText(data))) },
	}
}

// errorText is the message shown for an error event. A transport error
// from the browser carries no data.
func errorText(data string) string {
	if data == "" {
		return connectionLost
	}
	return data
}

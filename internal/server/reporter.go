package server

import (
	"context"
	"sync"

	"github.com/thruflo/unidlewatch/internal/stream"
	"github.com/thruflo/unidlewatch/internal/watcher"
)

// Reporter narrates an unidle to the pages watching a host.
type Reporter interface {
	// Progress publishes an unnamed frame carrying msg.
	Progress(msg string)
	// Succeed publishes a success frame. Nothing is published after it.
	Succeed(msg string)
	// Fail publishes an error frame carrying err's text. Nothing is
	// published after it.
	Fail(err error)
}

// Unidler brings a dormant app back. Implementations report progress
// through r and call r.Succeed once the app serves traffic. A returned
// error is reported as a failure.
type Unidler interface {
	Unidle(ctx context.Context, host string, r Reporter) error
}

// UnidlerFunc adapts a function to the Unidler interface.
type UnidlerFunc func(ctx context.Context, host string, r Reporter) error

// Unidle calls f(ctx, host, r).
func (f UnidlerFunc) Unidle(ctx context.Context, host string, r Reporter) error {
	return f(ctx, host, r)
}

type hostReporter struct {
	broker *Broker
	host   string

	mu   sync.Mutex
	done bool
}

// NewReporter returns a Reporter publishing to host's group in b.
func NewReporter(b *Broker, host string) Reporter {
	return &hostReporter{broker: b, host: host}
}

func (r *hostReporter) publish(f stream.Frame, terminal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}
	r.done = terminal
	r.broker.Publish(r.host, f)
}

func (r *hostReporter) Progress(msg string) {
	r.publish(stream.Frame{Data: msg}, false)
}

func (r *hostReporter) Succeed(msg string) {
	r.publish(stream.Frame{Event: watcher.EventSuccess, Data: msg}, true)
}

func (r *hostReporter) Fail(err error) {
	r.publish(stream.Frame{Event: watcher.EventError, Data: err.Error()}, true)
}

// finished reports whether Succeed or Fail has been called.
func (r *hostReporter) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/thruflo/unidlewatch/internal/logging"
)

// Presenter renders watcher state. Implementations only mutate what they
// display and keep no state of their own.
type Presenter interface {
	// ShowMessage replaces the status text. The text comes from the trusted
	// backend and is rendered as is.
	ShowMessage(text string)
	// RevealState unhides the region named after a terminal state.
	RevealState(s State)
}

// Closer stops the underlying stream.
type Closer interface {
	Close() error
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Navigator performs a full navigation to url.
type Navigator interface {
	Navigate(url string)
}

// Source is a stream of inbound updates that can be closed.
type Source interface {
	Closer
	Inbound() <-chan Inbound
}

// realScheduler schedules on the runtime's timers.
type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// RealScheduler returns a Scheduler backed by time.AfterFunc.
func RealScheduler() Scheduler {
	return realScheduler{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithScheduler sets the scheduler used for the redirect timer.
func WithScheduler(s Scheduler) Option {
	return func(w *Watcher) {
		w.scheduler = s
	}
}

// WithNavigator sets the navigator invoked when the redirect fires.
func WithNavigator(n Navigator) Option {
	return func(w *Watcher) {
		w.navigator = n
	}
}

// WithRedirect sets the host navigated to on success and the delay.
func WithRedirect(host string, delay time.Duration) Option {
	return func(w *Watcher) {
		w.redirect = Redirect{Host: host, Delay: delay}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// Watcher applies Transition to inbound updates and executes the resulting
// effects.
type Watcher struct {
	presenter Presenter
	stream    Closer
	scheduler Scheduler
	navigator Navigator
	redirect  Redirect
	logger    *logging.Logger

	// mu protects state
	mu    sync.Mutex
	state State
}

// New creates a Watcher in the Waiting state rendering to presenter and
// closing stream on the first terminal outcome.
func New(stream Closer, presenter Presenter, opts ...Option) *Watcher {
	w := &Watcher{
		presenter: presenter,
		stream:    stream,
		scheduler: RealScheduler(),
		navigator: nopNavigator{},
		redirect:  Redirect{Delay: DefaultRedirectDelay},
		logger:    logging.Discard(),
		state:     Waiting,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// State returns the current state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Handle processes one inbound update. Callback-driven hosts call it
// directly from their event callbacks.
func (w *Watcher) Handle(in Inbound) State {
	w.mu.Lock()
	prev := w.state
	next, effects := Transition(prev, in, w.redirect)
	w.state = next
	w.mu.Unlock()

	if prev.Terminal() {
		w.logger.Debug("ignoring update after terminal state", "state", prev, "kind", in.Kind)
		return next
	}
	if next != prev {
		w.logger.Info("state changed", "from", prev, "to", next)
	}

	for _, e := range effects {
		w.apply(e)
	}
	return next
}

func (w *Watcher) apply(e Effect) {
	switch e := e.(type) {
	case ShowMessage:
		w.presenter.ShowMessage(e.Text)
	case Reveal:
		w.presenter.RevealState(e.State)
	case CloseStream:
		if err := w.stream.Close(); err != nil {
			w.logger.Warn("failed to close stream", "error", err)
		}
	case ScheduleRedirect:
		url, navigator := e.URL, w.navigator
		w.logger.Info("redirect scheduled", "url", url, "delay", e.Delay)
		w.scheduler.AfterFunc(e.Delay, func() {
			navigator.Navigate(url)
		})
	}
}

// Run feeds every update from src into Handle until a terminal state is
// reached, the source ends, or ctx is canceled. It returns the final state.
func (w *Watcher) Run(ctx context.Context, src Source) (State, error) {
	for {
		select {
		case <-ctx.Done():
			return w.State(), ctx.Err()
		case in, ok := <-src.Inbound():
			if !ok {
				return w.State(), nil
			}
			if w.Handle(in).Terminal() {
				return w.State(), nil
			}
		}
	}
}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

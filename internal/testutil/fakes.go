package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/thruflo/unidlewatch/internal/watcher"
)

// Presenter records rendering calls.
type Presenter struct {
	mu       sync.Mutex
	messages []string
	revealed []watcher.State
}

// ShowMessage implements watcher.Presenter.
func (p *Presenter) ShowMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

// RevealState implements watcher.Presenter.
func (p *Presenter) RevealState(s watcher.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revealed = append(p.revealed, s)
}

// Messages returns every message shown, oldest first.
func (p *Presenter) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

// Current returns the most recently shown message.
func (p *Presenter) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1]
}

// Revealed returns the regions revealed, in order.
func (p *Presenter) Revealed() []watcher.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]watcher.State(nil), p.revealed...)
}

// Closer counts Close calls.
type Closer struct {
	mu    sync.Mutex
	calls int
	Err   error
}

// Close implements watcher.Closer.
func (c *Closer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.Err
}

// Calls returns how many times Close was called.
func (c *Closer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type pending struct {
	at time.Duration
	f  func()
}

// Scheduler is a manual clock implementing watcher.Scheduler.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []pending
	delays  []time.Duration
}

// NewScheduler returns a Scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements watcher.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, pending{at: s.now + d, f: f})
}

// Delays returns the delay of every AfterFunc call.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// Pending returns the number of callbacks not yet fired.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the clock forward by d and fires every callback now due,
// in deadline order.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due, rest []pending
	for _, p := range s.pending {
		if p.at <= s.now {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	s.pending = rest
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, p := range due {
		p.f()
	}
}

// Navigator records navigations.
type Navigator struct {
	mu   sync.Mutex
	urls []string
	ch   chan string
}

// NewNavigator returns a Navigator whose Navigated channel receives each url.
func NewNavigator() *Navigator {
	return &Navigator{ch: make(chan string, 8)}
}

// Navigate implements watcher.Navigator.
func (n *Navigator) Navigate(url string) {
	n.mu.Lock()
	n.urls = append(n.urls, url)
	n.mu.Unlock()
	if n.ch != nil {
		n.ch <- url
	}
}

// URLs returns every url navigated to.
func (n *Navigator) URLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// Navigated receives each url as it is navigated to.
func (n *Navigator) Navigated() <-chan string {
	return n.ch
}

package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/stream"
)

// subscriberBuffer is how many frames a slow subscriber may fall behind
// before frames are dropped for it.
const subscriberBuffer = 32

// Broker fans frames out to the subscribers of each host. Every host has
// its own group which remembers the last frame published, so pages that
// connect late or reconnect are brought up to date.
type Broker struct {
	mu     sync.Mutex
	groups map[string]*group
	closed bool
	logger *logging.Logger
	now    func() time.Time

	// Busy reports whether a host is still being worked on. Groups of busy
	// hosts are never dropped. Set it before the broker is shared.
	Busy func(host string) bool
}

type group struct {
	seq     int
	last    *stream.Frame
	updated time.Time
	subs    map[string]chan *stream.Frame
}

// idle reports whether nothing would be lost by dropping the group.
func (g *group) idle() bool {
	return len(g.subs) == 0 && g.last == nil
}

// NewBroker creates an empty Broker.
func NewBroker(logger *logging.Logger) *Broker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Broker{
		groups: make(map[string]*group),
		logger: logger,
		now:    time.Now,
	}
}

func (b *Broker) group(host string) *group {
	g, ok := b.groups[host]
	if !ok {
		g = &group{subs: make(map[string]chan *stream.Frame)}
		b.groups[host] = g
	}
	return g
}

// Publish assigns the next id of the host's group to f, remembers it as
// the group's last frame and delivers it to every subscriber. Subscribers
// whose buffer is full miss the frame.
func (b *Broker) Publish(host string, f stream.Frame) stream.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return f
	}

	g := b.group(host)
	g.seq++
	f.ID = strconv.Itoa(g.seq)
	g.last = &f
	g.updated = b.now()

	for id, ch := range g.subs {
		frame := f
		select {
		case ch <- &frame:
		default:
			b.logger.Warn("dropping frame for slow subscriber", "host", host, "subscriber", id, "frame", f.ID)
		}
	}
	return f
}

// Subscription is one page's view of a host's group.
type Subscription struct {
	// ID identifies the subscriber in logs and in Unsubscribe.
	ID string
	// Frames is closed when the subscriber is removed or the broker closes.
	Frames <-chan *stream.Frame
	// Replay is the group's last frame when the subscriber has not seen it
	// yet, nil otherwise.
	Replay *stream.Frame
}

// Subscribe adds a subscriber to the host's group. lastEventID is the id of
// the last frame the subscriber received, empty for a first connection.
func (b *Broker) Subscribe(host, lastEventID string) Subscription {
	ch := make(chan *stream.Frame, subscriberBuffer)
	sub := Subscription{ID: uuid.NewString(), Frames: ch}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return sub
	}

	g := b.group(host)
	g.subs[sub.ID] = ch
	if g.last != nil && g.last.ID != lastEventID {
		replay := *g.last
		sub.Replay = &replay
	}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(host, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.groups[host]
	if !ok {
		return
	}
	if ch, ok := g.subs[id]; ok {
		delete(g.subs, id)
		close(ch)
	}
	if g.idle() && !b.busy(host) {
		delete(b.groups, host)
	}
}

func (b *Broker) busy(host string) bool {
	return b.Busy != nil && b.Busy(host)
}

// Reset forgets the host's last frame so a new unidle starts from a clean
// slate. Frame ids keep increasing across resets.
func (b *Broker) Reset(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if g, ok := b.groups[host]; ok {
		g.last = nil
	}
}

// Last returns the last frame published for host.
func (b *Broker) Last(host string) (stream.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.groups[host]
	if !ok || g.last == nil {
		return stream.Frame{}, false
	}
	return *g.last, true
}

// Subscribers returns the number of subscribers watching host.
func (b *Broker) Subscribers(host string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if g, ok := b.groups[host]; ok {
		return len(g.subs)
	}
	return 0
}

// Groups returns the number of hosts the broker is tracking.
func (b *Broker) Groups() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.groups)
}

// Expire drops the groups of idle hosts nobody is watching whose last
// frame was published before cutoff. It returns the number of groups
// dropped.
func (b *Broker) Expire(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for host, g := range b.groups {
		if len(g.subs) > 0 || g.updated.After(cutoff) {
			continue
		}
		if b.busy(host) {
			continue
		}
		delete(b.groups, host)
		n++
	}
	return n
}

// Close disconnects every subscriber. Later publishes are dropped and
// later subscriptions receive an already closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, g := range b.groups {
		for id, ch := range g.subs {
			delete(g.subs, id)
			close(ch)
		}
	}
}

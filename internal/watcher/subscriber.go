package watcher

import (
	"context"
	"sync"

	"github.com/thruflo/unidlewatch/internal/stream"
)

// Event names with a dedicated meaning on the stream.
const (
	EventSuccess = "success"
	EventError   = "error"
)

// Subscriber adapts an SSE subscription into Inbound updates.
type Subscriber struct {
	sub     *stream.Subscription
	inbound chan Inbound

	stop     chan struct{}
	stopOnce sync.Once
}

// Subscribe opens the events stream for host and starts classifying frames.
func Subscribe(ctx context.Context, client *stream.Client, host string) *Subscriber {
	return NewSubscriber(client.Subscribe(ctx, EventsPath(host)))
}

// NewSubscriber wraps an existing subscription.
func NewSubscriber(sub *stream.Subscription) *Subscriber {
	s := &Subscriber{
		sub:     sub,
		inbound: make(chan Inbound),
		stop:    make(chan struct{}),
	}
	go s.forward()
	return s
}

// Inbound returns the channel of classified updates.
func (s *Subscriber) Inbound() <-chan Inbound {
	return s.inbound
}

// Close stops the underlying subscription. Updates not yet received are
// dropped.
func (s *Subscriber) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.sub.Close()
}

// Classify maps a frame to an Inbound update. Frames with an unexpected
// name are treated as progress.
func Classify(f *stream.Frame) Inbound {
	switch f.Name() {
	case EventSuccess:
		return Succeeded(f.Data)
	case EventError:
		return Errored(f.Data)
	default:
		return Progress(f.Data)
	}
}

func (s *Subscriber) forward() {
	defer close(s.inbound)

	frames, errs := s.sub.Frames(), s.sub.Errors()
	for frames != nil || errs != nil {
		var in Inbound
		select {
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			in = Classify(f)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			in = Errored(err.Error())
		}

		select {
		case s.inbound <- in:
		case <-s.stop:
			return
		}
	}
}

package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/stream"
)

func receive(t *testing.T, frames <-chan *stream.Frame) *stream.Frame {
	t.Helper()
	select {
	case f, ok := <-frames:
		require.True(t, ok, "subscription closed")
		return f
	default:
		require.FailNow(t, "no frame delivered")
		return nil
	}
}

func TestBroker_PublishAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	first := b.Publish("a.example.com", stream.Frame{Data: "Pending"})
	second := b.Publish("a.example.com", stream.Frame{Data: "Restoring app"})
	other := b.Publish("b.example.com", stream.Frame{Data: "Pending"})

	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2", second.ID)
	assert.Equal(t, "1", other.ID)
}

func TestBroker_DeliversToHostSubscribersOnly(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	a := b.Subscribe("a.example.com", "")
	other := b.Subscribe("b.example.com", "")
	assert.Nil(t, a.Replay)
	assert.NotEqual(t, a.ID, other.ID)

	b.Publish("a.example.com", stream.Frame{Data: "Pending"})

	f := receive(t, a.Frames)
	assert.Equal(t, "Pending", f.Data)
	assert.Equal(t, "1", f.ID)
	assert.Empty(t, other.Frames)
}

func TestBroker_ReplaysLastFrame(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	b.Publish("a.example.com", stream.Frame{Data: "Pending"})
	b.Publish("a.example.com", stream.Frame{Event: "success", Data: "Ready"})

	late := b.Subscribe("a.example.com", "")
	require.NotNil(t, late.Replay)
	assert.Equal(t, stream.Frame{ID: "2", Event: "success", Data: "Ready"}, *late.Replay)

	stale := b.Subscribe("a.example.com", "1")
	require.NotNil(t, stale.Replay)
	assert.Equal(t, "2", stale.Replay.ID)

	current := b.Subscribe("a.example.com", "2")
	assert.Nil(t, current.Replay)
}

func TestBroker_Reset(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	b.Publish("a.example.com", stream.Frame{Event: "error", Data: "boom"})
	b.Reset("a.example.com")

	_, ok := b.Last("a.example.com")
	assert.False(t, ok)
	assert.Nil(t, b.Subscribe("a.example.com", "").Replay)

	next := b.Publish("a.example.com", stream.Frame{Data: "Pending"})
	assert.Equal(t, "2", next.ID)
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	sub := b.Subscribe("a.example.com", "")
	assert.Equal(t, 1, b.Subscribers("a.example.com"))

	b.Unsubscribe("a.example.com", sub.ID)
	b.Unsubscribe("a.example.com", sub.ID)
	b.Unsubscribe("unknown.example.com", sub.ID)

	assert.Equal(t, 0, b.Subscribers("a.example.com"))
	_, ok := <-sub.Frames
	assert.False(t, ok)
}

func TestBroker_UnsubscribeDropsIdleGroup(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	for _, host := range []string{"a.example.com", "b.example.com", "c.example.com"} {
		sub := b.Subscribe(host, "")
		b.Unsubscribe(host, sub.ID)
	}
	assert.Equal(t, 0, b.Groups())

	b.Publish("d.example.com", stream.Frame{Event: "success", Data: "Ready"})
	sub := b.Subscribe("d.example.com", "")
	b.Unsubscribe("d.example.com", sub.ID)
	assert.Equal(t, 1, b.Groups(), "a group with a last frame is kept for late pages")

	b.Busy = func(host string) bool { return host == "e.example.com" }
	sub = b.Subscribe("e.example.com", "")
	b.Unsubscribe("e.example.com", sub.ID)
	assert.Equal(t, 2, b.Groups(), "a busy host keeps its group")
}

func TestBroker_Expire(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := NewBroker(logging.Discard())
	b.now = func() time.Time { return now }
	b.Busy = func(host string) bool { return host == "busy.example.com" }

	b.Publish("old.example.com", stream.Frame{Event: "success", Data: "Ready"})
	b.Publish("busy.example.com", stream.Frame{Data: "Pending"})
	b.Publish("watched.example.com", stream.Frame{Data: "Pending"})
	watched := b.Subscribe("watched.example.com", "")

	now = now.Add(time.Hour)
	b.Publish("fresh.example.com", stream.Frame{Data: "Pending"})

	assert.Equal(t, 1, b.Expire(now.Add(-time.Minute)))
	assert.Equal(t, 3, b.Groups())

	_, ok := b.Last("old.example.com")
	assert.False(t, ok)
	_, ok = b.Last("busy.example.com")
	assert.True(t, ok)
	_, ok = b.Last("fresh.example.com")
	assert.True(t, ok)
	assert.Equal(t, 1, b.Subscribers("watched.example.com"))

	b.Unsubscribe("watched.example.com", watched.ID)
	assert.Equal(t, 1, b.Expire(now.Add(-time.Minute)))
	assert.Equal(t, 2, b.Groups())
}

func TestBroker_SlowSubscriberDropsFrames(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	sub := b.Subscribe("a.example.com", "")
	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish("a.example.com", stream.Frame{Data: "tick"})
	}

	assert.Len(t, sub.Frames, subscriberBuffer)
	last, ok := b.Last("a.example.com")
	require.True(t, ok)
	assert.Equal(t, "37", last.ID)
}

func TestBroker_Close(t *testing.T) {
	t.Parallel()

	b := NewBroker(logging.Discard())
	sub := b.Subscribe("a.example.com", "")

	b.Close()
	b.Close()

	_, ok := <-sub.Frames
	assert.False(t, ok)

	after := b.Subscribe("a.example.com", "")
	_, ok = <-after.Frames
	assert.False(t, ok)

	b.Publish("a.example.com", stream.Frame{Data: "ignored"})
	assert.Equal(t, 0, b.Subscribers("a.example.com"))
}

func TestReporter(t *testing.T) {
	t.Parallel()

	t.Run("success is terminal", func(t *testing.T) {
		t.Parallel()

		b := NewBroker(logging.Discard())
		sub := b.Subscribe("a.example.com", "")
		r := NewReporter(b, "a.example.com")

		r.Progress("Pending")
		r.Succeed("Ready")
		r.Progress("ignored")
		r.Fail(errors.New("ignored"))

		assert.Equal(t, stream.Frame{ID: "1", Data: "Pending"}, *receive(t, sub.Frames))
		assert.Equal(t, stream.Frame{ID: "2", Event: "success", Data: "Ready"}, *receive(t, sub.Frames))
		assert.Empty(t, sub.Frames)
	})

	t.Run("failure publishes the error text", func(t *testing.T) {
		t.Parallel()

		b := NewBroker(logging.Discard())
		sub := b.Subscribe("a.example.com", "")
		r := NewReporter(b, "a.example.com")

		r.Fail(errors.New("deployment never became ready"))
		r.Succeed("ignored")

		assert.Equal(t, stream.Frame{ID: "1", Event: "error", Data: "deployment never became ready"}, *receive(t, sub.Frames))
		assert.Empty(t, sub.Frames)
	})
}

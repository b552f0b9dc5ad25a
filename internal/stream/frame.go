// Package stream implements the Server-Sent Events wire format and an
// EventSource-style HTTP client used to follow an unidle progress stream.
package stream

import (
	"strconv"
	"strings"
)

// DefaultEventName is the event name of frames sent without an event field.
const DefaultEventName = "message"

// Frame is a single Server-Sent Event.
type Frame struct {
	// ID is the event id; clients echo the last one in Last-Event-ID.
	ID string
	// Event is the event name. Empty means an unnamed frame.
	Event string
	// Data is the payload. Newlines are carried as multiple data lines.
	Data string
	// Retry is the reconnection time in milliseconds, 0 when unset.
	Retry int
}

// Name returns the event name the frame is dispatched under.
func (f *Frame) Name() string {
	if f.Event == "" {
		return DefaultEventName
	}
	return f.Event
}

// String encodes the frame in SSE format, omitting empty fields.
func (f *Frame) String() string {
	var sb strings.Builder
	if f.ID != "" {
		sb.WriteString("id: ")
		sb.WriteString(f.ID)
		sb.WriteString("\n")
	}
	if f.Event != "" {
		sb.WriteString("event: ")
		sb.WriteString(f.Event)
		sb.WriteString("\n")
	}
	if f.Retry > 0 {
		sb.WriteString("retry: ")
		sb.WriteString(strconv.Itoa(f.Retry))
		sb.WriteString("\n")
	}
	// Line terminators inside data would otherwise end the field early.
	data := strings.ReplaceAll(f.Data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

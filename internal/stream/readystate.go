package stream

// ReadyState indicates the state of a Subscription.
type ReadyState uint32

const (
	// Connecting while trying to establish or re-establish the connection.
	Connecting ReadyState = iota
	// Open after the server accepted the stream.
	Open
	// Closed after Close is invoked or the connection failed for good.
	Closed
)

func (s ReadyState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

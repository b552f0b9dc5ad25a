package watcher

// State is the visible state of the watcher page.
type State int

const (
	// Waiting is the initial state while the backend is still waking.
	Waiting State = iota
	// Success means the application is ready; a redirect is pending.
	Success
	// Failure means the stream reported an error.
	Failure
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == Success || s == Failure
}

// Kind classifies an inbound update.
type Kind int

const (
	// KindProgress is an unnamed update frame.
	KindProgress Kind = iota
	// KindSuccess is a frame named "success".
	KindSuccess
	// KindError is a transport error or a frame named "error".
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Inbound is one update delivered by the Subscriber.
type Inbound struct {
	Kind Kind
	Text string
}

// Progress returns a progress update carrying text.
func Progress(text string) Inbound {
	return Inbound{Kind: KindProgress, Text: text}
}

// Succeeded returns a success outcome carrying text.
func Succeeded(text string) Inbound {
	return Inbound{Kind: KindSuccess, Text: text}
}

// Errored returns a transport error outcome carrying text.
func Errored(text string) Inbound {
	return Inbound{Kind: KindError, Text: text}
}

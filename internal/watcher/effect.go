package watcher

import (
	"fmt"
	"time"
)

// DefaultRedirectDelay is how long the success state is shown before
// navigating to the application.
const DefaultRedirectDelay = 5 * time.Second

// Effect is a side effect requested by Transition.
type Effect interface {
	effect()
}

// ShowMessage replaces the status text.
type ShowMessage struct {
	Text string
}

// Reveal unhides the region for a terminal state.
type Reveal struct {
	State State
}

// CloseStream stops delivery from the subscription.
type CloseStream struct{}

// ScheduleRedirect navigates to URL once Delay has elapsed.
type ScheduleRedirect struct {
	URL   string
	Delay time.Duration
}

func (ShowMessage) effect()      {}
func (Reveal) effect()           {}
func (CloseStream) effect()      {}
func (ScheduleRedirect) effect() {}

// Redirect describes where to send the user on success. Host is baked into
// the page when it is generated and is unrelated to the host query
// parameter that selects the stream.
type Redirect struct {
	Host  string
	Delay time.Duration
}

// URL returns the address of the application's front page.
func (r Redirect) URL() string {
	return fmt.Sprintf("https://%s/", r.Host)
}

// Package demo provides a scripted stand-in for a real unidling backend.
// It narrates the stages a real unidle goes through so the waiting page
// can be exercised end to end without a cluster.
package demo

import (
	"context"
	"errors"
	"time"

	"github.com/thruflo/unidlewatch/internal/config"
	"github.com/thruflo/unidlewatch/internal/server"
)

// Step is one narrated stage. After is how long the stage takes before
// the next one is reported.
type Step struct {
	Message string
	After   time.Duration
}

// Script narrates Steps in order, then reports Outcome.
type Script struct {
	Steps []Step
	// Fail makes the script end in a failure instead of a success.
	Fail           bool
	OutcomeMessage string

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ server.Unidler = (*Script)(nil)

// FromConfig builds a Script from the demo section of the config.
func FromConfig(cfg config.DemoConfig) *Script {
	s := &Script{
		Fail:           cfg.Outcome == config.OutcomeFailure,
		OutcomeMessage: cfg.OutcomeMessage,
	}
	for _, step := range cfg.Steps {
		s.Steps = append(s.Steps, Step{Message: step.Message, After: step.After})
	}
	return s
}

// Default returns the script used when no config is given.
func Default() *Script {
	return FromConfig(config.DefaultConfig().Demo)
}

// Unidle reports every step to r, waiting After between them. It stops
// early with ctx's error when ctx is canceled.
func (s *Script) Unidle(ctx context.Context, host string, r server.Reporter) error {
	sleep := s.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for _, step := range s.Steps {
		r.Progress(step.Message)
		if err := sleep(ctx, step.After); err != nil {
			return err
		}
	}

	if s.Fail {
		msg := s.OutcomeMessage
		if msg == "" {
			msg = "unidle failed"
		}
		return errors.New(msg)
	}

	msg := s.OutcomeMessage
	if msg == "" {
		msg = server.DefaultReadyMessage
	}
	r.Succeed(msg)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

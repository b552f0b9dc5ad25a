// Package testutil provides shared test utilities for unidlewatch.
//
// # Fakes
//
// The fakes.go file provides in-memory collaborators for a watcher.Watcher:
//
//   - Presenter - records every ShowMessage and RevealState call
//   - Closer - counts Close calls
//   - Scheduler - a manual clock; callbacks fire only on Advance
//   - Navigator - records navigations and signals them on a channel
//
// # Timeouts
//
// The timeout.go file provides contexts that respect the test deadline:
//
//   - ContextWithTestDeadline(t, fallback)
//   - ContextWithTimeout(t, timeout)
//   - StreamContext(t) - a short context for end-to-end stream tests
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    presenter := &testutil.Presenter{}
//	    clock := testutil.NewScheduler()
//	    w := watcher.New(&testutil.Closer{}, presenter, watcher.WithScheduler(clock))
//	    // ... drive w ...
//	    clock.Advance(5 * time.Second)
//	}
package testutil

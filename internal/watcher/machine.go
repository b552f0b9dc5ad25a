package watcher

// Transition computes the next state and the effects to perform for one
// inbound update. It has no side effects of its own.
func Transition(s State, in Inbound, redirect Redirect) (State, []Effect) {
	if s.Terminal() {
		return s, nil
	}

	switch in.Kind {
	case KindSuccess:
		return Success, []Effect{
			ShowMessage{Text: in.Text},
			Reveal{State: Success},
			CloseStream{},
			ScheduleRedirect{URL: redirect.URL(), Delay: redirect.Delay},
		}
	case KindError:
		return Failure, []Effect{
			ShowMessage{Text: in.Text},
			Reveal{State: Failure},
			CloseStream{},
		}
	default:
		// Anything unrecognised is rendered as progress.
		return s, []Effect{ShowMessage{Text: in.Text}}
	}
}

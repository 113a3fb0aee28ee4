package supervisor

import "time"

type Opt func(*Supervisor)

// WithRedirectDelay sets the pause between the expiry notice and the
// redirect to the login surface.
func WithRedirectDelay(d time.Duration) Opt {
	return func(s *Supervisor) {
		if d >= 0 {
			s.redirectDelay = d
		}
	}
}

// WithStateListener registers fn to be called on every state transition.
// fn runs on the supervisor's loop and must not block; it may hand
// VerifyAndSchedule or Close to another goroutine but not call them itself.
func WithStateListener(fn func(State)) Opt {
	return func(s *Supervisor) {
		s.listener = fn
	}
}

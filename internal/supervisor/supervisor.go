// Package supervisor tracks the liveness of the stored bearer credential.
//
// One Supervisor runs per context (process, REPL, tab). It reads the shared
// credential store, decodes the token's expiry, arms a single timer for it,
// and re-verifies whenever another context changes the store. When the
// credential is absent, malformed or expired it clears the store, moves to
// StateExpired, shows one notice and, after a short delay, redirects to the
// login surface.
//
// All work runs on a private eventloop.Loop, so one verification always
// completes before the next begins.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/credential"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
	"github.com/dmitrijs2005/sessionkeeper/internal/eventloop"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/scheduler"
	"k8s.io/utils/clock"
)

const defaultRedirectDelay = 2 * time.Second

// Navigator moves the user to the login surface.
type Navigator interface {
	RedirectToLogin(ctx context.Context) error
}

// Notifier tells the user their session ended.
type Notifier interface {
	ShowExpiredNotice(ctx context.Context)
}

type Supervisor struct {
	store         credstore.Store
	sync          credstore.Synchronizer
	decoder       credential.Decoder
	nav           Navigator
	notice        Notifier
	logger        logging.Logger
	clock         clock.Clock
	redirectDelay time.Duration
	listener      func(State)

	loop     *eventloop.Loop
	expiry   *scheduler.Scheduler
	redirect *scheduler.Scheduler

	mu        sync.RWMutex
	state     State
	token     string
	expiresAt time.Time

	// rejected is the last raw token marked invalid. Loop only.
	rejected string

	lifecycle sync.Mutex
	started   bool
	closed    bool
	sub       credstore.Subscription
	runCtx    context.Context
	cancel    context.CancelFunc
}

func New(
	store credstore.Store,
	synchronizer credstore.Synchronizer,
	decoder credential.Decoder,
	nav Navigator,
	notice Notifier,
	logger logging.Logger,
	opts ...Opt,
) *Supervisor {
	s := &Supervisor{
		store:         store,
		sync:          synchronizer,
		decoder:       decoder,
		nav:           nav,
		notice:        notice,
		logger:        logger,
		clock:         clock.RealClock{},
		redirectDelay: defaultRedirectDelay,
		loop:          eventloop.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expiry = scheduler.New(s.clock, s.loop)
	s.redirect = scheduler.New(s.clock, s.loop)
	return s
}

// Start subscribes to external changes, starts the loop and runs the first
// verification, returning once it has completed. Calling it again after a
// successful Start is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.lifecycle.Lock()

	if s.closed {
		s.lifecycle.Unlock()
		return common.ErrSupervisorClosed
	}
	if s.started {
		s.lifecycle.Unlock()
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	go s.loop.Run(s.runCtx)

	sub, err := s.sync.Subscribe(s.onExternalChange)
	if err != nil {
		s.stopLoop()
		s.closed = true
		s.lifecycle.Unlock()
		return err
	}
	s.sub = sub
	s.started = true
	s.lifecycle.Unlock()

	// The first verification runs without the lifecycle lock, so collaborators
	// may hand VerifyAndSchedule or Close to another goroutine meanwhile.
	return s.do(ctx, s.verifyAndSchedule)
}

// VerifyAndSchedule re-reads the store and re-arms the expiry timer. Call it
// after this context writes a new token itself: the writer never receives
// its own change notification.
//
// It waits for the loop, so a Navigator, Notifier or state listener must not
// call it synchronously; those run on the loop. Calling it from a separate
// goroutine is fine.
func (s *Supervisor) VerifyAndSchedule(ctx context.Context) error {
	s.lifecycle.Lock()
	ready := s.started && !s.closed
	s.lifecycle.Unlock()
	if !ready {
		return common.ErrSupervisorClosed
	}
	return s.do(ctx, s.verifyAndSchedule)
}

// do runs fn on the loop and reports a stopped loop as a closed supervisor.
func (s *Supervisor) do(ctx context.Context, fn func()) error {
	err := s.loop.Do(ctx, fn)
	if errors.Is(err, eventloop.ErrStopped) {
		return common.ErrSupervisorClosed
	}
	return err
}

// Close releases the timers, the subscription and the loop. It is safe to
// call before Start and more than once. Like VerifyAndSchedule it must not
// be called synchronously from a Navigator, Notifier or state listener.
func (s *Supervisor) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.started {
		return nil
	}

	// Stop the loop first so no callback can re-arm a timer after it is cancelled.
	s.stopLoop()
	s.expiry.Cancel()
	s.redirect.Cancel()
	s.sub.Unsubscribe()

	s.logger.Debug(context.Background(), "session supervisor stopped")
	return nil
}

func (s *Supervisor) stopLoop() {
	s.loop.Stop()
	s.cancel()
	<-s.loop.Done()
}

// IsValid reports whether the supervisor currently believes the stored
// credential is usable.
func (s *Supervisor) IsValid() bool {
	return s.State() == StateValid
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Expiry returns the expiry of the credential while the state is Valid.
func (s *Supervisor) Expiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateValid {
		return time.Time{}, false
	}
	return s.expiresAt, true
}

func (s *Supervisor) onExternalChange(c credstore.Change) {
	s.loop.Post(func() {
		s.logger.Debug(s.runCtx, "credential changed in another context", "key", c.Key, "present", c.Present)
		s.verifyAndSchedule()
	})
}

// verifyAndSchedule runs on the loop.
func (s *Supervisor) verifyAndSchedule() {
	ctx := s.runCtx

	raw, err := s.store.Read(ctx)
	if err != nil {
		if errors.Is(err, common.ErrCredentialAbsent) {
			s.expire(ctx, common.ErrCredentialAbsent, false)
			return
		}
		if errors.Is(err, common.ErrMalformedCredential) {
			// The store holds a value it cannot interpret, e.g. sealed with
			// another key.
			s.expire(ctx, err, true)
			return
		}
		// The slot could not be read, so there is nothing safe to clear.
		s.logger.Error(ctx, "failed to read credential store", "error", err)
		s.expire(ctx, err, false)
		return
	}

	if raw == s.rejected {
		s.expire(ctx, common.ErrAlreadyExpired, true)
		return
	}

	expiresAt, err := s.decoder.Decode(raw)
	if err != nil {
		s.rejected = raw
		s.expire(ctx, err, true)
		return
	}

	if !expiresAt.After(s.clock.Now()) {
		s.rejected = raw
		s.expire(ctx, common.ErrAlreadyExpired, true)
		return
	}

	s.redirect.Cancel()
	s.setState(StateValid, raw, expiresAt)
	s.expiry.Arm(expiresAt, s.onExpiryFire)

	s.logger.Debug(ctx, "credential verified", "expires_at", expiresAt)
}

// onExpiryFire runs on the loop when the armed expiry is reached.
func (s *Supervisor) onExpiryFire() {
	ctx := s.runCtx

	s.mu.RLock()
	expiring := s.token
	s.mu.RUnlock()

	// Another context may have stored a fresh token whose notification is
	// still queued behind this fire; never clear that one.
	if raw, err := s.store.Read(ctx); err == nil && raw != expiring {
		s.verifyAndSchedule()
		return
	}

	s.rejected = expiring
	s.expire(ctx, common.ErrAlreadyExpired, true)
}

// expire moves to StateExpired. The notice and the redirect happen only on
// the transition, never while already expired.
func (s *Supervisor) expire(ctx context.Context, cause error, clearStore bool) {
	s.expiry.Cancel()

	if clearStore {
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Error(ctx, "failed to clear credential store", "error", err)
		}
	}

	if prev := s.setState(StateExpired, "", time.Time{}); prev == StateExpired {
		s.logger.Debug(ctx, "credential still invalid", "cause", cause)
		return
	}

	s.logger.Info(ctx, "session expired", "cause", cause)
	s.notice.ShowExpiredNotice(ctx)
	s.redirect.Arm(s.clock.Now().Add(s.redirectDelay), s.onRedirect)
}

func (s *Supervisor) onRedirect() {
	ctx := s.runCtx
	if s.State() != StateExpired {
		return
	}
	if err := s.nav.RedirectToLogin(ctx); err != nil {
		s.logger.Error(ctx, "redirect to login failed", "error", err)
	}
}

// setState records the new state and returns the previous one.
func (s *Supervisor) setState(state State, token string, expiresAt time.Time) State {
	s.mu.Lock()
	prev := s.state
	s.state, s.token, s.expiresAt = state, token, expiresAt
	s.mu.Unlock()

	if prev != state && s.listener != nil {
		s.listener(state)
	}
	return prev
}

// Package services contains application services for the SessionKeeper
// client. SessionService glues the shared credential store to the session
// supervisor of the current process.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/credential"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
	"github.com/dmitrijs2005/sessionkeeper/internal/supervisor"
	"k8s.io/utils/clock"
)

// Verifier is the part of *supervisor.Supervisor the service drives.
type Verifier interface {
	VerifyAndSchedule(ctx context.Context) error
	State() supervisor.State
	Expiry() (time.Time, bool)
}

// Status is a snapshot of the supervisor's view of the session.
type Status struct {
	State     supervisor.State
	ExpiresAt time.Time
}

// Remaining returns the time left until expiry, or zero when the session is
// not valid.
func (s Status) Remaining(now time.Time) time.Duration {
	if s.State != supervisor.StateValid {
		return 0
	}
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// SessionService defines the session operations used by the CLI.
//
// Contract:
//   - Login: accept a token, persist it to the shared store, re-verify.
//   - Logout: clear the shared store, re-verify.
//   - Verify: re-run the supervisor's verification on demand.
//   - Status: report the current state and expiry.
//   - Mint: issue a development token signed with the configured key.
//
// Login and Logout re-verify explicitly because a context never receives
// change notifications for its own writes.
type SessionService interface {
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context) error
	Verify(ctx context.Context) error
	Status() Status
	Mint(subject string, ttl time.Duration) (string, error)
}

type sessionService struct {
	store    credstore.Store
	verifier Verifier
	decoder  credential.Decoder
	clock    clock.PassiveClock
	key      []byte
}

// NewSessionService constructs a SessionService. signingKey is only used by
// Mint.
func NewSessionService(store credstore.Store, verifier Verifier, decoder credential.Decoder, clk clock.PassiveClock, signingKey []byte) SessionService {
	return &sessionService{
		store:    store,
		verifier: verifier,
		decoder:  decoder,
		clock:    clk,
		key:      signingKey,
	}
}

// Login rejects tokens that do not decode or are already expired, so a
// typo never replaces a working credential in the other contexts.
func (s *sessionService) Login(ctx context.Context, token string) error {
	expiresAt, err := s.decoder.Decode(token)
	if err != nil {
		return err
	}
	if !expiresAt.After(s.clock.Now()) {
		return common.ErrAlreadyExpired
	}

	if err := s.store.Write(ctx, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return s.verifier.VerifyAndSchedule(ctx)
}

func (s *sessionService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return s.verifier.VerifyAndSchedule(ctx)
}

func (s *sessionService) Verify(ctx context.Context) error {
	return s.verifier.VerifyAndSchedule(ctx)
}

func (s *sessionService) Status() Status {
	st := Status{State: s.verifier.State()}
	if at, ok := s.verifier.Expiry(); ok {
		st.ExpiresAt = at
	}
	return st
}

func (s *sessionService) Mint(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	return credential.Issue(subject, s.key, ttl, s.clock.Now())
}

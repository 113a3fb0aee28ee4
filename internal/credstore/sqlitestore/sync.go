package sqlitestore

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
)

// Subscribe starts the data_version poller on first use and registers fn.
func (s *Store) Subscribe(fn func(credstore.Change)) (credstore.Subscription, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, common.ErrStoreClosed
	}

	s.watchOnce.Do(s.startPoller)
	return s.subs.Add(fn), nil
}

func (s *Store) startPoller() {
	// The ticker is created before returning so a fake clock can be stepped
	// right after Subscribe.
	ticker := s.clock.NewTicker(s.poll)
	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel
	s.watchDone = make(chan struct{})

	go func() {
		defer close(s.watchDone)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.pollOnce(ctx)
			}
		}
	}()
}

// pollOnce publishes the slot when another connection committed and the
// key's row differs from what this store last observed or wrote.
func (s *Store) pollOnce(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	v, err := s.repo.dataVersion(ctx)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn(ctx, "credential poll failed", "error", err)
		return
	}
	if v == s.lastVersion {
		s.mu.Unlock()
		return
	}
	s.lastVersion = v

	st, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn(ctx, "credential poll failed", "error", err)
		return
	}
	if st == s.lastSeen {
		s.mu.Unlock()
		return
	}
	s.lastSeen = st
	s.mu.Unlock()

	s.subs.Publish(credstore.Change{Key: s.key, Token: st.value, Present: st.present})
}

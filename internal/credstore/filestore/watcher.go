package filestore

import (
	"context"
	"path/filepath"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
	"github.com/fsnotify/fsnotify"
)

// Subscribe starts the directory watcher on first use and registers fn for
// changes made by other processes.
func (s *Store) Subscribe(fn func(credstore.Change)) (credstore.Subscription, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, common.ErrStoreClosed
	}

	s.watchOnce.Do(func() {
		s.watchErr = s.startWatcher()
	})
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	return s.subs.Add(fn), nil
}

// startWatcher watches the parent directory, since the file itself is
// replaced by rename on every write and may not exist yet.
func (s *Store) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watcher = w
	s.stopWatch = cancel
	s.watchDone = make(chan struct{})

	go s.processEvents(ctx)
	return nil
}

func (s *Store) processEvents(ctx context.Context) {
	defer close(s.watchDone)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.reconcile(ctx)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn(ctx, "credential file watcher error", "path", s.path, "error", err)
		}
	}
}

// reconcile re-reads the slot and publishes it when it differs from what
// this process last observed or wrote.
func (s *Store) reconcile(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	st := s.load(ctx).state(s.key)
	if st == s.lastSeen {
		s.mu.Unlock()
		return
	}
	s.lastSeen = st
	s.mu.Unlock()

	if st.present && st.origin == s.origin {
		return
	}

	s.subs.Publish(credstore.Change{Key: s.key, Token: st.value, Present: st.present})
}

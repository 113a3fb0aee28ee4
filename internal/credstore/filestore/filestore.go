// Package filestore keeps the credential slot in a JSON file shared by every
// process of the user and reports other processes' changes via fsnotify.
package filestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
	"github.com/dmitrijs2005/sessionkeeper/internal/filex"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	// defaultFileLockTimeout is how long we will wait trying to acquire the file lock before timing out.
	defaultFileLockTimeout = 10 * time.Second

	// defaultFileLockRetryInterval is how often we will poll while waiting for the file lock to become available.
	defaultFileLockRetryInterval = 10 * time.Millisecond
)

// Store is a credstore.Backend backed by one file.
type Store struct {
	path   string
	key    string
	origin string
	logger logging.Logger
	now    func() time.Time

	trylockFunc func(ctx context.Context) error
	unlockFunc  func() error

	// mu serializes this process's mutations with its own change detection,
	// so a watcher event caused by our own write is compared against the
	// state we just produced and dropped.
	mu       sync.Mutex
	lastSeen slotState
	closed   bool

	subs      credstore.Fanout
	watchOnce sync.Once
	watchErr  error
	watcher   *fsnotify.Watcher
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

var _ credstore.Backend = (*Store)(nil)

type Opt func(*Store)

// WithLogger sets the logger used for recoverable file problems.
func WithLogger(l logging.Logger) Opt {
	return func(s *Store) {
		s.logger = l
	}
}

// New opens the store at path for key, creating the parent directory.
func New(path, key string, opts ...Opt) (*Store, error) {
	if key == "" {
		key = common.DefaultCredentialKey
	}

	absPath, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, fmt.Errorf("could not prepare credential file: %w", err)
	}

	lock := flock.New(absPath + ".lock")
	s := &Store{
		path:   absPath,
		key:    key,
		origin: uuid.NewString(),
		logger: logging.Nop(),
		now:    time.Now,
		trylockFunc: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, defaultFileLockTimeout)
			defer cancel()
			_, err := lock.TryLockContext(ctx, defaultFileLockRetryInterval)
			return err
		},
		unlockFunc: lock.Unlock,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.lastSeen = s.load(context.Background()).state(key)
	return s, nil
}

func (s *Store) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", common.ErrStoreClosed
	}

	st := s.load(ctx).state(s.key)
	if !st.present {
		return "", common.ErrCredentialAbsent
	}
	return st.value, nil
}

func (s *Store) Write(ctx context.Context, token string) error {
	return s.mutate(ctx, func(doc *document) bool {
		if e, ok := doc.Entries[s.key]; ok && e.Value == token {
			return false
		}
		doc.Entries[s.key] = entry{Value: token, Origin: s.origin, UpdatedAt: s.now().UTC()}
		return true
	})
}

func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(doc *document) bool {
		if _, ok := doc.Entries[s.key]; !ok {
			return false
		}
		delete(doc.Entries, s.key)
		return true
	})
}

// mutate locks the file, applies fn to the current document and saves it
// when fn reports a change.
func (s *Store) mutate(ctx context.Context, fn func(*document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrStoreClosed
	}

	if err := s.trylockFunc(ctx); err != nil {
		return fmt.Errorf("could not lock credential file: %w", err)
	}
	defer func() {
		if err := s.unlockFunc(); err != nil {
			s.logger.Warn(ctx, "could not unlock credential file", "path", s.path, "error", err)
		}
	}()

	doc := s.load(ctx)
	if !fn(doc) {
		s.lastSeen = doc.state(s.key)
		return nil
	}

	if err := doc.writeTo(s.path); err != nil {
		return fmt.Errorf("failed to write credential[%s]: %w", s.key, err)
	}
	s.lastSeen = doc.state(s.key)
	return nil
}

// load reads the document, falling back to an empty one when the file is
// unreadable or was written by an unknown version.
func (s *Store) load(ctx context.Context) *document {
	doc, err := readDocument(s.path)
	if err != nil {
		s.logger.Warn(ctx, "failed to read credential file, treating as empty", "path", s.path, "error", err)
		return emptyDocument()
	}
	return doc
}

// Close stops the watcher and drops every subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Wait for a concurrent first Subscribe and keep later ones from starting a watcher.
	s.watchOnce.Do(func() { s.watchErr = common.ErrStoreClosed })

	var err error
	if s.watcher != nil {
		s.stopWatch()
		err = s.watcher.Close()
		<-s.watchDone
	}
	s.subs.Reset()
	return err
}

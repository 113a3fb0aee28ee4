// Package sqlitestore keeps the credential slot in a SQLite database shared
// by every process of the user.
//
// Each Store pins a single connection. SQLite's PRAGMA data_version on that
// connection only moves when some other connection commits, which is
// exactly the "changed by another context" signal the synchronizer needs.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore/sqlitestore/migrations"
	"github.com/dmitrijs2005/sessionkeeper/internal/filex"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"k8s.io/utils/clock"

	_ "modernc.org/sqlite"
)

const defaultPollInterval = time.Second

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Store is a credstore.Backend backed by SQLite.
type Store struct {
	db     *sql.DB
	repo   *repository
	key    string
	origin string
	logger logging.Logger
	clock  clock.WithTicker
	poll   time.Duration

	mu          sync.Mutex
	lastSeen    slotState
	lastVersion int64
	closed      bool

	subs      credstore.Fanout
	watchOnce sync.Once
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

var _ credstore.Backend = (*Store)(nil)

type slotState struct {
	present   bool
	value     string
	origin    string
	updatedAt int64
}

type Opt func(*Store)

func WithLogger(l logging.Logger) Opt {
	return func(s *Store) {
		s.logger = l
	}
}

// WithPollInterval sets how often data_version is checked once somebody
// subscribed.
func WithPollInterval(d time.Duration) Opt {
	return func(s *Store) {
		if d > 0 {
			s.poll = d
		}
	}
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path, key string, opts ...Opt) (*Store, error) {
	if path != ":memory:" {
		abs, err := filex.EnsureParentDir(path)
		if err != nil {
			return nil, fmt.Errorf("could not prepare credential database: %w", err)
		}
		path = abs
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	// One pinned connection: data_version is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate credential database: %w", err)
	}

	s, err := newStore(ctx, db, key, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, db *sql.DB, key string, opts ...Opt) (*Store, error) {
	if key == "" {
		key = common.DefaultCredentialKey
	}
	s := &Store{
		db:     db,
		repo:   &repository{db: db},
		key:    key,
		origin: uuid.NewString(),
		logger: logging.Nop(),
		clock:  clock.RealClock{},
		poll:   defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	v, err := s.repo.dataVersion(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.lastVersion, s.lastSeen = v, st
	return s, nil
}

func (s *Store) load(ctx context.Context) (slotState, error) {
	r, err := s.repo.get(ctx, s.key)
	if err != nil {
		return slotState{}, err
	}
	if r == nil {
		return slotState{}, nil
	}
	return slotState{present: true, value: r.Value, origin: r.Origin, updatedAt: r.UpdatedAt}, nil
}

func (s *Store) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", common.ErrStoreClosed
	}

	st, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if !st.present {
		return "", common.ErrCredentialAbsent
	}
	return st.value, nil
}

func (s *Store) Write(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrStoreClosed
	}

	// An equal value is left untouched so other connections see no change.
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	if st.present && st.value == token {
		s.lastSeen = st
		return nil
	}

	r := row{Value: token, Origin: s.origin, UpdatedAt: s.clock.Now().UnixNano()}
	if err := s.repo.set(ctx, s.key, r); err != nil {
		return err
	}
	s.lastSeen = slotState{present: true, value: r.Value, origin: r.Origin, updatedAt: r.UpdatedAt}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrStoreClosed
	}

	if _, err := s.repo.delete(ctx, s.key); err != nil {
		return err
	}
	s.lastSeen = slotState{}
	return nil
}

// Close stops polling, drops subscriptions and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.watchOnce.Do(func() {})
	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
	}
	s.subs.Reset()
	return s.db.Close()
}

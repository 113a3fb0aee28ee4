package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/notify"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/credential"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore/filestore"
	"github.com/dmitrijs2005/sessionkeeper/internal/credstore/sqlitestore"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/supervisor"
	"k8s.io/utils/clock"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	clock   clock.PassiveClock
	backend credstore.Backend
	sup     *supervisor.Supervisor
	session services.SessionService
	in      io.Reader
	out     io.Writer
}

// lockedWriter serializes output from the REPL and the supervisor's loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// NewApp opens the configured credential store and builds the supervisor
// and session service on top of it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	backend, err := openBackend(ctx, c, logger)
	if err != nil {
		logger.Error(ctx, "error opening credential store", "backend", c.StoreBackend, "error", err)
		return nil, err
	}
	return newApp(c, logger, backend, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, logger logging.Logger, backend credstore.Backend, in io.Reader, out io.Writer) *App {
	w := &lockedWriter{w: out}
	clk := clock.RealClock{}
	decoder := credential.NewJWTDecoder()

	sup := supervisor.New(
		backend,
		backend,
		decoder,
		notify.NewBrowserNavigator(c.LoginURL, c.OpenBrowser, w),
		notify.NewTerminalNotifier(w),
		logger,
		supervisor.WithRedirectDelay(c.RedirectDelay),
	)

	return &App{
		config:  c,
		logger:  logger,
		clock:   clk,
		backend: backend,
		sup:     sup,
		session: services.NewSessionService(backend, sup, decoder, clk, []byte(c.SigningKey)),
		in:      in,
		out:     w,
	}
}

func openBackend(ctx context.Context, c *config.Config, logger logging.Logger) (credstore.Backend, error) {
	var (
		backend credstore.Backend
		err     error
	)
	switch c.StoreBackend {
	case config.BackendFile:
		backend, err = filestore.New(c.StorePath, c.StoreKey, filestore.WithLogger(logger))
	case config.BackendSQLite:
		backend, err = sqlitestore.Open(ctx, c.StorePath, c.StoreKey,
			sqlitestore.WithLogger(logger),
			sqlitestore.WithPollInterval(c.PollInterval),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if err != nil {
		return nil, err
	}

	if c.StoreSecret != "" {
		backend = credstore.NewSealed(backend, credstore.SealKey(c.StoreSecret, c.StoreKey))
	}
	return backend, nil
}

// Run starts the supervisor, runs the REPL until the user exits or ctx is
// done, and releases the supervisor and the store.
func (a *App) Run(ctx context.Context) error {
	ctx = logging.ContextWith(ctx, "backend", a.config.StoreBackend, "pid", os.Getpid())
	defer a.close(ctx)

	if err := a.sup.Start(ctx); err != nil {
		a.logger.Error(ctx, "error starting session supervisor", "error", err)
		return err
	}

	fmt.Fprintln(a.out, "Welcome to SessionKeeper CLI (type 'help' for commands)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.in))
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func (a *App) close(ctx context.Context) {
	if err := a.sup.Close(); err != nil {
		a.logger.Error(ctx, "error stopping session supervisor", "error", err)
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error(ctx, "error closing credential store", "error", err)
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/client"
	"github.com/dmitrijs2005/fediauth/internal/client/config"
	"github.com/dmitrijs2005/fediauth/internal/client/services"
	"github.com/dmitrijs2005/fediauth/internal/client/signin"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/filex"
	"github.com/dmitrijs2005/fediauth/internal/logging"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeUnknown Mode = ""
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	auth    services.AuthService
	session *signin.Session
	log     logging.Logger
	out     io.Writer
	in      io.Reader
	closeDB func() error

	mu   sync.Mutex
	mode Mode
}

// NewApp opens the store, applies the passphrase and builds the API client
// from cfg.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	dsn := cfg.DatabaseDSN
	if cfg.StoreDriver == config.DriverSQLite && dsn == "" {
		if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
			return nil, err
		}
		dsn = client.SQLiteDSN(cfg.SQLitePath())
	}

	db, err := client.InitDatabase(ctx, cfg.StoreDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api := client.NewHTTPClient(
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RequestsPerSecond),
		client.WithApp(cfg.ClientName, cfg.Website, cfg.Scopes),
		client.WithLogger(log),
	)

	auth, err := services.NewAuthService(api, db, cfg.StoreDriver, services.WithLogger(log))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.StorePassphrase != "" {
		pass := []byte(cfg.StorePassphrase)
		err := auth.Unlock(ctx, pass)
		common.WipeByteArray(pass)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unlock store: %w", err)
		}
	}

	a := newApp(cfg, auth, log, os.Stdout, os.Stdin)
	a.closeDB = db.Close
	return a, nil
}

func newApp(cfg *config.Config, auth services.AuthService, log logging.Logger, out io.Writer, in io.Reader) *App {
	a := &App{config: cfg, auth: auth, log: log, out: &lockedWriter{w: out}, in: in}
	a.session = signin.NewSession(auth,
		signin.WithSessionLogger(log),
		signin.WithSessionDismissHook(func() { fmt.Fprintln(a.out, "PIN accepted, signing in...") }),
	)
	return a
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "instance reachability changed", "mode", string(mode))
	}
}

// Run starts the background watchers and blocks in the REPL until the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.StartOnlineStatusWatcher(gctx, a.config.OnlineCheckInterval)
		return nil
	})
	g.Go(func() error {
		a.printEvents(gctx)
		return nil
	})

	fmt.Fprintln(a.out, "Welcome to fediauth CLI (type 'help' for commands)")
	runREPL(gctx, a, a.getStatus, bufio.NewScanner(a.in))

	cancel()
	return g.Wait()
}

// Close ends the sign-in session and releases the client and the store.
func (a *App) Close(ctx context.Context) {
	a.session.Close()
	if err := a.auth.Close(ctx); err != nil {
		a.log.Warn(ctx, "close client", "error", err)
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.log.Warn(ctx, "close store", "error", err)
		}
	}
}

// StartOnlineStatusWatcher pings the selected instance every interval until
// ctx is done. Without a valid server nothing is probed.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	st := a.session.Readiness()
	if !st.Valid {
		a.setMode(ModeUnknown)
		return
	}

	timeout := a.config.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	err := a.auth.Ping(pctx, st.Domain.String())
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

func (a *App) getStatus() string {
	s := ""
	if st := a.session.Readiness(); st.Valid {
		s = st.Domain.String()
	}
	if m := a.Mode(); m != ModeUnknown {
		if s != "" {
			s += " "
		}
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// lockedWriter serializes writes from the REPL and the event printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ABOUTME: Composition root wiring config, persistence adapters, entity stores, identity, and live sync
// ABOUTME: Exactly one backend is built per process, chosen from config at startup
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harperreed/clientbook/auth"
	"github.com/harperreed/clientbook/charm"
	"github.com/harperreed/clientbook/config"
	"github.com/harperreed/clientbook/db"
	"github.com/harperreed/clientbook/db/postgres"
	"github.com/harperreed/clientbook/docstore"
	"github.com/harperreed/clientbook/livesync"
	"github.com/harperreed/clientbook/local"
	"github.com/harperreed/clientbook/remote"
	"github.com/harperreed/clientbook/store"
)

// ErrLocalBackend is returned by account operations on the local backend.
var ErrLocalBackend = errors.New("accounts are only available with the remote backend")

// App holds the process-wide stores.
type App struct {
	Backend string
	Logger  *log.Logger

	Clients       *store.ClientStore
	Opportunities *store.OpportunityStore
	Interactions  *store.InteractionStore
	Tasks         *store.TaskStore

	// Charm is set for the local backend.
	Charm *charm.Client
	// Auth, Sync and Docs are set for the remote backend.
	Auth *auth.Service
	Sync *livesync.Manager
	Docs docstore.Service

	sessionPath string
	closers     []func() error
}

// Open builds the app for cfg.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = cfg.NewLogger()
	}
	switch cfg.Backend {
	case config.BackendLocal:
		kv, err := charm.Open(cfg.Charm, logger)
		if err != nil {
			return nil, err
		}
		a := NewLocal(kv, logger, store.Options{Logger: logger})
		a.closers = append(a.closers, kv.Close)
		return a, nil

	case config.BackendRemote:
		docs, err := openDocs(ctx, cfg.Remote, logger)
		if err != nil {
			return nil, err
		}
		changed, err := cfg.EnsureSecrets()
		if err != nil {
			_ = docs.Close()
			return nil, err
		}
		if changed {
			if err := cfg.Save(config.Path()); err != nil {
				logger.Warn("could not save generated secrets", "err", err)
			}
		}
		a := NewRemote(docs, cfg.JWTSecret, logger, store.Options{Logger: logger})
		a.sessionPath = config.SessionPath()
		a.closers = append(a.closers, docs.Close)
		return a, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
}

func openDocs(ctx context.Context, rc config.RemoteConfig, logger *log.Logger) (docstore.Service, error) {
	switch rc.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{DSN: rc.DSN, MaxConns: rc.MaxConns})
		if err != nil {
			return nil, err
		}
		if err := postgres.InitSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.New(pool, logger), nil
	default:
		return db.Open(rc.DSN, logger)
	}
}

func orDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}

func newStores(a *App, c store.ClientAdapter, o store.OpportunityAdapter, i store.InteractionAdapter, t store.TaskAdapter, opts store.Options) {
	a.Clients = store.NewClientStore(c, opts)
	a.Opportunities = store.NewOpportunityStore(o, opts)
	a.Interactions = store.NewInteractionStore(i, opts)
	a.Tasks = store.NewTaskStore(t, opts)
}

// NewLocal builds the app on a KV store. A *charm.Client also backs the
// sync commands.
func NewLocal(kv local.KV, logger *log.Logger, opts store.Options) *App {
	logger = orDefault(logger)
	a := &App{Backend: config.BackendLocal, Logger: logger}
	if c, ok := kv.(*charm.Client); ok {
		a.Charm = c
	}
	newStores(a, local.Clients(kv), local.Opportunities(kv), local.Interactions(kv), local.Tasks(kv), opts)
	return a
}

// NewRemote builds the app on a document store, with live sync following
// the session.
func NewRemote(docs docstore.Service, jwtSecret string, logger *log.Logger, opts store.Options) *App {
	logger = orDefault(logger)
	sess := auth.NewService(docs, jwtSecret, nil, logger)
	a := &App{Backend: config.BackendRemote, Logger: logger, Auth: sess, Docs: docs}
	newStores(a,
		remote.NewClients(docs, sess, logger),
		remote.NewOpportunities(docs, sess, logger),
		remote.NewInteractions(docs, sess, logger),
		remote.NewTasks(docs, sess, logger),
		opts)
	a.Sync = livesync.New(logger, a.Clients, a.Opportunities, a.Interactions, a.Tasks)
	return a
}

// Load restores the saved session on the remote backend and fetches every
// store. Without a session the remote stores stay empty.
func (a *App) Load(ctx context.Context) error {
	if a.Auth != nil {
		if _, ok := a.Auth.CurrentUser(); !ok {
			if err := a.restore(ctx); err != nil {
				a.Logger.Debug("no saved session", "err", err)
				return nil
			}
		}
	}
	return a.fetchAll(ctx)
}

func (a *App) fetchAll(ctx context.Context) error {
	for _, fetch := range []func(context.Context) error{
		a.Clients.Fetch, a.Opportunities.Fetch, a.Interactions.Fetch, a.Tasks.Fetch,
	} {
		if err := fetch(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) restore(ctx context.Context) error {
	if a.sessionPath == "" {
		return auth.ErrInvalidToken
	}
	token, err := auth.LoadToken(a.sessionPath)
	if err != nil {
		return err
	}
	if token == "" {
		return auth.ErrInvalidToken
	}
	if _, err := a.Auth.Restore(ctx, token); err != nil {
		_ = auth.ClearToken(a.sessionPath)
		return err
	}
	return nil
}

// SetSessionPath changes where the session token is saved.
func (a *App) SetSessionPath(path string) {
	a.sessionPath = path
}

// Live opens subscriptions for every store until the returned func runs or
// the user signs out. Local apps return a no-op.
func (a *App) Live(ctx context.Context) (stop func()) {
	if a.Sync == nil {
		return func() {}
	}
	follow := a.Sync.Follow(ctx)
	cancel := a.Auth.OnChange(func(u auth.User, in bool) { follow(u.ID, in) })
	a.Sync.Resume(ctx, a.Auth)
	return func() {
		cancel()
		a.Sync.Stop()
	}
}

func (a *App) saveSession() {
	if a.sessionPath == "" {
		return
	}
	if err := auth.SaveToken(a.sessionPath, a.Auth.Token()); err != nil {
		a.Logger.Warn("could not save session", "err", err)
	}
}

// Register creates an account, signs in, saves the session, and loads
// the new user's (empty) stores.
func (a *App) Register(ctx context.Context, email, password, name string) (auth.User, error) {
	if a.Auth == nil {
		return auth.User{}, ErrLocalBackend
	}
	u, err := a.Auth.Register(ctx, email, password, name)
	if err != nil {
		return auth.User{}, err
	}
	a.saveSession()
	return u, a.fetchAll(ctx)
}

// Login signs in, saves the session, and loads the user's stores.
func (a *App) Login(ctx context.Context, email, password string) (auth.User, error) {
	if a.Auth == nil {
		return auth.User{}, ErrLocalBackend
	}
	u, err := a.Auth.Login(ctx, email, password)
	if err != nil {
		return auth.User{}, err
	}
	a.saveSession()
	return u, a.fetchAll(ctx)
}

// Logout signs out, drops the signed-out user's records from memory, and
// forgets the saved session.
func (a *App) Logout() error {
	if a.Auth == nil {
		return ErrLocalBackend
	}
	a.Auth.Logout()
	a.Clients.Clear()
	a.Opportunities.Clear()
	a.Interactions.Clear()
	a.Tasks.Clear()
	if a.sessionPath == "" {
		return nil
	}
	return auth.ClearToken(a.sessionPath)
}

// Close releases the backend.
func (a *App) Close() error {
	if a.Sync != nil {
		a.Sync.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

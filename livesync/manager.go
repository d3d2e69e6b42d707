// ABOUTME: Opens live-sync subscriptions for every entity store while a user is signed in
// ABOUTME: Tears them down on logout or Stop so no watch goroutine or listener outlives the session
package livesync

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Subscriber is an entity store with a live feed.
type Subscriber interface {
	Subscribe(ctx context.Context) (unsubscribe func())
	Fetch(ctx context.Context) error
}

// Session reports the signed-in user; *auth.Service satisfies it.
type Session interface {
	UserID() (string, bool)
}

// Manager owns the subscriptions of a set of stores.
type Manager struct {
	stores []Subscriber
	logger *log.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()
	user   string
}

func New(logger *log.Logger, stores ...Subscriber) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{stores: stores, logger: logger.WithPrefix("livesync")}
}

// Start fetches every store and opens its subscription for user. Calling
// Start for the user already being synced does nothing; a different user
// replaces the running subscriptions.
func (m *Manager) Start(ctx context.Context, user string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil && m.user == user {
		return
	}
	m.stopLocked()

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.user = user
	for _, s := range m.stores {
		if err := s.Fetch(m.ctx); err != nil {
			m.logger.Warn("initial fetch failed", "err", err)
		}
		m.unsubs = append(m.unsubs, s.Subscribe(m.ctx))
	}
	m.logger.Debug("subscriptions open", "user", user, "stores", len(m.stores))
}

// Stop closes every subscription and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.cancel()
	m.unsubs = nil
	m.cancel = nil
	m.ctx = nil
	m.logger.Debug("subscriptions closed", "user", m.user)
	m.user = ""
}

// Active reports whether subscriptions are open.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Follow returns a listener that starts the manager on sign-in and stops
// it on sign-out.
func (m *Manager) Follow(ctx context.Context) func(userID string, signedIn bool) {
	return func(userID string, signedIn bool) {
		if signedIn {
			m.Start(ctx, userID)
			return
		}
		m.Stop()
	}
}

// Resume starts syncing when sess already has a user.
func (m *Manager) Resume(ctx context.Context, sess Session) bool {
	uid, ok := sess.UserID()
	if !ok {
		return false
	}
	m.Start(ctx, uid)
	return true
}

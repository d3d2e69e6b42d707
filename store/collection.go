// ABOUTME: Generic in-memory entity collection shared by the four domain stores
// ABOUTME: CRUD through a pluggable persistence adapter, status tracking, watchers, and live feeds
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Update, Delete, and ToggleCompletion for an unknown id.
	ErrNotFound = errors.New("record not found")

	// ErrNotDurable marks a local write that failed after the in-memory
	// change was applied. The change stays in memory.
	ErrNotDurable = errors.New("change kept in memory but not persisted")

	// ErrUnauthenticated is returned by remote adapters when no user is logged in.
	ErrUnauthenticated = errors.New("user not authenticated")
)

// Adapter persists one domain's records.
type Adapter[T any, P any] interface {
	Load(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) error
	// Update receives the merged record and the patch that produced it, so
	// document backends can write only the changed fields.
	Update(ctx context.Context, next T, patch P) error
	Delete(ctx context.Context, id string) error
}

// Feed is implemented by adapters with a push channel. Every value sent is
// the complete collection. stop closes the channel.
type Feed[T any] interface {
	Feed(ctx context.Context) (snapshots <-chan []T, stop func(), err error)
}

// Status is the loading/error flag shown by screens.
type Status struct {
	Loading bool
	Err     string
}

// Options configures a store. The zero value is usable.
type Options struct {
	Now    func() time.Time
	NewID  func() string
	Logger *log.Logger
}

func (o Options) withDefaults(name string) Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	o.Logger = o.Logger.WithPrefix(name)
	return o
}

// behavior holds the per-entity functions the generic collection needs.
type behavior[T any, P any] struct {
	id       func(T) string
	apply    func(*T, P)
	validate func(P) error
	// touch refreshes updatedAt; nil for entities without one.
	touch func(prev T, next *T, now int64)
}

// Collection is the authoritative in-memory snapshot of one domain.
type Collection[T any, P any] struct {
	adapter Adapter[T, P]
	b       behavior[T, P]
	opts    Options

	mu     sync.RWMutex
	items  []T
	status Status

	watchMu   sync.Mutex
	watchers  map[int]func([]T)
	nextWatch int
}

func newCollection[T any, P any](name string, a Adapter[T, P], b behavior[T, P], opts Options) *Collection[T, P] {
	return &Collection[T, P]{
		adapter:  a,
		b:        b,
		opts:     opts.withDefaults(name),
		items:    []T{},
		watchers: make(map[int]func([]T)),
	}
}

func (c *Collection[T, P]) now() int64 {
	return c.opts.Now().UnixMilli()
}

// All returns a snapshot copy of the collection.
func (c *Collection[T, P]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of records.
func (c *Collection[T, P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the record with id.
func (c *Collection[T, P]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Status returns the loading/error flag.
func (c *Collection[T, P]) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Collection[T, P]) indexLocked(id string) int {
	for i := range c.items {
		if c.b.id(c.items[i]) == id {
			return i
		}
	}
	return -1
}

// filter returns the records matching keep, in collection order.
func (c *Collection[T, P]) filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (c *Collection[T, P]) begin() {
	c.mu.Lock()
	c.status = Status{Loading: true}
	c.mu.Unlock()
}

// settle records the outcome of an adapter call. A non-nil err that is not
// ErrNotDurable leaves the collection untouched.
func (c *Collection[T, P]) settle(op string, err error, mutate func()) error {
	c.mu.Lock()
	c.status.Loading = false
	if err != nil {
		c.status.Err = err.Error()
		c.opts.Logger.Error(op+" failed", "err", err)
	} else {
		c.status.Err = ""
	}
	changed := false
	if err == nil || errors.Is(err, ErrNotDurable) {
		mutate()
		changed = true
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return err
}

// Fetch reloads the collection from the adapter.
func (c *Collection[T, P]) Fetch(ctx context.Context) error {
	c.begin()
	items, err := c.adapter.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load: %w", err)
	}
	return c.settle("fetch", err, func() {
		if items == nil {
			items = []T{}
		}
		c.items = items
	})
}

func (c *Collection[T, P]) insert(ctx context.Context, rec T) (string, error) {
	id := c.b.id(rec)
	c.begin()
	err := c.adapter.Create(ctx, rec)
	if err != nil {
		err = fmt.Errorf("add %s: %w", id, err)
	}
	if err := c.settle("add", err, func() {
		// a live snapshot may have delivered rec before Create returned
		if j := c.indexLocked(id); j >= 0 {
			c.items[j] = rec
			return
		}
		c.items = append(c.items, rec)
	}); err != nil {
		if errors.Is(err, ErrNotDurable) {
			return id, err
		}
		return "", err
	}
	return id, nil
}

// Update merges patch into the record with id and persists it.
func (c *Collection[T, P]) Update(ctx context.Context, id string, patch P) error {
	if err := c.b.validate(patch); err != nil {
		return err
	}

	c.mu.RLock()
	i := c.indexLocked(id)
	var prev T
	if i >= 0 {
		prev = c.items[i]
	}
	c.mu.RUnlock()
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	next := prev
	c.b.apply(&next, patch)
	if c.b.touch != nil {
		c.b.touch(prev, &next, c.now())
	}

	c.begin()
	err := c.adapter.Update(ctx, next, patch)
	if err != nil {
		err = fmt.Errorf("update %s: %w", id, err)
	}
	return c.settle("update", err, func() {
		// the record may have moved or vanished while the write was in flight
		if j := c.indexLocked(id); j >= 0 {
			c.items[j] = next
		}
	})
}

// Delete removes the record with id.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	if _, ok := c.Get(id); !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	c.begin()
	err := c.adapter.Delete(ctx, id)
	if err != nil {
		err = fmt.Errorf("delete %s: %w", id, err)
	}
	return c.settle("delete", err, func() {
		if j := c.indexLocked(id); j >= 0 {
			c.items = append(c.items[:j], c.items[j+1:]...)
		}
	})
}

// Watch registers fn to receive a snapshot after every change to the
// collection. fn runs on the goroutine that made the change.
func (c *Collection[T, P]) Watch(fn func([]T)) (cancel func()) {
	c.watchMu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.watchMu.Unlock()

	return func() {
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
	}
}

func (c *Collection[T, P]) notify() {
	c.watchMu.Lock()
	fns := make([]func([]T), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := c.All()
	for _, fn := range fns {
		fn(snap)
	}
}

// Clear empties the collection without touching storage, for when the
// signed-in scope goes away.
func (c *Collection[T, P]) Clear() {
	c.replace(nil)
}

// replace swaps the whole collection for a pushed snapshot.
func (c *Collection[T, P]) replace(items []T) {
	if items == nil {
		items = []T{}
	}
	c.mu.Lock()
	c.items = items
	c.status = Status{}
	c.mu.Unlock()
	c.notify()
}

// Subscribe opens the adapter's live feed and applies every snapshot as a
// full replace. It is a no-op when the adapter has no feed or no user is
// authenticated. The returned func stops the feed and waits for the
// applying goroutine to exit; it is safe to call more than once.
func (c *Collection[T, P]) Subscribe(ctx context.Context) (unsubscribe func()) {
	feed, ok := c.adapter.(Feed[T])
	if !ok {
		return func() {}
	}

	snapshots, stop, err := feed.Feed(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			c.opts.Logger.Debug("skipping live sync, no user")
		} else {
			c.opts.Logger.Warn("live sync unavailable", "err", err)
			c.mu.Lock()
			c.status.Err = err.Error()
			c.mu.Unlock()
		}
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				c.replace(snap)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}
}

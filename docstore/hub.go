// ABOUTME: In-process change notification hub and the shared watch loop
// ABOUTME: Backends publish collection changes; watchers re-run their query on each signal
package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
)

// Hub fans out change signals per (namespace, collection). Signals coalesce:
// a slow watcher sees at most one pending signal.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

func hubKey(namespace, collection string) string {
	return namespace + "/" + collection
}

// Subscribe returns a signal channel for the collection and a func that releases it.
func (h *Hub) Subscribe(namespace, collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	key := hubKey(namespace, collection)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan struct{}]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], ch)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
		})
	}
}

// Publish signals every subscriber of the collection without blocking.
func (h *Hub) Publish(namespace, collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[hubKey(namespace, collection)] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions, for tests and status output.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.subs {
		n += len(s)
	}
	return n
}

// QueryFunc runs a query against a backend.
type QueryFunc func(ctx context.Context, q Query) ([]json.RawMessage, error)

// RunWatch delivers the result of q to fn immediately and after every hub
// signal for the collection. The first query runs synchronously so a bad
// query fails the call. Later query errors are logged and the previous
// snapshot stays in place. The returned cancel blocks until the loop exits,
// so it must not be called from inside fn.
func RunWatch(ctx context.Context, hub *Hub, q Query, run QueryFunc, fn func([]json.RawMessage), logger *log.Logger) (func(), error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	signals, release := hub.Subscribe(q.Namespace, q.Collection)
	docs, err := run(ctx, q)
	if err != nil {
		release()
		return nil, err
	}
	fn(docs)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer release()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				docs, err := run(ctx, q)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("watch query failed", "collection", q.Collection, "err", err)
					continue
				}
				if ctx.Err() != nil {
					return
				}
				fn(docs)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// ABOUTME: Local persistence adapter writing each domain as one JSON blob in Charm KV
// ABOUTME: The whole collection is rewritten under a namespaced key after every mutation
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/harperreed/clientbook/charm"
	"github.com/harperreed/clientbook/models"
	"github.com/harperreed/clientbook/store"
)

// Keys of the per-domain blobs.
const (
	KeyClients       = "clientbook:clients"
	KeyOpportunities = "clientbook:opportunities"
	KeyInteractions  = "clientbook:interactions"
	KeyTasks         = "clientbook:tasks"
)

// KV is the byte store behind the adapter; *charm.Client implements it.
// Get must return an error wrapping charm.ErrNotFound for a missing key.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Adapter keeps a copy of the collection it last wrote so every mutation
// rewrites the full blob.
type Adapter[T any, P any] struct {
	kv  KV
	key []byte
	id  func(T) string

	mu     sync.Mutex
	items  []T
	loaded bool
}

func New[T any, P any](kv KV, key string, id func(T) string) *Adapter[T, P] {
	return &Adapter[T, P]{kv: kv, key: []byte(key), id: id}
}

func Clients(kv KV) store.ClientAdapter {
	return New[models.Client, models.ClientPatch](kv, KeyClients, func(c models.Client) string { return c.ID })
}

func Opportunities(kv KV) store.OpportunityAdapter {
	return New[models.Opportunity, models.OpportunityPatch](kv, KeyOpportunities, func(o models.Opportunity) string { return o.ID })
}

func Interactions(kv KV) store.InteractionAdapter {
	return New[models.Interaction, models.InteractionPatch](kv, KeyInteractions, func(i models.Interaction) string { return i.ID })
}

func Tasks(kv KV) store.TaskAdapter {
	return New[models.Task, models.TaskPatch](kv, KeyTasks, func(t models.Task) string { return t.ID })
}

func (a *Adapter[T, P]) Load(ctx context.Context) ([]T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.readLocked(); err != nil {
		return nil, err
	}
	out := make([]T, len(a.items))
	copy(out, a.items)
	return out, nil
}

func (a *Adapter[T, P]) readLocked() error {
	data, err := a.kv.Get(a.key)
	if errors.Is(err, charm.ErrNotFound) {
		a.items = []T{}
		a.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", a.key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode %s: %w", a.key, err)
	}
	if items == nil {
		items = []T{}
	}
	a.items = items
	a.loaded = true
	return nil
}

// ensureLoaded reads the blob once so a first write never drops stored records.
func (a *Adapter[T, P]) ensureLoaded() error {
	if a.loaded {
		return nil
	}
	return a.readLocked()
}

func (a *Adapter[T, P]) writeLocked() error {
	data, err := json.Marshal(a.items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", store.ErrNotDurable, a.key, err)
	}
	if err := a.kv.Set(a.key, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", store.ErrNotDurable, a.key, err)
	}
	return nil
}

func (a *Adapter[T, P]) Create(ctx context.Context, rec T) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	a.items = append(a.items, rec)
	return a.writeLocked()
}

func (a *Adapter[T, P]) Update(ctx context.Context, next T, _ P) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	id := a.id(next)
	replaced := false
	for i := range a.items {
		if a.id(a.items[i]) == id {
			a.items[i] = next
			replaced = true
			break
		}
	}
	if !replaced {
		a.items = append(a.items, next)
	}
	return a.writeLocked()
}

func (a *Adapter[T, P]) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	for i := range a.items {
		if a.id(a.items[i]) == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			break
		}
	}
	return a.writeLocked()
}

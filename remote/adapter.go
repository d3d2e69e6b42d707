// ABOUTME: Remote persistence adapter mapping each record to a document in a per-user namespace
// ABOUTME: Field-level updates, ordered list queries, and a latest-wins live feed over docstore.Watch
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harperreed/clientbook/docstore"
	"github.com/harperreed/clientbook/store"
)

// ErrUnauthenticated is returned before any database call when no user is logged in.
var ErrUnauthenticated = store.ErrUnauthenticated

// Identity supplies the authenticated user's id.
type Identity interface {
	UserID() (string, bool)
}

// Collection names inside a user's namespace.
const (
	ClientsCollection       = "clients"
	OpportunitiesCollection = "opportunities"
	InteractionsCollection  = "interactions"
	TasksCollection         = "tasks"
)

// codec maps one domain onto documents.
type codec[T any, P any] struct {
	collection string
	id         func(T) string
	encode     func(T) any
	decode     func(json.RawMessage) (T, error)
	// fields lists the document fields a patch sets.
	fields  func(P) []string
	orderBy string
	desc    bool
}

// Adapter is a store.Adapter and store.Feed over a docstore.Service.
type Adapter[T any, P any] struct {
	svc    docstore.Service
	ident  Identity
	codec  codec[T, P]
	logger *log.Logger
}

func newAdapter[T any, P any](svc docstore.Service, ident Identity, c codec[T, P], logger *log.Logger) *Adapter[T, P] {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter[T, P]{svc: svc, ident: ident, codec: c, logger: logger.WithPrefix("remote/" + c.collection)}
}

func (a *Adapter[T, P]) namespace() (string, error) {
	if a.ident == nil {
		return "", ErrUnauthenticated
	}
	uid, ok := a.ident.UserID()
	if !ok || uid == "" {
		return "", ErrUnauthenticated
	}
	return uid, nil
}

func (a *Adapter[T, P]) ref(ns, id string) docstore.Ref {
	return docstore.Ref{Namespace: ns, Collection: a.codec.collection, ID: id}
}

func (a *Adapter[T, P]) query(ns string, where ...docstore.Filter) docstore.Query {
	return docstore.Query{
		Namespace:  ns,
		Collection: a.codec.collection,
		Where:      where,
		OrderBy:    a.codec.orderBy,
		Desc:       a.codec.desc,
	}
}

func (a *Adapter[T, P]) decodeAll(docs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := a.codec.decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// run executes q in the caller's namespace and decodes the result.
func (a *Adapter[T, P]) run(ctx context.Context, q docstore.Query) ([]T, error) {
	docs, err := a.svc.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return a.decodeAll(docs)
}

// list returns the records matching where, in the collection's list order.
func (a *Adapter[T, P]) list(ctx context.Context, where ...docstore.Filter) ([]T, error) {
	ns, err := a.namespace()
	if err != nil {
		return nil, err
	}
	return a.run(ctx, a.query(ns, where...))
}

func (a *Adapter[T, P]) Load(ctx context.Context) ([]T, error) {
	return a.list(ctx)
}

func (a *Adapter[T, P]) Create(ctx context.Context, rec T) error {
	ns, err := a.namespace()
	if err != nil {
		return err
	}
	return a.svc.Create(ctx, a.ref(ns, a.codec.id(rec)), a.codec.encode(rec))
}

// Update writes only the fields the patch sets, taken from the merged record.
func (a *Adapter[T, P]) Update(ctx context.Context, next T, patch P) error {
	ns, err := a.namespace()
	if err != nil {
		return err
	}
	fields, err := pick(a.codec.encode(next), a.codec.fields(patch))
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	err = a.svc.Update(ctx, a.ref(ns, a.codec.id(next)), fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return err
}

func (a *Adapter[T, P]) Delete(ctx context.Context, id string) error {
	ns, err := a.namespace()
	if err != nil {
		return err
	}
	err = a.svc.Delete(ctx, a.ref(ns, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return err
}

// Feed watches the user's collection with the list ordering. The channel
// holds at most one snapshot; a newer snapshot replaces an unread one.
func (a *Adapter[T, P]) Feed(ctx context.Context) (<-chan []T, func(), error) {
	ns, err := a.namespace()
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []T, 1)
	cancel, err := a.svc.Watch(ctx, a.query(ns), func(docs []json.RawMessage) {
		items, err := a.decodeAll(docs)
		if err != nil {
			a.logger.Warn("dropping undecodable snapshot", "err", err)
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- items
	})
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			cancel()
			close(ch)
		})
	}, nil
}

// pick encodes doc and keeps the named top-level fields. A named field the
// encoding omits maps to nil, which removes it from the stored document.
func pick(doc any, names []string) (map[string]any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	out := make(map[string]any, len(names))
	for _, n := range names {
		if v, ok := all[n]; ok {
			out[n] = v
		} else {
			out[n] = nil
		}
	}
	return out, nil
}

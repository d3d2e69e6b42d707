package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harperreed/clientbook/docstore"
)

var _ docstore.Service = (*DocumentStore)(nil)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DocumentStore is a docstore.Service on PostgreSQL. A dedicated LISTEN
// connection feeds change notifications from every client of the database
// into the local hub, so watches observe writes made by other devices.
type DocumentStore struct {
	pool   *pgxpool.Pool
	hub    *docstore.Hub
	logger *log.Logger

	stopListen context.CancelFunc
	listenDone chan struct{}
	listening  chan struct{}
	readyOnce  sync.Once
	closeOnce  sync.Once
}

// Open connects to dsn, ensures the schema, and starts the change listener.
func Open(ctx context.Context, dsn string, logger *log.Logger) (*DocumentStore, error) {
	pool, err := NewPool(ctx, PoolConfig{DSN: dsn})
	if err != nil {
		return nil, err
	}
	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool, logger), nil
}

// New wraps an initialized pool and starts listening for changes.
func New(pool *pgxpool.Pool, logger *log.Logger) *DocumentStore {
	if logger == nil {
		logger = log.Default()
	}
	listenCtx, stop := context.WithCancel(context.Background())
	s := &DocumentStore{
		pool:       pool,
		hub:        docstore.NewHub(),
		logger:     logger.WithPrefix("postgres"),
		stopListen: stop,
		listenDone: make(chan struct{}),
		listening:  make(chan struct{}),
	}
	go s.listen(listenCtx)
	return s
}

// Close stops the listener and closes the pool.
func (s *DocumentStore) Close() error {
	s.closeOnce.Do(func() {
		s.stopListen()
		<-s.listenDone
		s.pool.Close()
	})
	return nil
}

func (s *DocumentStore) Hub() *docstore.Hub {
	return s.hub
}

// WaitListening blocks until the change listener has issued LISTEN once.
func (s *DocumentStore) WaitListening(ctx context.Context) error {
	select {
	case <-s.listening:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DocumentStore) listen(ctx context.Context) {
	defer close(s.listenDone)
	backoff := time.Second
	for {
		err := s.listenConn(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("change listener stopped, reconnecting", "err", err, "in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *DocumentStore) listenConn(ctx context.Context) error {
	pc, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// The connection carries LISTEN state, so it never goes back to the pool.
	conn := pc.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Debug("listening for document changes", "channel", NotifyChannel)
	s.readyOnce.Do(func() { close(s.listening) })

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		i := strings.LastIndex(n.Payload, "/")
		if i < 0 {
			s.logger.Warn("malformed change payload", "payload", n.Payload)
			continue
		}
		s.hub.Publish(n.Payload[:i], n.Payload[i+1:])
	}
}

func refWhere(ref docstore.Ref) sq.Eq {
	return sq.Eq{"namespace": ref.Namespace, "collection": ref.Collection, "id": ref.ID}
}

func (s *DocumentStore) insert(ctx context.Context, ref docstore.Ref, doc any, suffix string) error {
	body, err := docstore.Marshal(doc)
	if err != nil {
		return err
	}

	ins := builder.Insert("documents").
		Columns("namespace", "collection", "id", "body").
		Values(ref.Namespace, ref.Collection, ref.ID, sq.Expr("?::jsonb", string(body)))
	if suffix != "" {
		ins = ins.Suffix(suffix)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return mapError(err, ref)
	}
	s.hub.Publish(ref.Namespace, ref.Collection)
	return nil
}

func (s *DocumentStore) Create(ctx context.Context, ref docstore.Ref, doc any) error {
	return s.insert(ctx, ref, doc, "")
}

func (s *DocumentStore) Set(ctx context.Context, ref docstore.Ref, doc any) error {
	return s.insert(ctx, ref, doc, "ON CONFLICT (namespace, collection, id) DO UPDATE SET body = excluded.body, updated_at = now()")
}

func (s *DocumentStore) Get(ctx context.Context, ref docstore.Ref) (json.RawMessage, error) {
	query, args, err := builder.Select("body::text").From("documents").Where(refWhere(ref)).ToSql()
	if err != nil {
		return nil, err
	}

	var body string
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		return nil, mapError(err, ref)
	}
	return json.RawMessage(body), nil
}

func (s *DocumentStore) Update(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	set := make(map[string]any, len(fields))
	removed := []string{}
	for k, v := range fields {
		if v == nil {
			removed = append(removed, k)
			continue
		}
		set[k] = v
	}
	sort.Strings(removed)

	patch, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode patch %s: %w", ref, err)
	}

	query, args, err := builder.Update("documents").
		Set("body", sq.Expr("(body || ?::jsonb) - ?::text[]", string(patch), removed)).
		Set("updated_at", sq.Expr("now()")).
		Where(refWhere(ref)).
		ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, ref, query, args)
}

func (s *DocumentStore) Delete(ctx context.Context, ref docstore.Ref) error {
	query, args, err := builder.Delete("documents").Where(refWhere(ref)).ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, ref, query, args)
}

func (s *DocumentStore) execOne(ctx context.Context, ref docstore.Ref, query string, args []any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, ref)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", ref, docstore.ErrNotFound)
	}
	s.hub.Publish(ref.Namespace, ref.Collection)
	return nil
}

func (s *DocumentStore) Query(ctx context.Context, q docstore.Query) ([]json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sel := builder.Select("body::text").From("documents").
		Where(sq.Eq{"namespace": q.Namespace, "collection": q.Collection})

	for _, f := range q.Where {
		v, err := docstore.Scalar(f.Value)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if f.Op != docstore.Eq {
				return nil, fmt.Errorf("%w: %s %s null", docstore.ErrInvalidQuery, f.Field, f.Op)
			}
			sel = sel.Where("(body->(?::text)) IS NULL", f.Field)
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		// jsonb orders strings, numbers, and booleans within their own type.
		op, _ := f.Op.SQL()
		sel = sel.Where(fmt.Sprintf("(body->(?::text)) %s ?::jsonb", op), f.Field, string(encoded))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		sel = sel.OrderBy(fmt.Sprintf("body->'%s' %s", q.OrderBy, dir), "id ASC")
	} else {
		sel = sel.OrderBy("id ASC")
	}
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", q.Namespace, q.Collection, err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", q.Namespace, q.Collection, err)
	}

	docs := make([]json.RawMessage, 0, len(bodies))
	for _, b := range bodies {
		docs = append(docs, json.RawMessage(b))
	}
	return docs, nil
}

func (s *DocumentStore) Watch(ctx context.Context, q docstore.Query, fn func([]json.RawMessage)) (func(), error) {
	return docstore.RunWatch(ctx, s.hub, q, s.Query, fn, s.logger)
}

// mapError converts pgx/pgconn errors to document store sentinels.
// Context errors pass through.
func mapError(err error, ref docstore.Ref) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", ref, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", ref, docstore.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", ref, docstore.ErrExists)
	}
	return fmt.Errorf("%s: %w", ref, err)
}

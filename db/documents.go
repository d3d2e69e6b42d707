// ABOUTME: SQLite implementation of the document store
// ABOUTME: JSON bodies queried with json_extract, merged with json_patch, watched through an in-process hub
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"

	"github.com/harperreed/clientbook/docstore"
)

var _ docstore.Service = (*DocumentStore)(nil)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DocumentStore keeps documents in a single SQLite table. Watches only see
// writes made through this process.
type DocumentStore struct {
	db     *sql.DB
	hub    *docstore.Hub
	logger *log.Logger
	now    func() time.Time
}

// NewDocumentStore wraps an open database. The schema must already exist.
func NewDocumentStore(db *sql.DB, logger *log.Logger) *DocumentStore {
	if logger == nil {
		logger = log.Default()
	}
	return &DocumentStore{
		db:     db,
		hub:    docstore.NewHub(),
		logger: logger.WithPrefix("sqlite"),
		now:    time.Now,
	}
}

// Open opens (creating if needed) the database at path and returns its document store.
func Open(path string, logger *log.Logger) (*DocumentStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewDocumentStore(db, logger), nil
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Hub exposes the change hub so tests can observe watcher lifecycles.
func (s *DocumentStore) Hub() *docstore.Hub {
	return s.hub
}

func refWhere(ref docstore.Ref) sq.Eq {
	return sq.Eq{"namespace": ref.Namespace, "collection": ref.Collection, "id": ref.ID}
}

func (s *DocumentStore) Create(ctx context.Context, ref docstore.Ref, doc any) error {
	body, err := docstore.Marshal(doc)
	if err != nil {
		return err
	}

	query, args, err := builder.Insert("documents").
		Columns("namespace", "collection", "id", "body", "updated_at").
		Values(ref.Namespace, ref.Collection, ref.ID, string(body), s.now().UnixMilli()).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(err, ref)
	}
	s.hub.Publish(ref.Namespace, ref.Collection)
	return nil
}

func (s *DocumentStore) Set(ctx context.Context, ref docstore.Ref, doc any) error {
	body, err := docstore.Marshal(doc)
	if err != nil {
		return err
	}

	query, args, err := builder.Insert("documents").
		Columns("namespace", "collection", "id", "body", "updated_at").
		Values(ref.Namespace, ref.Collection, ref.ID, string(body), s.now().UnixMilli()).
		Suffix("ON CONFLICT (namespace, collection, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(err, ref)
	}
	s.hub.Publish(ref.Namespace, ref.Collection)
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, ref docstore.Ref) (json.RawMessage, error) {
	query, args, err := builder.Select("body").From("documents").Where(refWhere(ref)).ToSql()
	if err != nil {
		return nil, err
	}

	var body string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&body); err != nil {
		return nil, mapError(err, ref)
	}
	return json.RawMessage(body), nil
}

func (s *DocumentStore) Update(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch %s: %w", ref, err)
	}

	query, args, err := builder.Update("documents").
		Set("body", sq.Expr("json_patch(body, ?)", string(patch))).
		Set("updated_at", s.now().UnixMilli()).
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

// execOne runs a statement that must touch exactly one document.
func (s *DocumentStore) execOne(ctx context.Context, ref docstore.Ref, query string, args []any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, ref)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref, docstore.ErrNotFound)
	}
	s.hub.Publish(ref.Namespace, ref.Collection)
	return nil
}

func (s *DocumentStore) Query(ctx context.Context, q docstore.Query) ([]json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sel := builder.Select("body").From("documents").
		Where(sq.Eq{"namespace": q.Namespace, "collection": q.Collection})

	for _, f := range q.Where {
		v, err := docstore.Scalar(f.Value)
		if err != nil {
			return nil, err
		}
		path := "$." + f.Field
		if v == nil {
			if f.Op != docstore.Eq {
				return nil, fmt.Errorf("%w: %s %s null", docstore.ErrInvalidQuery, f.Field, f.Op)
			}
			sel = sel.Where("json_extract(body, ?) IS NULL", path)
			continue
		}
		// json_extract yields 1/0 for JSON booleans.
		if b, ok := v.(bool); ok {
			if b {
				v = 1
			} else {
				v = 0
			}
		}
		op, _ := f.Op.SQL()
		sel = sel.Where(fmt.Sprintf("json_extract(body, ?) %s ?", op), path, v)
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		// Field names are validated, so inlining the path is safe.
		sel = sel.OrderBy(fmt.Sprintf("json_extract(body, '$.%s') %s", q.OrderBy, dir), "id ASC")
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

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", q.Namespace, q.Collection, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(body))
	}
	return docs, rows.Err()
}

func (s *DocumentStore) Watch(ctx context.Context, q docstore.Query, fn func([]json.RawMessage)) (func(), error) {
	return docstore.RunWatch(ctx, s.hub, q, s.Query, fn, s.logger)
}

// mapError converts sqlite errors to document store sentinels.
func mapError(err error, ref docstore.Ref) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", ref, docstore.ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w", ref, docstore.ErrExists)
		}
	}
	return fmt.Errorf("%s: %w", ref, err)
}

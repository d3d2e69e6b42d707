// ABOUTME: Document store contract shared by the SQLite and PostgreSQL backends
// ABOUTME: Namespaced JSON documents with filtered, ordered queries and change watches
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrExists       = errors.New("document already exists")
	ErrInvalidQuery = errors.New("invalid query")
)

// Ref addresses a single document.
type Ref struct {
	Namespace  string
	Collection string
	ID         string
}

func (r Ref) String() string {
	return r.Namespace + "/" + r.Collection + "/" + r.ID
}

// Op is a comparison operator for a Filter.
type Op string

const (
	Eq  Op = "=="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

// SQL returns the SQL spelling of the operator.
func (o Op) SQL() (string, bool) {
	switch o {
	case Eq:
		return "=", true
	case Lt, Lte, Gt, Gte:
		return string(o), true
	}
	return "", false
}

// Filter compares one top-level document field with a value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where is shorthand for building a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents of one collection.
type Query struct {
	Namespace  string
	Collection string
	Where      []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name is usable as a document field in a query.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// Validate checks that every field name and operator in q can be compiled to SQL.
func (q Query) Validate() error {
	if q.Namespace == "" || q.Collection == "" {
		return fmt.Errorf("%w: namespace and collection are required", ErrInvalidQuery)
	}
	for _, f := range q.Where {
		if !ValidField(f.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, f.Field)
		}
		if _, ok := f.Op.SQL(); !ok {
			return fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
	}
	if q.OrderBy != "" && !ValidField(q.OrderBy) {
		return fmt.Errorf("%w: order field %q", ErrInvalidQuery, q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// Service is a per-namespace JSON document database.
//
// Update merges the given top-level fields into the stored document; a nil
// value removes the field. Watch delivers the current result of q to fn and
// again after every change to the watched collection, until cancel is called
// or ctx is done.
type Service interface {
	Create(ctx context.Context, ref Ref, doc any) error
	Set(ctx context.Context, ref Ref, doc any) error
	Get(ctx context.Context, ref Ref) (json.RawMessage, error)
	Update(ctx context.Context, ref Ref, fields map[string]any) error
	Delete(ctx context.Context, ref Ref) error
	Query(ctx context.Context, q Query) ([]json.RawMessage, error)
	Watch(ctx context.Context, q Query, fn func([]json.RawMessage)) (cancel func(), err error)
	Close() error
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.New().String()
}

// Decode unmarshals every document of docs into a T.
func Decode[T any](docs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d, &v); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/docstore"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type taskDoc struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	DueDate   docstore.Timestamp  `json:"dueDate"`
	Completed bool                `json:"completed"`
	Value     int                 `json:"value,omitempty"`
	Extra     *docstore.Timestamp `json:"extra,omitempty"`
}

func ref(id string) docstore.Ref {
	return docstore.Ref{Namespace: "u1", Collection: "tasks", ID: id}
}

func TestDocumentCreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := taskDoc{ID: "t1", Title: "Call Ann", DueDate: docstore.FromMillis(1700000000123)}
	require.NoError(t, s.Create(ctx, ref("t1"), doc))

	raw, err := s.Get(ctx, ref("t1"))
	require.NoError(t, err)

	var got taskDoc
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Call Ann", got.Title)
	assert.Equal(t, int64(1700000000123), got.DueDate.Millis())

	err = s.Create(ctx, ref("t1"), doc)
	assert.ErrorIs(t, err, docstore.ErrExists)

	_, err = s.Get(ctx, ref("missing"))
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	// same id in another namespace is a different document
	other := docstore.Ref{Namespace: "u2", Collection: "tasks", ID: "t1"}
	require.NoError(t, s.Create(ctx, other, doc))
}

func TestDocumentSetUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, ref("t1"), taskDoc{ID: "t1", Title: "a"}))
	require.NoError(t, s.Set(ctx, ref("t1"), taskDoc{ID: "t1", Title: "b"}))

	raw, err := s.Get(ctx, ref("t1"))
	require.NoError(t, err)
	var got taskDoc
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "b", got.Title)
}

func TestDocumentUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	extra := docstore.FromMillis(5)
	require.NoError(t, s.Create(ctx, ref("t1"), taskDoc{ID: "t1", Title: "a", Value: 3, Extra: &extra}))

	require.NoError(t, s.Update(ctx, ref("t1"), map[string]any{
		"completed": true,
		"extra":     nil,
	}))

	raw, err := s.Get(ctx, ref("t1"))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "a", got["title"])
	assert.Equal(t, true, got["completed"])
	assert.Equal(t, float64(3), got["value"])
	assert.NotContains(t, got, "extra")

	err = s.Update(ctx, ref("missing"), map[string]any{"title": "x"})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDocumentDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, ref("t1"), taskDoc{ID: "t1"}))
	require.NoError(t, s.Delete(ctx, ref("t1")))

	_, err := s.Get(ctx, ref("t1"))
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ref("t1")), docstore.ErrNotFound)
}

func seedTasks(t *testing.T, s *DocumentStore) {
	t.Helper()
	ctx := context.Background()
	day := int64(24 * time.Hour / time.Millisecond)
	docs := []taskDoc{
		{ID: "a", Title: "past", DueDate: docstore.FromMillis(10 * day)},
		{ID: "b", Title: "soon", DueDate: docstore.FromMillis(21 * day)},
		{ID: "c", Title: "later", DueDate: docstore.FromMillis(40 * day)},
		{ID: "d", Title: "done", DueDate: docstore.FromMillis(22 * day), Completed: true},
	}
	for _, d := range docs {
		require.NoError(t, s.Create(ctx, ref(d.ID), d))
	}
}

func ids(t *testing.T, docs []json.RawMessage) []string {
	t.Helper()
	out, err := docstore.Decode[taskDoc](docs)
	require.NoError(t, err)
	var res []string
	for _, d := range out {
		res = append(res, d.ID)
	}
	return res
}

func TestDocumentQueryFiltersAndOrder(t *testing.T) {
	s := newTestStore(t)
	seedTasks(t, s)
	ctx := context.Background()
	day := int64(24 * time.Hour / time.Millisecond)
	now := 20 * day

	all, err := s.Query(ctx, docstore.Query{Namespace: "u1", Collection: "tasks", OrderBy: "dueDate"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids(t, all))

	desc, err := s.Query(ctx, docstore.Query{Namespace: "u1", Collection: "tasks", OrderBy: "dueDate", Desc: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(t, desc))

	upcoming, err := s.Query(ctx, docstore.Query{
		Namespace:  "u1",
		Collection: "tasks",
		Where: []docstore.Filter{
			docstore.Where("completed", docstore.Eq, false),
			docstore.Where("dueDate", docstore.Gte, docstore.FromMillis(now)),
			docstore.Where("dueDate", docstore.Lte, docstore.FromMillis(now+7*day)),
		},
		OrderBy: "dueDate",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(t, upcoming))

	overdue, err := s.Query(ctx, docstore.Query{
		Namespace:  "u1",
		Collection: "tasks",
		Where: []docstore.Filter{
			docstore.Where("completed", docstore.Eq, false),
			docstore.Where("dueDate", docstore.Lt, docstore.FromMillis(now)),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(t, overdue))

	done, err := s.Query(ctx, docstore.Query{
		Namespace:  "u1",
		Collection: "tasks",
		Where:      []docstore.Filter{docstore.Where("completed", docstore.Eq, true)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(t, done))

	empty, err := s.Query(ctx, docstore.Query{Namespace: "u2", Collection: "tasks"})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestDocumentQueryRejectsBadField(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Query(context.Background(), docstore.Query{
		Namespace:  "u1",
		Collection: "tasks",
		OrderBy:    "dueDate'); DROP TABLE documents; --",
	})
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestDocumentWatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snapshots := make(chan []json.RawMessage, 8)
	cancel, err := s.Watch(ctx, docstore.Query{Namespace: "u1", Collection: "tasks", OrderBy: "dueDate"}, func(docs []json.RawMessage) {
		snapshots <- docs
	})
	require.NoError(t, err)

	first := <-snapshots
	assert.Empty(t, first)

	require.NoError(t, s.Create(ctx, ref("t1"), taskDoc{ID: "t1", Title: "x"}))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case docs := <-snapshots:
			if len(docs) == 1 {
				cancel()
				assert.Equal(t, 0, s.Hub().Subscribers())
				return
			}
		case <-deadline:
			t.Fatal("watch did not deliver the created document")
		}
	}
}

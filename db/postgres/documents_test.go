package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/docstore"
)

// openTestStore connects to the database named by CLIENTBOOK_TEST_POSTGRES_DSN
// or skips the test.
func openTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	dsn := os.Getenv("CLIENTBOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLIENTBOOK_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.WaitListening(ctx))
	return s
}

type dealDoc struct {
	ID    string             `json:"id"`
	Stage string             `json:"stage"`
	Value int64              `json:"value"`
	Open  bool               `json:"open"`
	Close docstore.Timestamp `json:"expectedCloseDate"`
}

func TestPostgresCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ns := uuid.NewString()
	ref := docstore.Ref{Namespace: ns, Collection: "opportunities", ID: "o1"}

	require.NoError(t, s.Create(ctx, ref, dealDoc{ID: "o1", Stage: "lead", Value: 10, Open: true}))
	assert.ErrorIs(t, s.Create(ctx, ref, dealDoc{ID: "o1"}), docstore.ErrExists)

	require.NoError(t, s.Update(ctx, ref, map[string]any{"stage": "lost", "open": nil}))

	raw, err := s.Get(ctx, ref)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "lost", got["stage"])
	assert.NotContains(t, got, "open")

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ref), docstore.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, ref, map[string]any{"stage": "x"}), docstore.ErrNotFound)
}

func TestPostgresQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ns := uuid.NewString()

	for i, d := range []dealDoc{
		{ID: "a", Stage: "lead", Value: 100, Open: true, Close: docstore.FromMillis(3000)},
		{ID: "b", Stage: "lost", Value: 200, Close: docstore.FromMillis(1000)},
		{ID: "c", Stage: "lead", Value: 300, Open: true, Close: docstore.FromMillis(2000)},
	} {
		ref := docstore.Ref{Namespace: ns, Collection: "opportunities", ID: d.ID}
		require.NoError(t, s.Create(ctx, ref, d), "doc %d", i)
	}

	docs, err := s.Query(ctx, docstore.Query{
		Namespace:  ns,
		Collection: "opportunities",
		Where:      []docstore.Filter{docstore.Where("stage", docstore.Eq, "lead"), docstore.Where("open", docstore.Eq, true)},
		OrderBy:    "expectedCloseDate",
	})
	require.NoError(t, err)
	out, err := docstore.Decode[dealDoc](docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "a", out[1].ID)

	docs, err = s.Query(ctx, docstore.Query{
		Namespace:  ns,
		Collection: "opportunities",
		Where:      []docstore.Filter{docstore.Where("value", docstore.Gte, 200)},
		OrderBy:    "value",
		Desc:       true,
		Limit:      1,
	})
	require.NoError(t, err)
	out, err = docstore.Decode[dealDoc](docs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].ID)
}

func TestPostgresWatchSeesChanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ns := uuid.NewString()

	snapshots := make(chan int, 16)
	cancel, err := s.Watch(ctx, docstore.Query{Namespace: ns, Collection: "tasks"}, func(docs []json.RawMessage) {
		snapshots <- len(docs)
	})
	require.NoError(t, err)
	defer cancel()
	assert.Equal(t, 0, <-snapshots)

	// a second store on the same database stands in for another device
	other := openTestStore(t)
	require.NoError(t, other.Create(ctx, docstore.Ref{Namespace: ns, Collection: "tasks", ID: "t1"}, map[string]any{"id": "t1"}))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-snapshots:
			if n == 1 {
				return
			}
		case <-deadline:
			t.Fatal("watch did not observe a write from another connection")
		}
	}
}

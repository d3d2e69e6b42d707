package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/models"
)

// fakeAdapter records calls and fails on demand.
type fakeAdapter struct {
	mu      sync.Mutex
	items   []models.Client
	fail    error
	calls   int
	feed    chan []models.Client
	feedErr error
	stopped bool
}

func (f *fakeAdapter) Load(ctx context.Context) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]models.Client(nil), f.items...), nil
}

func (f *fakeAdapter) Create(ctx context.Context, rec models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

func (f *fakeAdapter) Update(ctx context.Context, next models.Client, _ models.ClientPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

func (f *fakeAdapter) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

type feedAdapter struct {
	*fakeAdapter
}

func (f feedAdapter) Feed(ctx context.Context) (<-chan []models.Client, func(), error) {
	if f.feedErr != nil {
		return nil, nil, f.feedErr
	}
	var once sync.Once
	return f.feed, func() {
		once.Do(func() {
			f.mu.Lock()
			f.stopped = true
			f.mu.Unlock()
			close(f.feed)
		})
	}, nil
}

func newFakeStore(a ClientAdapter) *ClientStore {
	n := 0
	return NewClientStore(a, Options{
		Now:   func() time.Time { return time.UnixMilli(1000) },
		NewID: func() string { n++; return fmt.Sprintf("c%d", n) },
	})
}

func TestRemoteFailureLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAdapter{}
	s := newFakeStore(fa)

	id, err := s.Add(ctx, models.ClientInput{FirstName: "Ann"})
	require.NoError(t, err)

	fa.fail = errors.New("network unreachable")

	_, err = s.Add(ctx, models.ClientInput{FirstName: "Bob"})
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Contains(t, s.Status().Err, "network unreachable")
	assert.False(t, s.Status().Loading)

	err = s.Update(ctx, id, models.ClientPatch{Company: models.String("Acme")})
	require.Error(t, err)
	got, _ := s.Get(id)
	assert.Empty(t, got.Company)

	require.Error(t, s.Delete(ctx, id))
	_, ok := s.Get(id)
	assert.True(t, ok)

	require.Error(t, s.Fetch(ctx))
	assert.Equal(t, 1, s.Len())

	// the next success clears the error
	fa.fail = nil
	require.NoError(t, s.Update(ctx, id, models.ClientPatch{Company: models.String("Acme")}))
	assert.Empty(t, s.Status().Err)
}

func TestNotDurableKeepsChange(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAdapter{fail: fmt.Errorf("%w: write blob: disk full", ErrNotDurable)}
	s := newFakeStore(fa)

	id, err := s.Add(ctx, models.ClientInput{FirstName: "Ann"})
	assert.ErrorIs(t, err, ErrNotDurable)
	require.NotEmpty(t, id)
	_, ok := s.Get(id)
	assert.True(t, ok)
	assert.Contains(t, s.Status().Err, "disk full")

	assert.ErrorIs(t, s.Update(ctx, id, models.ClientPatch{Notes: models.String("vip")}), ErrNotDurable)
	got, _ := s.Get(id)
	assert.Equal(t, "vip", got.Notes)

	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotDurable)
	assert.Zero(t, s.Len())
}

func TestMissingIDSkipsAdapter(t *testing.T) {
	fa := &fakeAdapter{}
	s := newFakeStore(fa)
	assert.ErrorIs(t, s.Update(context.Background(), "x", models.ClientPatch{}), ErrNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), "x"), ErrNotFound)
	assert.Zero(t, fa.calls)
}

func TestInvalidPatchSkipsAdapter(t *testing.T) {
	fa := &fakeAdapter{}
	s := newFakeStore(fa)
	id, err := s.Add(context.Background(), models.ClientInput{FirstName: "Ann"})
	require.NoError(t, err)

	bad := models.ClientStatus("vip")
	assert.ErrorIs(t, s.Update(context.Background(), id, models.ClientPatch{Status: &bad}), models.ErrInvalid)
	assert.Equal(t, 1, fa.calls)
}

func TestFetchReplacesCollection(t *testing.T) {
	fa := &fakeAdapter{items: []models.Client{{ID: "a"}, {ID: "b"}}}
	s := newFakeStore(fa)
	require.NoError(t, s.Fetch(context.Background()))
	assert.Equal(t, 2, s.Len())

	fa.items = nil
	require.NoError(t, s.Fetch(context.Background()))
	assert.NotNil(t, s.All())
	assert.Zero(t, s.Len())
}

func TestSubscribeAppliesFullReplace(t *testing.T) {
	fa := &fakeAdapter{feed: make(chan []models.Client)}
	s := newFakeStore(feedAdapter{fa})

	seen := make(chan int, 8)
	s.Watch(func(cs []models.Client) { seen <- len(cs) })

	unsubscribe := s.Subscribe(context.Background())
	fa.feed <- []models.Client{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 2, <-seen)
	fa.feed <- []models.Client{{ID: "c"}}
	assert.Equal(t, 1, <-seen)

	_, ok := s.Get("c")
	assert.True(t, ok)
	_, ok = s.Get("a")
	assert.False(t, ok)

	unsubscribe()
	unsubscribe()
	assert.True(t, fa.stopped)
}

func TestSubscribeFeedErrors(t *testing.T) {
	fa := &fakeAdapter{feedErr: fmt.Errorf("watch: %w", ErrUnauthenticated)}
	s := newFakeStore(feedAdapter{fa})
	s.Subscribe(context.Background())()
	assert.Empty(t, s.Status().Err)

	fa.feedErr = errors.New("connection refused")
	s.Subscribe(context.Background())()
	assert.Equal(t, "connection refused", s.Status().Err)
}

func TestSubscribeStopsWithContext(t *testing.T) {
	fa := &fakeAdapter{feed: make(chan []models.Client)}
	s := newFakeStore(feedAdapter{fa})

	ctx, cancel := context.WithCancel(context.Background())
	unsubscribe := s.Subscribe(ctx)
	cancel()
	// returns once the applying goroutine has exited
	unsubscribe()
	assert.True(t, fa.stopped)
}

// echoAdapter pushes the created record through the live feed before
// Create returns, the way a remote watch can beat the write ack.
type echoAdapter struct {
	*fakeAdapter
}

func (e echoAdapter) Create(ctx context.Context, rec models.Client) error {
	snap := []models.Client{rec}
	// the second send returns only after the first snapshot was applied
	e.feed <- snap
	e.feed <- snap
	return nil
}

func (e echoAdapter) Feed(ctx context.Context) (<-chan []models.Client, func(), error) {
	return feedAdapter{e.fakeAdapter}.Feed(ctx)
}

func TestAddWhileSubscribedKeepsOneCopy(t *testing.T) {
	fa := &fakeAdapter{feed: make(chan []models.Client)}
	s := newFakeStore(echoAdapter{fa})

	unsubscribe := s.Subscribe(context.Background())
	defer unsubscribe()

	id, err := s.Add(context.Background(), models.ClientInput{FirstName: "Ann"})
	require.NoError(t, err)

	count := 0
	for _, c := range s.All() {
		if c.ID == id {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, s.Len())
}

func TestClearEmptiesWithoutStorage(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAdapter{}
	s := newFakeStore(fa)
	_, err := s.Add(ctx, models.ClientInput{FirstName: "Ann"})
	require.NoError(t, err)

	seen := make(chan int, 1)
	s.Watch(func(cs []models.Client) { seen <- len(cs) })
	calls := fa.calls

	s.Clear()
	assert.Equal(t, 0, <-seen)
	assert.Zero(t, s.Len())
	assert.NotNil(t, s.All())
	assert.Equal(t, calls, fa.calls)
}

package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/auth"
	"github.com/harperreed/clientbook/charm"
	"github.com/harperreed/clientbook/db"
	"github.com/harperreed/clientbook/models"
	"github.com/harperreed/clientbook/store"
)

func TestLocalApp(t *testing.T) {
	ctx := context.Background()
	kv := charm.NewTestClient(t)

	a := NewLocal(kv, nil, store.Options{})
	assert.Same(t, kv, a.Charm)
	assert.Nil(t, a.Auth)
	require.NoError(t, a.Load(ctx))
	_, err := a.Clients.Add(ctx, models.ClientInput{FirstName: "Ann", Company: "Acme"})
	require.NoError(t, err)

	_, err = a.Login(ctx, "ann@acme.com", "secret1")
	assert.ErrorIs(t, err, ErrLocalBackend)
	a.Live(ctx)()

	again := NewLocal(kv, nil, store.Options{})
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, 1, again.Clients.Len())
}

func TestRemoteAppSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docs, err := db.Open(filepath.Join(dir, "docs.db"), nil)
	require.NoError(t, err)
	defer docs.Close()

	a := NewRemote(docs, "secret", nil, store.Options{})
	a.SetSessionPath(filepath.Join(dir, "session"))

	// no session: stores stay empty and writes are refused
	require.NoError(t, a.Load(ctx))
	_, err = a.Tasks.Add(ctx, models.TaskInput{Title: "x"})
	assert.ErrorIs(t, err, store.ErrUnauthenticated)

	stop := a.Live(ctx)
	defer stop()

	_, err = a.Register(ctx, "ann@acme.com", "secret1", "Ann")
	require.NoError(t, err)
	assert.True(t, a.Sync.Active())
	_, err = a.Clients.Add(ctx, models.ClientInput{FirstName: "Bob"})
	require.NoError(t, err)

	// a second process resumes the saved session
	b := NewRemote(docs, "secret", nil, store.Options{})
	b.SetSessionPath(filepath.Join(dir, "session"))
	require.NoError(t, b.Load(ctx))
	_, ok := b.Auth.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, 1, b.Clients.Len())

	stopB := b.Live(ctx)
	defer stopB()
	_, err = a.Clients.Add(ctx, models.ClientInput{FirstName: "Cy"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.Clients.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Logout())
	assert.False(t, a.Sync.Active())
	assert.Zero(t, a.Clients.Len(), "signed-out records stay in memory")
	assert.Empty(t, a.Clients.Status().Err)
	token, err := auth.LoadToken(filepath.Join(dir, "session"))
	require.NoError(t, err)
	assert.Empty(t, token)
}

// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Opens BadgerDB in a per-test temp directory, no server connection

package charm

import (
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"
)

// badgerKV provides the charm/kv surface directly over BadgerDB.
type badgerKV struct {
	db *badger.DB
}

func (b *badgerKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (b *badgerKV) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerKV) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Sync is a no-op: there is no server.
func (b *badgerKV) Sync() error {
	return nil
}

// Close is a no-op; the test cleanup closes the database.
func (b *badgerKV) Close() error {
	return nil
}

func (b *badgerKV) Reset() error {
	return b.db.DropAll()
}

// NewTestClient creates a charm client on a temporary BadgerDB that is
// closed and removed when the test finishes.
func NewTestClient(t testing.TB) *Client {
	t.Helper()

	// Suppress badger logs in tests
	opts := badger.DefaultOptions(filepath.Join(t.TempDir(), AppName)).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return &Client{
		kv:     &badgerKV{db: db},
		config: Config{Host: "localhost"},
		logger: log.New(testWriter{t}).WithPrefix("charm"),
	}
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

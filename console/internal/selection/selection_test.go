package selection

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdash/console/internal/tracker"
)

func newStore(saver tracker.SelectionSaver, ids ...string) *tracker.Store {
	s := tracker.NewStore(saver)
	list := make([]tracker.Tracker, 0, len(ids))
	for _, id := range ids {
		list = append(list, tracker.Tracker{ID: id})
	}
	s.Load(list)
	return s
}

func TestFileStoreLoadSave(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nested", "selection"))

	id, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, fs.Save("t2"))
	id, err = fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "t2", id)

	require.NoError(t, os.WriteFile(fs.Path(), []byte(" t3\n"), 0o644))
	id, err = fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "t3", id)
}

func TestFileStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection")
	fs := NewFileStore(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := fs.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, NewFileStore(path).Save("t9"))
	select {
	case id := <-changes:
		assert.Equal(t, "t9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherAdoptsFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection")
	local := NewFileStore(path)
	store := newStore(local, "t1", "t2", "t3")
	require.Equal(t, "t1", store.Selected())

	var mu sync.Mutex
	var seen []string
	store.OnSelect(func(id string) {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWatcher(local, store, time.Hour).Run(ctx) }()

	// another console writes the same file
	require.Eventually(t, func() bool {
		_ = NewFileStore(path).Save("t3")
		return store.Selected() == "t3"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	mu.Lock()
	assert.Contains(t, seen, "t3")
	mu.Unlock()
}

type memStorage struct {
	mu sync.Mutex
	id string
}

func (m *memStorage) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *memStorage) Save(id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}

func TestWatcherPollsWithoutNotifier(t *testing.T) {
	mem := &memStorage{}
	store := newStore(mem, "a", "b")
	require.Equal(t, "a", store.Selected())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewWatcher(mem, store, 20*time.Millisecond).Run(ctx) }()

	require.NoError(t, mem.Save("b"))
	require.Eventually(t, func() bool { return store.Selected() == "b" }, time.Second, 10*time.Millisecond)

	// unknown ids never replace a loaded selection
	require.NoError(t, mem.Save("zz"))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "b", store.Selected())
}

func TestWatcherIgnoresEmptyValue(t *testing.T) {
	mem := &memStorage{}
	store := newStore(nil, "a")
	w := NewWatcher(mem, store, 0)
	assert.Equal(t, DefaultPollInterval, w.interval)
	w.check()
	assert.Equal(t, "a", store.Selected())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TRACKDASH_TEST_REDIS")
	if addr == "" {
		t.Skip("TRACKDASH_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	key := "trackdash:test:" + t.Name()
	defer rdb.Del(context.Background(), key)

	rs := NewRedisStore(rdb, key)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := rs.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, rs.Save("t7"))
	select {
	case id := <-changes:
		assert.Equal(t, "t7", id)
	case <-time.After(2 * time.Second):
		t.Fatal("no publish received")
	}
	id, err := rs.Load()
	require.NoError(t, err)
	assert.Equal(t, "t7", id)
}

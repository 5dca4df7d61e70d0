package collection

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_StartsEmpty(t *testing.T) {
	t.Parallel()
	s := NewSource(afero.NewMemMapFs(), "c.json")
	require.NotNil(t, s.Catalog())
	assert.Equal(t, 0, s.Catalog().Len())
	assert.Equal(t, "c.json", s.Input())
}

func TestSource_RebuildKeepsPreviousOnFailure(t *testing.T) {
	t.Parallel()
	fsys := memFile(t, "c.json", sampleCollection)
	s := NewSource(fsys, "c.json")

	c, err := s.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Same(t, c, s.Catalog())

	require.NoError(t, afero.WriteFile(fsys, "c.json", []byte("{broken"), 0o644))
	kept, err := s.Rebuild(context.Background())
	require.Error(t, err)
	assert.Same(t, c, kept)
	assert.Equal(t, 2, s.Catalog().Len())
}

func TestSource_ConcurrentRebuilds(t *testing.T) {
	t.Parallel()
	s := NewSource(memFile(t, "c.json", sampleCollection), "c.json")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Rebuild(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, s.Catalog().Len())
}

func TestSource_WatchRemoteRejected(t *testing.T) {
	t.Parallel()
	s := NewSource(nil, "https://example.com/c.json")
	assert.ErrorIs(t, s.Watch(context.Background()), ErrRemoteWatch)
}

func TestSource_WatchRebuildsOnChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"item": []}`), 0o600))

	s := NewSource(afero.NewOsFs(), path)
	_, err := s.Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, s.Catalog().Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Keep rewriting until the watcher is registered and picks the change up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(sampleCollection), 0o600)
		return s.Catalog().Len() == 2
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchpilot/codepatch/internal/types"
)

func contextWithTempDir(t *testing.T) *types.RepositoryContext {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "workcopy")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return &types.RepositoryContext{URL: "https://github.com/acme/demo", TempDir: dir, LocalPath: dir}
}

func TestCache_GetOrBuild_BuildsOnce(t *testing.T) {
	cache := NewCache(4)
	builds := 0

	build := func() (*types.RepositoryContext, error) {
		builds++
		return &types.RepositoryContext{URL: "u"}, nil
	}

	first, err := cache.GetOrBuild("https://github.com/acme/demo", build)
	require.NoError(t, err)
	second, err := cache.GetOrBuild("https://github.com/acme/demo", build)
	require.NoError(t, err)

	assert.Equal(t, 1, builds)
	assert.Same(t, first, second)
}

func TestCache_GetOrBuild_BuildErrorNotCached(t *testing.T) {
	cache := NewCache(4)
	calls := 0

	_, err := cache.GetOrBuild("https://github.com/acme/demo", func() (*types.RepositoryContext, error) {
		calls++
		return nil, fmt.Errorf("clone failed")
	})
	require.Error(t, err)

	_, err = cache.GetOrBuild("https://github.com/acme/demo", func() (*types.RepositoryContext, error) {
		calls++
		return &types.RepositoryContext{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCache_ConcurrentSameURLCollapses(t *testing.T) {
	cache := NewCache(4)

	var mu sync.Mutex
	builds := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrBuild("https://github.com/acme/demo", func() (*types.RepositoryContext, error) {
				mu.Lock()
				builds++
				mu.Unlock()
				return &types.RepositoryContext{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, builds)
}

func TestCache_Remove_ReleasesWorkingCopy(t *testing.T) {
	cache := NewCache(4)
	repoCtx := contextWithTempDir(t)

	_, err := cache.GetOrBuild(repoCtx.URL, func() (*types.RepositoryContext, error) {
		return repoCtx, nil
	})
	require.NoError(t, err)

	cache.Remove(repoCtx.URL)

	assert.Equal(t, 0, cache.Len())
	_, err = os.Stat(repoCtx.TempDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	cache := NewCache(2)

	dirs := make([]string, 3)
	for i := 0; i < 3; i++ {
		dir := filepath.Join(t.TempDir(), "copy")
		require.NoError(t, os.MkdirAll(dir, 0755))
		dirs[i] = dir

		url := fmt.Sprintf("https://github.com/acme/repo%d", i)
		_, err := cache.GetOrBuild(url, func() (*types.RepositoryContext, error) {
			return &types.RepositoryContext{URL: url, TempDir: dir}, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cache.Len())

	// Oldest entry's working copy was released.
	_, err := os.Stat(dirs[0])
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dirs[2])
	assert.NoError(t, err)

	// The evicted url misses; the newest hits.
	_, ok := cache.Get("https://github.com/acme/repo0")
	assert.False(t, ok)
	_, ok = cache.Get("https://github.com/acme/repo2")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(4)
	repoCtx := contextWithTempDir(t)

	_, err := cache.GetOrBuild(repoCtx.URL, func() (*types.RepositoryContext, error) {
		return repoCtx, nil
	})
	require.NoError(t, err)

	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	_, err = os.Stat(repoCtx.TempDir)
	assert.True(t, os.IsNotExist(err))
}

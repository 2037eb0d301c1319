package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestBounded_EmptyLoad(t *testing.T) {
	b := NewBounded[record]("test", filepath.Join(t.TempDir(), "missing", "data.json"), 3)
	items, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestBounded_FIFOEviction(t *testing.T) {
	ctx := context.Background()
	b := NewBounded[record]("test", filepath.Join(t.TempDir(), "data.json"), 3)

	for i := 1; i <= 5; i++ {
		n, err := b.Append(ctx, record{ID: i})
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 3)
	}

	items, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 3, items[0].ID)
	assert.Equal(t, 5, items[2].ID)

	recent, err := b.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: 4}, {ID: 5}}, recent)
}

func TestBounded_CorruptFileKeptAside(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	b := NewBounded[record]("test", path, 10)
	items, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	bad, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Empty(t, bad, "只读不应移动文件")

	_, err = b.Append(ctx, record{ID: 1, Name: "a"})
	require.NoError(t, err)
	items, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: 1, Name: "a"}}, items)

	bad, err = filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, bad, 1)
	data, err := os.ReadFile(bad[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestBounded_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	b := NewBounded[record]("test", filepath.Join(t.TempDir(), "data.json"), 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.Append(ctx, record{ID: i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 20)
}

func TestBounded_Replace(t *testing.T) {
	ctx := context.Background()
	b := NewBounded[string]("memory", filepath.Join(t.TempDir(), "memory.json"), 2)

	_, err := b.Append(ctx, "old")
	require.NoError(t, err)
	n, err := b.Replace(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, items)
}

func TestArchive_SaveAndSweep(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir)
	a.now = func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.Local) }

	path, err := a.Save("risk_alert", map[string]string{"a": "b"})
	require.NoError(t, err)
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "risk_alert_20250506_070809_"), base)
	assert.True(t, strings.HasSuffix(base, ".json"))

	old := time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(path, old, old))

	fresh, err := a.Save("risk_alert", 1)
	require.NoError(t, err)
	now := a.now()
	require.NoError(t, os.Chtimes(fresh, now, now))

	removed, err := a.Sweep(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, path)
	assert.FileExists(t, fresh)
}

func TestArchive_SweepMissingDir(t *testing.T) {
	a := NewArchive(filepath.Join(t.TempDir(), "none"))
	removed, err := a.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

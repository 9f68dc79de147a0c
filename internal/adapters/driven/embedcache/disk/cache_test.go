package disk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetMany(ctx, map[string][]float32{
		"m:3:aa": {1, 0, 0},
		"m:3:bb": {0, 1, 0},
	}))

	got, err := c.GetMany(ctx, []string{"m:3:aa", "m:3:cc", "m:3:bb"})
	require.NoError(t, err)

	assert.Equal(t, map[string][]float32{
		"m:3:aa": {1, 0, 0},
		"m:3:bb": {0, 1, 0},
	}, got)
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetMany(ctx, map[string][]float32{"k": {0.5}}))
	require.NoError(t, first.Close())

	second, err := New(dir)
	require.NoError(t, err)
	defer second.Close()
	got, err := second.GetMany(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, got["k"])
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir())
	require.NoError(t, err)

	defer c.Close()

	require.NoError(t, c.SetMany(ctx, map[string][]float32{"k": {1, 2}}))
	_, err = c.db.Exec("UPDATE cache SET vector = ? WHERE key = ?", []byte{9}, "k")
	require.NoError(t, err)

	got, err := c.GetMany(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_OverwritesAndCreatesDatabase(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache", "embeddings")
	c, err := New(dir)
	require.NoError(t, err)
	defer c.Close()

	_, err = os.Stat(filepath.Join(dir, File))
	require.NoError(t, err)

	require.NoError(t, c.SetMany(ctx, map[string][]float32{"k": {1}}))
	require.NoError(t, c.SetMany(ctx, map[string][]float32{"k": {2}}))

	got, err := c.GetMany(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, got["k"])

	empty, err := c.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

package file

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/starship-shop/internal/domain/credits"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, found, err := s.Get(ctx, credits.DefaultKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, credits.DefaultKey, "500"))

	v, found, err := s.Get(ctx, credits.DefaultKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "500", v)

	data, err := os.ReadFile(filepath.Join(dir, url.PathEscape(credits.DefaultKey)))
	require.NoError(t, err)
	assert.Equal(t, "500", string(data))

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k", "1"))
	require.NoError(t, s.Set(ctx, "k", "22"))

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "22", v)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := New(dir)
	require.NoError(t, err)
	cs := credits.NewStore(first)
	_, err = cs.Save(ctx, 1_050_000)
	require.NoError(t, err)

	second, err := New(dir)
	require.NoError(t, err)
	balance, err := credits.NewStore(second).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_050_000), balance)
}

func TestStore_CreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := New(dir)
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestStore_PingMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.Error(t, s.Ping(context.Background()))

	// Writes fail once the directory is gone.
	assert.Error(t, s.Set(context.Background(), "k", "1"))
}

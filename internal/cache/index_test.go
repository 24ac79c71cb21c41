package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Index {
	t.Helper()
	index, err := OpenIndex(filepath.Join(t.TempDir(), "fp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

func TestIndexPutGet(t *testing.T) {
	index := openTemp(t)

	entry := Entry{
		Code:       "alpha",
		SourceFile: "alpha.jpg",
		ImportedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, index.Put("deadbeef", entry))

	got, err := index.Get("deadbeef")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Code, got.Code)
	assert.Equal(t, entry.SourceFile, got.SourceFile)
	assert.True(t, entry.ImportedAt.Equal(got.ImportedAt))
}

func TestIndexUnknownHashIsNil(t *testing.T) {
	index := openTemp(t)

	got, err := index.Get("cafebabe")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIndexDelete(t *testing.T) {
	index := openTemp(t)

	require.NoError(t, index.Put("deadbeef", Entry{Code: "alpha"}))
	require.NoError(t, index.Delete("deadbeef"))

	got, err := index.Get("deadbeef")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent key is fine.
	assert.NoError(t, index.Delete("deadbeef"))
}

func TestIndexLen(t *testing.T) {
	index := openTemp(t)

	n, err := index.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, index.Put("a", Entry{Code: "a"}))
	require.NoError(t, index.Put("b", Entry{Code: "b"}))

	n, err = index.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.db")

	index, err := OpenIndex(path)
	require.NoError(t, err)
	require.NoError(t, index.Put("deadbeef", Entry{Code: "alpha"}))
	require.NoError(t, index.Close())

	reopened, err := OpenIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("deadbeef")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alpha", got.Code)
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/store"
)

func TestResolveBatchID(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	for _, id := range []string{"abc12345-0000", "abc99999-0000", "def00000-0000"} {
		require.NoError(t, s.SaveBatch(context.Background(), &models.BatchResult{
			ID: id, Source: "/tmp/src", StartedAt: now, FinishedAt: now,
		}, "doubao"))
	}

	id, err := resolveBatchID(s, "def")
	require.NoError(t, err)
	assert.Equal(t, "def00000-0000", id)

	id, err = resolveBatchID(s, "abc12345-0000")
	require.NoError(t, err)
	assert.Equal(t, "abc12345-0000", id)

	_, err = resolveBatchID(s, "abc")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveBatchID(s, "zzz")
	assert.ErrorContains(t, err, "not found")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdefgh", shortID("abcdefgh-1234"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestDescribeEntry(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "reports")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.txt"), make([]byte, 1000), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), make([]byte, 1000), 0o644))

	size, modified := describeEntry(&models.Entry{Name: "reports", SourcePath: sub, Kind: models.KindDirectory})
	assert.Equal(t, "2.0 kB", size)
	assert.NotEqual(t, "?", modified)

	size, _ = describeEntry(&models.Entry{Name: "gone", SourcePath: filepath.Join(dir, "gone")})
	assert.Equal(t, "?", size)
}

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillworks/novelforge/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		store, err := New(context.Background(), config.ArchiveConfig{Backend: "none"})
		require.NoError(t, err)
		require.IsType(t, NoOp{}, store)
	})

	t.Run("default is none", func(t *testing.T) {
		t.Parallel()
		store, err := New(context.Background(), config.ArchiveConfig{})
		require.NoError(t, err)
		require.IsType(t, NoOp{}, store)
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		store, err := New(context.Background(), config.ArchiveConfig{Backend: "memory"})
		require.NoError(t, err)
		require.IsType(t, &Memory{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), config.ArchiveConfig{Backend: "s3"})
		require.Error(t, err)
	})
}

func TestNoOpDiscards(t *testing.T) {
	t.Parallel()

	uri, err := NoOp{}.PutObject(context.Background(), "a/b.html", "text/html", []byte("x"))
	require.NoError(t, err)
	require.Empty(t, uri)
}

func TestMemoryPutObject(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	uri, err := store.PutObject(context.Background(), "requests/req-1/landing.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	require.Equal(t, "mem://requests/req-1/landing.html", uri)

	data, ok := store.Object("requests/req-1/landing.html")
	require.True(t, ok)
	require.Equal(t, []byte("<html/>"), data)
	require.Equal(t, 1, store.Len())
}

func TestMemoryPutObjectEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewMemory().PutObject(context.Background(), "  ", "", nil)
	require.Error(t, err)
}

func TestLocalPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocal(dir, "raw")
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "req-1/landing.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)

	wantPath := filepath.Join(dir, "raw", "req-1", "landing.html")
	require.Equal(t, "file://"+wantPath, uri)

	data, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	require.Equal(t, []byte("<html/>"), data)
}

func TestLocalPutObjectRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../../etc/passwd", "", []byte("x"))
	require.Error(t, err)
}

func TestLocalCreatesMissingBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "archive")
	_, err := NewLocal(dir, "")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestObjectPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a/b", objectPath("", "a/b"))
	require.Equal(t, "raw/a/b", objectPath("raw", "/a/b"))
	require.Equal(t, "raw/a", objectPath("raw/", "a"))
}

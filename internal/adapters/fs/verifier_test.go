package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/fs"
)

func TestVerifier_Missing(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	verifier := fs.NewVerifier()

	out1 := filepath.Join(tmpDir, "out1.txt")
	out2 := filepath.Join(tmpDir, "out2.txt")
	require.NoError(t, os.WriteFile(out1, []byte("content"), 0o600))
	require.NoError(t, os.WriteFile(out2, []byte("content"), 0o600))

	missing, err := verifier.Missing(context.Background(), []string{out1, out2})
	require.NoError(t, err)
	assert.Empty(t, missing)

	gone := filepath.Join(tmpDir, "missing.txt")
	missing, err = verifier.Missing(context.Background(), []string{out1, gone})
	require.NoError(t, err)
	assert.Equal(t, []string{gone}, missing)
}

func TestVerifier_Exists_BrokenSymlink(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	link := filepath.Join(tmpDir, "link")
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "nowhere"), link))

	ok, err := fs.NewVerifier().Exists(link)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_ModTime(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "a.css")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o600))
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, stamp, stamp))

	link := filepath.Join(tmpDir, "broken")
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "nowhere"), link))

	v := fs.NewVerifier()

	mtime, ok, err := v.ModTime(file)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mtime.Equal(stamp))

	_, ok, err = v.ModTime(link)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = v.ModTime(filepath.Join(tmpDir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemover_RemoveAll(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.js", "b.js", "dir"} {
		p := filepath.Join(tmpDir, name)
		paths = append(paths, p)
	}
	require.NoError(t, os.WriteFile(paths[0], []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(paths[1], []byte("b"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(paths[2], "nested"), 0o750))

	removed, err := fs.NewRemover(2).RemoveAll(context.Background(), paths)
	require.NoError(t, err)
	assert.ElementsMatch(t, paths, removed)

	for _, p := range paths {
		_, statErr := os.Lstat(p)
		assert.True(t, os.IsNotExist(statErr))
	}
}

package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/fs"
)

func TestWalker_WalkFiles(t *testing.T) {
	t.Parallel()

	// tmp/
	//   .git/config
	//   .cache/input-paths.json
	//   ignored/file
	//   src/main.less
	//   README.md
	tmpDir := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(tmpDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	write(".git/config", "git config")
	write(".cache/input-paths.json", "{}")
	write("ignored/file", "ignored content")
	write("src/main.less", "@a: 1;")
	write("README.md", "# Readme")

	files := make(map[string]bool)
	for path := range fs.NewWalker().WalkFiles(tmpDir, []string{"ignored"}) {
		rel, err := filepath.Rel(tmpDir, path)
		require.NoError(t, err)
		files[filepath.ToSlash(rel)] = true
	}

	assert.False(t, files[".git/config"])
	assert.False(t, files[".cache/input-paths.json"])
	assert.False(t, files["ignored/file"])
	assert.True(t, files["src/main.less"])
	assert.True(t, files["README.md"])
}

func TestHasher_CalcHash(t *testing.T) {
	t.Parallel()

	hasher, err := fs.NewHasher(16)
	require.NoError(t, err)

	a := hasher.CalcHash([]byte("hello world"))
	b := hasher.CalcHash([]byte("hello world"))
	c := hasher.CalcHash([]byte("hello world!"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// 8 digest bytes in padded base64.
	assert.Len(t, a, 12)
}

func TestHasher_HashFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.less")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	hasher, err := fs.NewHasher(16)
	require.NoError(t, err)

	first, err := hasher.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hasher.CalcHash([]byte("hello world")), first)

	second, err := hasher.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("changed content"), 0o600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := hasher.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hasher.CalcHash([]byte("changed content")), third)
}

func TestHasher_Forget(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))
	stamp := time.Unix(1_700_000_000, 0)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	hasher, err := fs.NewHasher(16)
	require.NoError(t, err)

	_, err = hasher.HashFile(path)
	require.NoError(t, err)

	// Same size and mtime: the memo would hide the change without Forget.
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o600))
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	hasher.Forget(path)

	sum, err := hasher.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hasher.CalcHash([]byte("two")), sum)
}

func TestHasher_HashFile_Missing(t *testing.T) {
	t.Parallel()

	hasher, err := fs.NewHasher(16)
	require.NoError(t, err)

	_, err = hasher.HashFile(filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to stat path")
}

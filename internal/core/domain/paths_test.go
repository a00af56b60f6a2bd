package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/incr/internal/core/domain"
)

func TestRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		root   string
		target string
		want   string
	}{
		{name: "below root", root: "/p/build", target: "/p/build/UI/a.css", want: "UI/a.css"},
		{name: "outside root", root: "/p/build", target: "/other/x.css", want: "other/x.css"},
		{name: "no root", root: "", target: "/UI/./a.less", want: "UI/a.less"},
		{name: "root itself", root: "/p", target: "/p", want: "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.RelativePath(tt.root, tt.target))
		})
	}
}

func TestSplitModulePath(t *testing.T) {
	t.Parallel()

	module, rel := domain.SplitModulePath("/UI/theme/a.less")
	assert.Equal(t, "UI", module)
	assert.Equal(t, "theme/a.less", rel)

	module, rel = domain.SplitModulePath("UI")
	assert.Equal(t, "UI", module)
	assert.Empty(t, rel)
}

func TestJoinModulePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "UI/theme/a.less", domain.JoinModulePath("UI", "/theme//a.less"))
	assert.Equal(t, "UI", domain.JoinModulePath("UI", ""))

	module, rel := domain.SplitModulePath(domain.JoinModulePath("Controls", "button/b.ts"))
	assert.Equal(t, "Controls", module)
	assert.Equal(t, "button/b.ts", rel)
}

func TestIsWithin(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "p")
	assert.True(t, domain.IsWithin(root, root))
	assert.True(t, domain.IsWithin(root, filepath.Join(root, "UI", "a.less")))
	assert.False(t, domain.IsWithin(filepath.Join(root, "UI"), root))
	assert.False(t, domain.IsWithin(root, filepath.Join(string(filepath.Separator), "pp")))
	assert.False(t, domain.IsWithin(filepath.Join(root, "UI"), filepath.Join(root, "..UI")))
	assert.False(t, domain.IsWithin("", root))
}

func TestExternalKey(t *testing.T) {
	t.Parallel()

	abs := filepath.Join(t.TempDir(), "shared", "..", "shared.less")
	key := domain.ExternalKey(abs)

	assert.True(t, domain.IsExternalKey(key))
	assert.False(t, domain.IsExternalKey("UI/a.less"))
	assert.Equal(t, filepath.Clean(abs), domain.ExternalPath(key))
	assert.Equal(t, key, domain.ExternalKey(domain.ExternalPath(key)))
}

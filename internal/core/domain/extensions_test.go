package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/incr/internal/core/domain"
)

func TestIsCacheTracked(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"a.less", "a.js", "a.es", "a.ts", "a.tsx", "a.json"} {
		assert.True(t, domain.IsCacheTracked(p), p)
	}
	for _, p := range []string{"a.css", "a.tmpl", "a.xhtml", "a.png"} {
		assert.False(t, domain.IsCacheTracked(p), p)
	}
}

func TestIsCompressible(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.IsCompressible("UI/a.min.js"))
	assert.True(t, domain.IsCompressible("UI/a.min.css"))
	assert.True(t, domain.IsCompressible("UI/icons.svg"))
	assert.False(t, domain.IsCompressible("UI/a.js"))
	assert.False(t, domain.IsCompressible("UI/a.min.png"))
}

func TestMatchesDropKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind domain.DropKind
		path string
		want bool
	}{
		{domain.DropMarkup, "a.wml", true},
		{domain.DropMarkup, "a.ts", true},
		{domain.DropMarkup, "a.less", false},
		{domain.DropOldMarkup, "a.xhtml", true},
		{domain.DropStaticMarkup, "page.html.tmpl", true},
		{domain.DropStaticMarkup, "a.tmpl", false},
		{domain.DropLess, "a.less", true},
		{domain.DropMetatypes, "a.meta.ts", true},
		{domain.DropMetatypes, "a.ts", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.MatchesDropKind(tt.kind, tt.path), "%s %s", tt.kind, tt.path)
	}
}

func TestCollisionPartners(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a/b.js", "a/b.tsx"}, domain.CollisionPartners("a/b.ts"))
	assert.Equal(t, []string{"b.less"}, domain.CollisionPartners("b.css"))
	assert.Nil(t, domain.CollisionPartners("b.json"))
}

func TestParseDropKind(t *testing.T) {
	t.Parallel()

	for _, k := range domain.DropKinds() {
		got, ok := domain.ParseDropKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := domain.ParseDropKind("images")
	assert.False(t, ok)
}

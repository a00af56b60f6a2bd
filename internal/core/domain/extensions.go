package domain

import (
	"path"
	"regexp"
	"strings"
)

var (
	// cacheTrackedExt matches files whose verdict is memoized and whose dependencies are checked.
	cacheTrackedExt = regexp.MustCompile(`\.(less|js|es|tsx?|json)$`)

	// typescriptExt matches files whose failure fails the module's type compilation.
	typescriptExt = regexp.MustCompile(`\.tsx?$`)

	markupExt       = regexp.MustCompile(`\.(wml|tmpl|ts|js)$`)
	oldMarkupExt    = regexp.MustCompile(`\.xhtml$`)
	staticMarkupExt = regexp.MustCompile(`\.html\.tmpl$`)
	lessExt         = regexp.MustCompile(`\.less$`)
	metatypesExt    = regexp.MustCompile(`\.meta\.tsx?$`)

	compressibleExt = regexp.MustCompile(`\.(js|json|css|tmpl|wml|xhtml|svg|html)$`)
)

// collisionFamilies are groups of extensions that describe the same logical resource.
// A resource can exist under only one extension of a family at a time.
var collisionFamilies = [][]string{
	{".js", ".ts", ".tsx"},
	{".css", ".less"},
}

// LocalizationStyleFile is always treated as changed: its content depends on localization
// data the cache does not track between runs.
const LocalizationStyleFile = "en-US.less"

// IsCacheTracked reports whether p is one of the kinds whose dependencies are followed.
func IsCacheTracked(p string) bool {
	return cacheTrackedExt.MatchString(p)
}

// IsTypescript reports whether p is a TypeScript source.
func IsTypescript(p string) bool {
	return typescriptExt.MatchString(p)
}

// IsCompressible reports whether an output at p gets compressed siblings.
// Only minified artifacts and svg packages are compressed.
func IsCompressible(p string) bool {
	if !compressibleExt.MatchString(p) {
		return false
	}
	return strings.Contains(path.Base(p), ".min.") || strings.HasSuffix(p, ".svg")
}

// MatchesDropKind reports whether a file at p belongs to the family invalidated by kind.
func MatchesDropKind(kind DropKind, p string) bool {
	switch kind {
	case DropMarkup:
		return markupExt.MatchString(p)
	case DropOldMarkup:
		return oldMarkupExt.MatchString(p)
	case DropStaticMarkup:
		return staticMarkupExt.MatchString(p)
	case DropLess:
		return lessExt.MatchString(p)
	case DropMetatypes:
		return metatypesExt.MatchString(p)
	default:
		return false
	}
}

// CollisionPartners returns the paths that describe the same logical resource as p under
// the other extensions of its family. It returns nil when p is in no family.
func CollisionPartners(p string) []string {
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for _, family := range collisionFamilies {
		found := false
		for _, e := range family {
			if e == ext {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		partners := make([]string, 0, len(family)-1)
		for _, e := range family {
			if e != ext {
				partners = append(partners, base+e)
			}
		}
		return partners
	}
	return nil
}

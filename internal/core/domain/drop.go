package domain

import "strings"

// DropKind names a family of files whose cached results are dropped for the rest of a build.
type DropKind uint8

const (
	// DropMarkup drops compiled templates and the scripts that embed them.
	DropMarkup DropKind = iota
	// DropOldMarkup drops legacy xhtml templates.
	DropOldMarkup
	// DropStaticMarkup drops static html templates.
	DropStaticMarkup
	// DropLess drops compiled styles.
	DropLess
	// DropMetatypes drops metatype declarations.
	DropMetatypes

	dropKindCount
)

// DropKinds returns every DropKind in declaration order.
func DropKinds() []DropKind {
	kinds := make([]DropKind, 0, dropKindCount)
	for k := DropKind(0); k < dropKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the name used in logs and reasons.
func (k DropKind) String() string {
	switch k {
	case DropMarkup:
		return "markup"
	case DropOldMarkup:
		return "old-markup"
	case DropStaticMarkup:
		return "static-markup"
	case DropLess:
		return "less"
	case DropMetatypes:
		return "metatypes"
	default:
		return "unknown"
	}
}

// ParseDropKind converts a name back to a DropKind.
func ParseDropKind(s string) (DropKind, bool) {
	for _, k := range DropKinds() {
		if strings.EqualFold(k.String(), s) {
			return k, true
		}
	}
	return 0, false
}

// DropRule latches a DropKind when a changed file lives below Prefix.
type DropRule struct {
	Prefix string   `yaml:"prefix" json:"prefix"`
	Kind   DropKind `yaml:"-" json:"-"`
	Name   string   `yaml:"kind" json:"kind"`
}

// DefaultDropRules returns the template compiler roots whose change widens invalidation.
func DefaultDropRules() []DropRule {
	return []DropRule{
		{Prefix: "UI/_builder/Tmpl", Kind: DropMarkup, Name: DropMarkup.String()},
		{Prefix: "View/Builder/Tmpl", Kind: DropMarkup, Name: DropMarkup.String()},
		{Prefix: "View/Runner/tclosure", Kind: DropOldMarkup, Name: DropOldMarkup.String()},
		{Prefix: "View/Builder/Xhtml", Kind: DropOldMarkup, Name: DropOldMarkup.String()},
		{Prefix: "UI/_base/HTML", Kind: DropStaticMarkup, Name: DropStaticMarkup.String()},
		{Prefix: "Types/_meta", Kind: DropMetatypes, Name: DropMetatypes.String()},
	}
}

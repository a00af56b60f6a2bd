package domain

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizePath converts p to a cleaned, slash-separated path.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(p))
}

// StripLeadingSlash removes every leading slash from p.
func StripLeadingSlash(p string) string {
	return strings.TrimLeft(p, "/")
}

// RelativePath returns target relative to root, normalized and without a leading slash.
// When target is not below root it is returned normalized.
func RelativePath(root, target string) string {
	if root == "" {
		return StripLeadingSlash(NormalizePath(target))
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return StripLeadingSlash(NormalizePath(target))
	}
	return StripLeadingSlash(NormalizePath(rel))
}

// SplitModulePath splits a project-relative path into the module name and the path within
// that module. The first path segment is always the module name.
func SplitModulePath(p string) (module, rel string) {
	p = StripLeadingSlash(NormalizePath(p))
	module, rel, _ = strings.Cut(p, "/")
	return module, rel
}

// JoinModulePath is the inverse of SplitModulePath.
func JoinModulePath(module, rel string) string {
	if rel == "" {
		return module
	}
	return module + "/" + StripLeadingSlash(NormalizePath(rel))
}

// IsWithin reports whether p is dir or lies below it.
func IsWithin(dir, p string) bool {
	if dir == "" || p == "" {
		return false
	}
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ExternalKey returns the key of an absolute path that lies outside every module. External keys
// keep the whole path behind a single leading slash, so they never collide with module keys.
func ExternalKey(abs string) string {
	return "/" + StripLeadingSlash(NormalizePath(abs))
}

// IsExternalKey reports whether key names a path outside every module.
func IsExternalKey(key string) bool {
	return strings.HasPrefix(key, "/")
}

// ExternalPath returns the file system path named by an external key.
func ExternalPath(key string) string {
	if p := filepath.FromSlash(key); filepath.IsAbs(p) {
		return p
	}
	return filepath.FromSlash(StripLeadingSlash(key))
}

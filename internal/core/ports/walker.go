package ports

import "iter"

// Walker enumerates the source files below a directory.
type Walker interface {
	// WalkFiles yields the absolute path of every file below root whose name matches none of ignores.
	WalkFiles(root string, ignores []string) iter.Seq[string]
}

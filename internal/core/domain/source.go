package domain

import "time"

// SourceFile is one file streamed through the build.
type SourceFile struct {
	// Path is the absolute path of the source.
	Path string
	// Contents are the raw bytes the content hash is computed over.
	Contents []byte
	// ModTime is the modification time seen when the file was read.
	ModTime time.Time
	// Module is the module the file belongs to.
	Module ModuleParams
}

// ProcessResult is what a processor reports for one source file.
type ProcessResult struct {
	// Outputs are absolute paths of the artifacts written.
	Outputs []string
	// Imports are paths of the files the source depends on, absolute or relative to the project root.
	Imports []string
}

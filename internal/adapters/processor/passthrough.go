// Package processor provides a stand-in compiler that copies sources to the build roots and
// reports the imports it can see.
package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	lessImport   = regexp.MustCompile(`@import\s+(?:\([^)]*\)\s*)?["']([^"']+)["']`)
	scriptImport = regexp.MustCompile(`(?:from\s*|require\(\s*|import\s*\(?\s*)["'](\.{1,2}/[^"']+)["']`)
)

// scriptExtensions are tried in order when a relative script import has no extension.
var scriptExtensions = []string{".ts", ".tsx", ".js"}

var _ ports.Processor = (*Passthrough)(nil)

// Passthrough writes every source unchanged to the output directory and mirrors it into the
// cache directory. Styles are renamed to .css and TypeScript to .js.
type Passthrough struct{}

// NewPassthrough creates a new Passthrough processor.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Process writes the outputs of file and reports its imports as absolute paths.
func (p *Passthrough) Process(ctx context.Context, cfg *domain.Config, file domain.SourceFile) (domain.ProcessResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProcessResult{}, err
	}

	root := cfg.ModuleRoot(file.Module)
	rel, err := filepath.Rel(root, file.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return domain.ProcessResult{}, zerr.With(domain.ErrFileOutsideModules, "path", file.Path)
	}

	if strings.HasSuffix(file.Path, ".json") && !json.Valid(file.Contents) {
		return domain.ProcessResult{}, zerr.With(zerr.Wrap(zerr.New("invalid json"), domain.ErrProcessFailed.Error()), "path", file.Path)
	}

	target := filepath.Join(file.Module.Name, outputName(rel))
	roots := []string{cfg.OutputDir}
	if filepath.Clean(cfg.CacheDir) != filepath.Clean(cfg.OutputDir) {
		roots = append(roots, cfg.CacheDir)
	}
	for _, r := range roots {
		if err := writeOutput(filepath.Join(r, target), file.Contents); err != nil {
			return domain.ProcessResult{}, err
		}
	}

	return domain.ProcessResult{
		Outputs: []string{filepath.Join(cfg.OutputDir, target)},
		Imports: imports(file.Path, file.Contents),
	}, nil
}

func outputName(rel string) string {
	switch ext := filepath.Ext(rel); ext {
	case ".less":
		return strings.TrimSuffix(rel, ext) + ".css"
	case ".ts", ".tsx":
		if strings.HasSuffix(rel, ".d.ts") {
			return rel
		}
		return strings.TrimSuffix(rel, ext) + ".js"
	default:
		return rel
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrProcessFailed.Error()), "path", path)
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrProcessFailed.Error()), "path", path)
	}
	return nil
}

// imports extracts relative style and script imports, resolved against the importing file.
func imports(path string, contents []byte) []string {
	dir := filepath.Dir(path)
	var out []string

	switch filepath.Ext(path) {
	case ".less":
		for _, m := range lessImport.FindAllSubmatch(contents, -1) {
			ref := string(m[1])
			if strings.Contains(ref, "://") {
				continue
			}
			if filepath.Ext(ref) == "" {
				ref += ".less"
			}
			out = append(out, filepath.Join(dir, ref))
		}
	case ".ts", ".tsx", ".js", ".es":
		for _, m := range scriptImport.FindAllSubmatch(contents, -1) {
			out = append(out, resolveScript(filepath.Join(dir, string(m[1]))))
		}
	}
	return out
}

func resolveScript(base string) string {
	if filepath.Ext(base) != "" {
		return base
	}
	for _, ext := range scriptExtensions {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return base + scriptExtensions[0]
}

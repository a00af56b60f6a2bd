package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/ui/style"
)

// writeReport prints the summary of a build or check. File level reasons are left to the log
// artifacts, only the changed paths are listed.
func writeReport(w io.Writer, verb string, r *app.Report) {
	summary := fmt.Sprintf("%d files, %d changed in %s", r.Files, len(r.Changed), r.Duration.Round(time.Millisecond))
	line(w, "%s %s", style.Title.Render(verb), style.Muted.Render(summary))

	for _, reason := range r.Result.Reasons {
		if reason.Scope == domain.ScopeFile {
			continue
		}
		line(w, "  %s %s", style.Notice.Render(style.Warning), reason.String())
	}
	for _, p := range r.Changed {
		line(w, "  %s %s", style.Muted.Render(style.Arrow), p)
	}
	for _, module := range slices.Sorted(maps.Keys(r.Failed)) {
		for _, f := range r.Failed[module] {
			line(w, "  %s %s", style.Failure.Render(style.Cross), domain.JoinModulePath(module, f))
		}
	}
	if len(r.Garbage) > 0 {
		label := "removed"
		if verb == "check" {
			label = "would remove"
		}
		line(w, "  %s %s %d stale paths", style.Muted.Render(style.Dot), label, len(r.Garbage))
	}
	if len(r.Failed) == 0 {
		line(w, "%s", style.Success.Render(style.Check+" done"))
	}
}

func writeDeps(w io.Writer, r *app.DepsReport) {
	line(w, "%s", style.Title.Render(r.Path))
	line(w, "%s", style.Muted.Render("depends on:"))
	writeList(w, r.Dependencies)
	line(w, "%s", style.Muted.Render("depended on by:"))
	writeList(w, r.Dependents)
}

func writeBatch(w io.Writer, b app.WatchBatch) {
	line(w, "%s %s", style.Title.Render("changed"), style.Muted.Render(fmt.Sprintf("%d files", len(b.Changed))))
	writeList(w, b.Changed)
	if len(b.Impacted) > 0 {
		line(w, "%s", style.Muted.Render("impacted:"))
		writeList(w, b.Impacted)
	}
	if b.Build != nil {
		writeReport(w, "build", b.Build)
	}
	if b.Err != nil {
		line(w, "%s %v", style.Failure.Render(style.Cross), b.Err)
	}
}

func writeRemoved(w io.Writer, removed []string) {
	for _, p := range removed {
		line(w, "%s removed %s", style.Muted.Render(style.Dot), p)
	}
}

func writeList(w io.Writer, paths []string) {
	if len(paths) == 0 {
		line(w, "  %s", style.Muted.Render("(none)"))
		return
	}
	for _, p := range paths {
		line(w, "  %s %s", style.Muted.Render(style.Arrow), p)
	}
}

func line(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

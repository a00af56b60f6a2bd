package commands

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"
	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/core/domain"
)

func plainOutput(t *testing.T) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestWriteReport(t *testing.T) {
	plainOutput(t)

	tests := []struct {
		name       string
		verb       string
		report     *app.Report
		goldenName string
	}{
		{
			name: "clean build",
			verb: "build",
			report: &app.Report{
				Files:    3,
				Changed:  []string{"UI/a.less", "UI/b.less"},
				Failed:   map[string][]string{},
				Garbage:  []string{"/p/build/UI/old.css"},
				Duration: 1500 * time.Millisecond,
				Result: domain.CheckResult{Reasons: []domain.Reason{
					{Scope: domain.ScopeModule, Module: "UI", Message: "module parameters changed"},
					{Scope: domain.ScopeFile, Module: "UI", Path: "UI/a.less", Message: "new file"},
				}},
			},
			goldenName: "report_build",
		},
		{
			name: "failed build",
			verb: "build",
			report: &app.Report{
				Files:    2,
				Changed:  []string{"UI/data.json"},
				Failed:   map[string][]string{"UI": {"data.json"}},
				Duration: 20 * time.Millisecond,
			},
			goldenName: "report_failed",
		},
		{
			name: "check",
			verb: "check",
			report: &app.Report{
				Files:    4,
				Garbage:  []string{"/p/build/UI", "/p/build/Controls"},
				Duration: 3 * time.Millisecond,
				Result: domain.CheckResult{CacheDropped: true, Reasons: []domain.Reason{
					{Scope: domain.ScopeProject, Message: "builder code changed"},
				}},
			},
			goldenName: "report_check",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeReport(&buf, tt.verb, tt.report)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestWriteDeps(t *testing.T) {
	plainOutput(t)

	var buf bytes.Buffer
	writeDeps(&buf, &app.DepsReport{
		Path:         "UI/b.less",
		Dependencies: nil,
		Dependents:   []string{"UI/a.less", "UI/theme.less"},
	})

	g := goldie.New(t)
	g.Assert(t, "deps", buf.Bytes())
}

func TestWriteBatch(t *testing.T) {
	plainOutput(t)

	var buf bytes.Buffer
	writeBatch(&buf, app.WatchBatch{
		Changed:  []string{"UI/b.less"},
		Impacted: []string{"UI/a.less"},
		Err:      errors.New("build failed"),
	})

	g := goldie.New(t)
	g.Assert(t, "batch", buf.Bytes())
}

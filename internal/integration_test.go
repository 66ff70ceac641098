package internal_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/olehluchkiv/diverify/internal/diagram"
	"github.com/olehluchkiv/diverify/internal/model"
	"github.com/olehluchkiv/diverify/internal/pipeline"
	"github.com/olehluchkiv/diverify/internal/report"
	"github.com/olehluchkiv/diverify/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdataDir(name string) string {
	// Find the project root by looking for go.mod
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// We're in internal/, go up one level
	root := filepath.Dir(wd)
	return filepath.Join(root, "testdata", name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func nodeID(spelling string) string {
	return diagram.NodeID(model.ParseTypeRef(spelling))
}

// invalidTypes lists the unresolvable service types of a report, sorted.
func invalidTypes(r report.Report) []string {
	var out []string
	for _, s := range r.Services {
		if !s.Valid {
			out = append(out, s.Type)
		}
	}
	slices.Sort(out)
	return out
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	tests := []struct {
		name     string
		input    string
		kind     resolver.Kind
		invalid  []string
		validate func(t *testing.T, rep report.Report, text, mermaid string)
	}{
		{
			name:    "manifest with runtime parameters",
			input:   testdataDir(filepath.Join("manifests", "widgets.yaml")),
			kind:    resolver.KindManifest,
			invalid: []string{"example.com/widgets.Consumer"},
			validate: func(t *testing.T, rep report.Report, text, mermaid string) {
				assert.Contains(t, text, "which can only be resolved through a typed factory")
				assert.Contains(t, text, "such as func(int) example.com/widgets.Widget.")
				widget := nodeID("example.com/widgets.Widget")
				dashboard := nodeID("example.com/widgets.Dashboard")
				assert.Contains(t, mermaid, nodeID("func(int) example.com/widgets.Widget")+"{{")
				assert.Contains(t, mermaid, nodeID("example.com/widgets.BareFactory")+` ==>|"Create"| `+widget)
				// Optional dependencies are drawn but never reported.
				assert.Contains(t, mermaid, dashboard+` -->|"logger"| `+nodeID("example.com/widgets.Logger"))
				assert.Contains(t, mermaid, "class "+dashboard+" validStyle")
			},
		},
		{
			name:  "valid manifest",
			input: testdataDir(filepath.Join("manifests", "valid.yaml")),
			kind:  resolver.KindManifest,
			validate: func(t *testing.T, rep report.Report, text, mermaid string) {
				assert.True(t, rep.OK())
				assert.Contains(t, text, "All services are resolvable.")
				assert.Contains(t, mermaid, nodeID("example.com/app.JobSource")+"{{")
				assert.NotRegexp(t, `(?m)^\s*class \S+ invalidStyle$`, mermaid)
			},
		},
		{
			name:    "construction cycle",
			input:   testdataDir(filepath.Join("manifests", "cycle.json")),
			kind:    resolver.KindManifest,
			invalid: []string{"example.com/cycle.A", "example.com/cycle.B"},
			validate: func(t *testing.T, rep report.Report, text, mermaid string) {
				assert.Contains(t, text, "cycle.A and cycle.B depend on each other")
				assert.Contains(t, text, "cycle.B and cycle.A depend on each other")
				a, b := nodeID("example.com/cycle.A"), nodeID("example.com/cycle.B")
				assert.Contains(t, mermaid, a+` -->|"b"| `+b)
				assert.Contains(t, mermaid, b+` -->|"a"| `+a)
			},
		},
		{
			name:    "go source directives",
			input:   testdataDir("widgets"),
			kind:    resolver.KindModule,
			invalid: []string{"*example.com/widgets.Consumer"},
			validate: func(t *testing.T, rep report.Report, text, mermaid string) {
				assert.Contains(t, text, "✗ *example.com/widgets.Consumer: 1 error")
				assert.Contains(t, mermaid, nodeID("example.com/widgets/store.Loader")+"{{")
				assert.Contains(t, mermaid, nodeID("*example.com/widgets.Widget"))

				var implicit *report.Factory
				for i := range rep.Factories {
					if rep.Factories[i].Type == "func(int) *example.com/widgets.Widget" {
						implicit = &rep.Factories[i]
					}
				}
				require.NotNil(t, implicit)
				assert.False(t, implicit.Explicit)
				assert.Len(t, implicit.Dependents, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, cleanup, err := pipeline.Execute(ctx, pipeline.Options{Input: tt.input}, logger)
			require.NoError(t, err)
			t.Cleanup(cleanup)
			assert.Equal(t, tt.kind, run.Source.Kind)

			rep := run.Report()
			assert.Equal(t, tt.invalid, invalidTypes(rep))

			var text bytes.Buffer
			require.NoError(t, report.WriteText(&text, rep, report.TextOptions{ShowValid: true}))
			mermaid := diagram.GenerateMermaid(run.Result, diagram.DefaultDiagramOptions())
			require.True(t, strings.HasPrefix(mermaid, "flowchart LR"))

			// Every invalid service has at least one message, and messages are stable.
			for _, v := range run.Result.Invalid() {
				first := slices.Collect(run.Result.Messages(v))
				assert.NotEmpty(t, first, v.ServiceType.String())
				assert.Equal(t, first, slices.Collect(run.Result.Messages(v)))
			}

			tt.validate(t, rep, text.String(), mermaid)
		})
	}
}

func TestEndToEnd_DirectoryWithManifest(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(testdataDir(filepath.Join("manifests", "cycle.json")))
	require.NoError(t, err)
	// JSON is valid YAML, so the default manifest name still decodes it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, resolver.DefaultManifest), src, 0o644))

	run, cleanup, err := pipeline.Execute(context.Background(), pipeline.Options{Input: dir}, testLogger())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.Equal(t, resolver.KindManifest, run.Source.Kind)
	assert.Len(t, run.Result.Invalid(), 2)
}

func TestEndToEnd_Slides(t *testing.T) {
	run, cleanup, err := pipeline.Execute(context.Background(),
		pipeline.Options{Input: testdataDir(filepath.Join("manifests", "cycle.json"))}, testLogger())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	slides := diagram.BuildSlides(run.Result, diagram.DefaultDiagramOptions(), diagram.SlideOptions{})
	require.Len(t, slides, 3)
	assert.Equal(t, "Overview", slides[0].Title)
	for _, s := range slides[1:] {
		assert.Contains(t, s.Mermaid, nodeID("example.com/cycle.A"))
		assert.Contains(t, s.Mermaid, nodeID("example.com/cycle.B"))
	}
}

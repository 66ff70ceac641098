package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/diverify/internal/analyzer"
	"github.com/olehluchkiv/diverify/internal/manifest"
	"github.com/olehluchkiv/diverify/internal/resolver"
	"github.com/olehluchkiv/diverify/internal/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// go test sets cwd to the package directory.
func manifestPath(name string) string {
	return filepath.Join("..", "..", "testdata", "manifests", name)
}

func TestExecute_Manifest(t *testing.T) {
	input := manifestPath("widgets.yaml")
	run, cleanup, err := Execute(context.Background(), Options{Input: input}, quietLogger())
	t.Cleanup(cleanup)
	require.NoError(t, err)

	_, err = uuid.Parse(run.ID)
	assert.NoError(t, err, "run id is a uuid")
	assert.Equal(t, resolver.KindManifest, run.Source.Kind)
	assert.Len(t, run.Full.Components, 4)
	assert.Same(t, run.Full.Components[0], run.Result.Components[0], "no filter keeps the same descriptors")

	invalid := run.Result.Invalid()
	require.Len(t, invalid, 1)
	assert.Equal(t, "example.com/widgets.Consumer", invalid[0].ServiceType.String())

	rep := run.Report()
	assert.Equal(t, run.ID, rep.RunID)
	assert.Equal(t, input, rep.Input)
	assert.Equal(t, "manifest", rep.Kind)
	assert.Equal(t, 1, rep.Invalid)
}

func TestExecute_Filter(t *testing.T) {
	opts := Options{
		Input:  manifestPath("widgets.yaml"),
		Filter: analyzer.FilterOptions{OnlyInvalid: true},
	}
	run, cleanup, err := Execute(context.Background(), opts, quietLogger())
	t.Cleanup(cleanup)
	require.NoError(t, err)

	require.Len(t, run.Result.Services, 1)
	assert.Greater(t, len(run.Full.Services), len(run.Result.Services))
}

func TestExecute_ValidManifest(t *testing.T) {
	run, cleanup, err := Execute(context.Background(), Options{Input: manifestPath("valid.yaml")}, quietLogger())
	t.Cleanup(cleanup)
	require.NoError(t, err)

	assert.Empty(t, run.Result.Invalid())
	assert.True(t, run.Report().OK())
}

func TestExecute_Cycle(t *testing.T) {
	run, cleanup, err := Execute(context.Background(), Options{Input: manifestPath("cycle.json")}, quietLogger())
	t.Cleanup(cleanup)
	require.NoError(t, err)

	invalid := run.Result.Invalid()
	require.Len(t, invalid, 2)
	for _, v := range invalid {
		assert.Len(t, v.CircularDependencies, 1, v.ServiceType.String())
	}
}

func TestExecute_Errors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		_, cleanup, err := Execute(context.Background(), Options{Input: filepath.Join(t.TempDir(), "nope.yaml")}, quietLogger())
		cleanup()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolve")
	})

	t.Run("invalid manifest", func(t *testing.T) {
		input := filepath.Join("..", "manifest", "testdata", "invalid.yaml")
		_, cleanup, err := Execute(context.Background(), Options{Input: input}, quietLogger())
		cleanup()
		require.Error(t, err)
		var verr *manifest.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("no directives", func(t *testing.T) {
		input := filepath.Join("..", "..", "testdata", "empty")
		_, cleanup, err := Execute(context.Background(), Options{Input: input}, quietLogger())
		cleanup()
		require.Error(t, err)
		assert.ErrorIs(t, err, source.ErrNoDirectives)
	})
}

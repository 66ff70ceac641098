package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quiet keeps test output free of log lines and log files.
var quiet = []string{"--log-file", "", "--log-level", "error"}

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(append(args, quiet...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func manifest(name string) string {
	return filepath.Join("testdata", "manifests", name)
}

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

func TestCheck_FindingsExitOne(t *testing.T) {
	code, out, _ := execute(t, "check", manifest("widgets.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "✗ example.com/widgets.Consumer: 1 error")
	assert.Contains(t, out, "1 of 2 services cannot be resolved.")
}

func TestCheck_ValidExitZero(t *testing.T) {
	code, out, errOut := execute(t, "check", manifest("valid.yaml"))
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "All services are resolvable.")
}

func TestCheck_JSON(t *testing.T) {
	code, out, _ := execute(t, "check", "--format", "json", manifest("cycle.json"))
	assert.Equal(t, 1, code)

	var rep struct {
		RunID    string `json:"runId"`
		Invalid  int    `json:"invalid"`
		Services []struct {
			Type     string   `json:"type"`
			Messages []string `json:"messages"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Invalid)
	for _, svc := range rep.Services {
		require.Len(t, svc.Messages, 1, svc.Type)
		assert.Contains(t, svc.Messages[0], "depend on each other")
	}
}

func TestCheck_FilterByPrefix(t *testing.T) {
	code, out, _ := execute(t, "check", "--filter", "example.com/unrelated", manifest("widgets.yaml"))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "All services are resolvable.")
}

func TestCheck_All(t *testing.T) {
	_, out, _ := execute(t, "check", "--all", manifest("widgets.yaml"))
	assert.Contains(t, out, "✓ example.com/widgets.Widget")
	assert.Contains(t, out, "Typed factories")
}

func TestCheck_InvalidFormat(t *testing.T) {
	code, _, errOut := execute(t, "check", "--format", "xml", manifest("widgets.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid output format: xml")
}

func TestCheck_RequiresInput(t *testing.T) {
	code, _, errOut := execute(t, "check")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "accepts 1 arg(s), received 0")
}

func TestCheck_MissingInput(t *testing.T) {
	code, _, errOut := execute(t, "check", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error: resolve:")
}

func TestCheck_InvalidLogLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"check", manifest("valid.yaml"), "--log-file", "", "--log-level", "loud"}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), `invalid log level "loud"`)
}

func TestCheck_LogLevelFromEnv(t *testing.T) {
	t.Setenv("DIVERIFY_LOG_LEVEL", "loud")
	var out, errOut bytes.Buffer
	code := run([]string{"check", manifest("valid.yaml"), "--log-file", ""}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), `invalid log level "loud"`)
}

// ---------------------------------------------------------------------------
// diagram
// ---------------------------------------------------------------------------

func TestDiagram_Stdout(t *testing.T) {
	code, out, _ := execute(t, "diagram", manifest("widgets.yaml"))
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))
	assert.Contains(t, out, "t_example_com_widgets_Consumer")
}

func TestDiagram_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.mmd")
	code, out, errOut := execute(t, "diagram", manifest("widgets.yaml"), "-o", path, "--direction", "TB")
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Wrote diagram to "+path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%%{init:"))
	assert.Contains(t, string(content), "flowchart TB")
}

func TestDiagram_OnlyInvalid(t *testing.T) {
	code, out, _ := execute(t, "diagram", "--only-invalid", manifest("widgets.yaml"))
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "t_example_com_widgets_Dashboard")
	assert.Contains(t, out, "t_example_com_widgets_Consumer")
}

func TestDiagram_InvalidDirection(t *testing.T) {
	code, out, errOut := execute(t, "diagram", "--direction", "SIDEWAYS", manifest("widgets.yaml"))
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "invalid direction: SIDEWAYS. Valid options: [LR TB RL BT]")
}

// ---------------------------------------------------------------------------
// root
// ---------------------------------------------------------------------------

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := execute(t, "explode")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown command "explode"`)
}

func TestServe_FailsBeforeListeningOnBadInput(t *testing.T) {
	code, _, errOut := execute(t, "serve", "--no-browser", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error: resolve:")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DIVERIFY_LOG_FILE", "DIVERIFY_LOG_LEVEL", "DIVERIFY_PORT", "DIVERIFY_NO_BROWSER"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIVERIFY_LOG_FILE", "")
	t.Setenv("DIVERIFY_LOG_LEVEL", "debug")
	t.Setenv("DIVERIFY_PORT", "9090")
	t.Setenv("DIVERIFY_NO_BROWSER", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{LogFile: "", LogLevel: "debug", Port: 9090, NoBrowser: true}, cfg)
}

func TestFromEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIVERIFY_PORT", "eighty")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "DIVERIFY_PORT")

	clearEnv(t)
	t.Setenv("DIVERIFY_NO_BROWSER", "sometimes")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "DIVERIFY_NO_BROWSER")
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIVERIFY_LOG_LEVEL", "error")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DIVERIFY_PORT=7070\nDIVERIFY_LOG_LEVEL=debug\n"), 0o644))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "error", cfg.LogLevel, "the environment wins over .env")
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

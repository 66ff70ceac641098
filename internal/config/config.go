// Package config reads settings from the environment and an optional .env
// file. Command-line flags override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process settings.
type Config struct {
	LogFile   string
	LogLevel  string
	Port      int
	NoBrowser bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogFile:  "logs/diverify.log",
		LogLevel: "info",
		Port:     8080,
	}
}

// Load reads the given .env files (".env" when none are given), ignoring
// missing ones, then applies DIVERIFY_* variables over the defaults.
// Variables already set in the environment win over .env files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv applies DIVERIFY_* variables over the defaults.
func FromEnv() (Config, error) {
	cfg := Default()

	if v, ok := os.LookupEnv("DIVERIFY_LOG_FILE"); ok {
		cfg.LogFile = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("DIVERIFY_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("DIVERIFY_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("DIVERIFY_PORT: invalid port %q", v)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("DIVERIFY_NO_BROWSER")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("DIVERIFY_NO_BROWSER: %w", err)
		}
		cfg.NoBrowser = b
	}
	return cfg, nil
}

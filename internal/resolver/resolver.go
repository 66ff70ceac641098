// Package resolver turns a command-line input (manifest file, local
// directory, or GitHub URL) into a local path ready for loading.
package resolver

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/olehluchkiv/diverify/internal/manifest"
)

// DefaultManifest is picked up when a directory contains it.
const DefaultManifest = "diverify.yaml"

// maxSearchDepth bounds the go.mod search inside cloned repositories.
const maxSearchDepth = 3

// ErrUnsupportedInput is returned for files that are not manifests.
var ErrUnsupportedInput = errors.New("resolver: input is neither a manifest nor a directory")

// Kind tells the pipeline how to load a resolved input.
type Kind int

const (
	// KindManifest is a YAML or JSON registration manifest.
	KindManifest Kind = iota
	// KindModule is a directory inside a Go module, scanned for directives.
	KindModule
)

func (k Kind) String() string {
	if k == KindManifest {
		return "manifest"
	}
	return "module"
}

// Input is a resolved, local input.
type Input struct {
	Kind       Kind
	Path       string // manifest file or package directory
	ModuleRoot string // set for KindModule
}

// Resolve takes an input (manifest, local dir, sub-package path, or GitHub URL)
// and returns a local input ready for loading, plus a cleanup function.
func Resolve(ctx context.Context, input string, logger *slog.Logger) (Input, func(), error) {
	cleanup := func() {} // default no-op

	if isGitHubURL(input) {
		root, err := fetchRepo(ctx, input, logger)
		if err != nil {
			return Input{}, cleanup, err
		}
		return moduleOrManifest(ctx, root, root, logger), cleanup, nil
	}

	absPath, err := filepath.Abs(input)
	if err != nil {
		return Input{}, cleanup, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Input{}, cleanup, fmt.Errorf("stat %s: %w", absPath, err)
	}

	if !info.IsDir() {
		if !manifest.IsManifestFile(absPath) {
			return Input{}, cleanup, fmt.Errorf("%w: %s", ErrUnsupportedInput, absPath)
		}
		logger.Info("resolved manifest", "input", input, "path", absPath)
		return Input{Kind: KindManifest, Path: absPath}, cleanup, nil
	}

	if m := filepath.Join(absPath, DefaultManifest); fileExists(m) {
		logger.Info("resolved manifest", "input", input, "path", m)
		return Input{Kind: KindManifest, Path: m}, cleanup, nil
	}

	// Find module root (nearest go.mod)
	modRoot, err := findModuleRoot(absPath)
	if err != nil {
		return Input{}, cleanup, err
	}
	logger.Info("resolved local directory", "input", input, "module_root", modRoot)
	return moduleOrManifest(ctx, absPath, modRoot, logger), cleanup, nil
}

// moduleOrManifest prefers a manifest at the module root over directives.
func moduleOrManifest(ctx context.Context, dir, modRoot string, logger *slog.Logger) Input {
	if m := filepath.Join(modRoot, DefaultManifest); dir == modRoot && fileExists(m) {
		return Input{Kind: KindManifest, Path: m}
	}
	// Run go mod download to ensure deps are available
	if err := goModDownload(ctx, modRoot, logger); err != nil {
		logger.Warn("go mod download failed", "error", err)
	}
	return Input{Kind: KindModule, Path: dir, ModuleRoot: modRoot}
}

func isGitHubURL(input string) bool {
	return strings.Contains(input, "github.com") &&
		(strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// cacheDir returns a stable directory for caching a cloned repo.
// Uses ~/.cache/diverify/repos/<hash> where hash is derived from the URL.
func cacheDir(url string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	h := sha256.Sum256([]byte(url))
	name := fmt.Sprintf("%x", h[:8])
	return filepath.Join(home, ".cache", "diverify", "repos", name), nil
}

// fetchRepo either updates an existing cached clone or does a fresh clone,
// and returns the module root inside it.
func fetchRepo(ctx context.Context, url string, logger *slog.Logger) (string, error) {
	dir, err := cacheDir(url)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return cloneRepo(ctx, url, dir, logger)
	}

	logger.Info("updating cached repository", "url", url, "dir", dir)
	for _, args := range [][]string{
		{"fetch", "--depth=1", "origin"},
		{"reset", "--hard", "origin/HEAD"},
	} {
		if err := git(ctx, dir, args...); err != nil {
			logger.Warn("git "+args[0]+" failed, will re-clone", "error", err)
			_ = os.RemoveAll(dir)
			return cloneRepo(ctx, url, dir, logger)
		}
	}
	logger.Info("repository updated", "dir", dir)

	modRoot, err := findModuleRootInTree(dir)
	if err != nil {
		return "", fmt.Errorf("cached repo: %w", err)
	}
	logger.Info("found module root", "module_root", modRoot)
	return modRoot, nil
}

func cloneRepo(ctx context.Context, url, dir string, logger *slog.Logger) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	logger.Info("cloning repository", "url", url, "dest", dir)
	if err := git(ctx, "", "clone", "--depth=1", url, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("git clone: %w", err)
	}
	logger.Info("clone complete", "dest", dir)

	// go.mod may not be at the repo root
	modRoot, err := findModuleRootInTree(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("cloned repo: %w", err)
	}
	logger.Info("found module root", "module_root", modRoot)
	return modRoot, nil
}

func git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func findModuleRoot(dir string) (string, error) {
	current := dir
	for {
		if fileExists(filepath.Join(current, "go.mod")) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no go.mod found in %s or any parent directory", dir)
		}
		current = parent
	}
}

// findModuleRootInTree searches root and its subdirectories breadth-first for
// a go.mod file. The shallowest match wins; ties go to the alphabetically first
// directory. Hidden, vendor and node_modules directories are skipped.
func findModuleRootInTree(root string) (string, error) {
	level := []string{root}
	for depth := 0; depth <= maxSearchDepth && len(level) > 0; depth++ {
		var next []string
		for _, dir := range level {
			if fileExists(filepath.Join(dir, "go.mod")) {
				return dir, nil
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				return "", err
			}
			// ReadDir returns entries sorted by name.
			for _, e := range entries {
				if e.IsDir() && !skipDir(e.Name()) {
					next = append(next, filepath.Join(dir, e.Name()))
				}
			}
		}
		level = next
	}
	return "", fmt.Errorf("no go.mod found in %s within %d levels", root, maxSearchDepth)
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata"
}

func goModDownload(ctx context.Context, dir string, logger *slog.Logger) error {
	logger.Debug("running go mod download", "dir", dir)
	cmd := exec.CommandContext(ctx, "go", "mod", "download")
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

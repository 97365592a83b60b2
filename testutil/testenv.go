// Package testutil provides shared test environment helpers. It
// depends only on stdlib so that external test tooling can use it
// without importing internal/.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly). Existing
// env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// DiskToken resolves the remote-store token for live-store tests,
// loading a repo-root .env first so local runs pick up the same file
// the service reads. Tests that hit the real store have no fake to
// fall back to, so a missing token skips t rather than failing it.
func DiskToken(t *testing.T) string {
	t.Helper()

	LoadDotEnv(filepath.Join(FindModuleRoot("."), ".env"))

	tok := os.Getenv("YANDEX_DISK_TOKEN")
	if tok == "" {
		t.Skip("YANDEX_DISK_TOKEN not set; live-store test skipped")
	}

	return tok
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

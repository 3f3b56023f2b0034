package config

import (
	"os"
	"path/filepath"
	"testing"

	"undr/internal/undrerrors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "undr.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
directory = "ds"

[[datasets]]
name = "nmnist"
url = "https://example.org/nmnist/"
mode = "local"
timeout = 30.0

[[datasets]]
name = "dvsgesture"
url = "https://example.org/dvsgesture/"
mode = "disabled"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Directory != filepath.Join(dir, "ds") {
		t.Fatalf("got directory %q", cfg.Directory)
	}
	if len(cfg.Datasets) != 2 {
		t.Fatalf("got %d datasets", len(cfg.Datasets))
	}
	if _, err := os.Stat(cfg.Directory); err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}
	enabled := cfg.Enabled()
	if len(enabled) != 1 || enabled[0].Name != "nmnist" {
		t.Fatalf("got enabled %+v", enabled)
	}
	if got := enabled[0].TimeoutDuration().Seconds(); got != 30.0 {
		t.Fatalf("got timeout %v", got)
	}
}

func TestLoadDefaultsDirectoryAndTimeout(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[[datasets]]
name = "a"
url = "https://example.org/a/"
mode = "raw"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Directory != filepath.Join(dir, "datasets") {
		t.Fatalf("got directory %q", cfg.Directory)
	}
	if got := cfg.Datasets[0].TimeoutDuration().Seconds(); got != 60.0 {
		t.Fatalf("got default timeout %v", got)
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[[datasets]]
name = "a"
url = "https://example.org/a/"
mode = "remote"

[[datasets]]
name = "a"
url = "https://example.org/b/"
mode = "remote"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
	var dup *undrerrors.DuplicateNameError
	if !asDuplicateNameError(err, &dup) {
		t.Fatalf("expected DuplicateNameError, got %v", err)
	}
}

func asDuplicateNameError(err error, target **undrerrors.DuplicateNameError) bool {
	if d, ok := err.(*undrerrors.DuplicateNameError); ok {
		*target = d
		return true
	}
	return false
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[[datasets]]
name = "a"
url = "https://example.org/a/"
mode = "weird"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckForUploadAcceptsDirectory(t *testing.T) {
	dir := t.TempDir()
	cmd := newCheckForUploadCmd(&RootOpts{})
	if err := cmd.RunE(cmd, []string{dir}); err != nil {
		t.Fatalf("RunE: %v", err)
	}
}

func TestCheckForUploadRejectsMissingPath(t *testing.T) {
	cmd := newCheckForUploadCmd(&RootOpts{})
	if err := cmd.RunE(cmd, []string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestCheckForUploadRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	cmd := newCheckForUploadCmd(&RootOpts{})
	if err := cmd.RunE(cmd, []string{path}); err == nil {
		t.Fatal("expected an error for a plain file")
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCmdWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undr.toml")
	ro := &RootOpts{Configuration: path}
	cmd := newInitCmd(ro)

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected a non-empty config file")
	}
}

func TestInitCmdRefusesToOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undr.toml")
	if err := os.WriteFile(path, []byte("directory = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ro := &RootOpts{Configuration: path}
	cmd := newInitCmd(ro)
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected an error when the config file already exists")
	}

	ro.Force = true
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE with --force: %v", err)
	}
}

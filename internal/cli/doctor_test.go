// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDoctorCmdAcceptsValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "undr.toml")
	body := "directory = \"datasets\"\n\n[[datasets]]\nname = \"a\"\nurl = \"https://example.invalid/a\"\nmode = \"remote\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	ro := &RootOpts{Configuration: path}
	cmd := newDoctorCmd(ro)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE: %v", err)
	}
}

func TestDoctorCmdReportsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "undr.toml")
	body := "directory = \"datasets\"\n\n[[datasets]]\nname = \"a\"\nmode = \"not-a-real-mode\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	ro := &RootOpts{Configuration: path}
	cmd := newDoctorCmd(ro)
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected an error for an invalid dataset mode")
	}
}

func TestDoctorCmdReportsMissingConfig(t *testing.T) {
	ro := &RootOpts{Configuration: filepath.Join(t.TempDir(), "missing.toml")}
	cmd := newDoctorCmd(ro)
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"undr/internal/indextask"
	"undr/internal/pathid"
)

func TestRenderBibtexOneEntryPerDoi(t *testing.T) {
	dois := []indextask.Doi{
		{PathId: pathid.New("ds"), Value: "10.1/dataset"},
		{PathId: pathid.New("ds", "a.es"), Value: "10.1/file"},
	}

	out := renderBibtex(dois)

	if got := strings.Count(out, "@misc{"); got != 2 {
		t.Fatalf("got %d entries want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "doi = {10.1/dataset}") {
		t.Fatalf("missing dataset doi:\n%s", out)
	}
	if !strings.Contains(out, "doi = {10.1/file}") {
		t.Fatalf("missing file doi:\n%s", out)
	}
	if !strings.Contains(out, "@misc{ds_a_es,") {
		t.Fatalf("expected sanitized key ds_a_es:\n%s", out)
	}
}

func TestRenderBibtexEmpty(t *testing.T) {
	if got := renderBibtex(nil); got != "" {
		t.Fatalf("got %q want empty string", got)
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"undr/internal/config"
	"undr/internal/indextask"
	"undr/internal/orchestrator"
)

var bibtexKeyReplacer = strings.NewReplacer("/", "_", ".", "_", ":", "_")

// renderBibtex writes one @misc entry per Doi, keyed off its sanitized
// PathId so every entry has a unique, BibTeX-safe citation key.
func renderBibtex(dois []indextask.Doi) string {
	var b strings.Builder
	for _, d := range dois {
		key := bibtexKeyReplacer.Replace(d.PathId.String())
		fmt.Fprintf(&b, "@misc{%s,\n  doi = {%s},\n  note = {%s},\n}\n\n", key, d.Value, d.PathId.String())
	}
	return b.String()
}

// newBibtexCmd indexes every enabled dataset with DoiSelector and writes one
// minimal @misc entry per discovered DOI. The real BibTeX fetcher (resolving
// each DOI against a metadata service for title/author/year) is the external
// collaborator spec.md §1 leaves out of scope; this subcommand only does the
// in-scope half, collecting the DOIs themselves via orchestrator.Dois.
func newBibtexCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "bibtex <out>",
		Short: "Write a BibTeX stub listing every dataset's and file's DOI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(ro.Configuration)
			if err != nil {
				return err
			}
			enabled := cfg.Enabled()
			if len(enabled) == 0 {
				return fmt.Errorf("cli: no enabled datasets in %s", ro.Configuration)
			}

			o := &orchestrator.Orchestrator{
				PathRoot: cfg.Directory,
				Datasets: enabled,
				Workers:  ro.Workers,
				Force:    ro.Force,
			}

			dois, err := o.Dois(ctx)
			if err != nil {
				return fmt.Errorf("bibtex: %w", err)
			}

			if err := os.WriteFile(args[0], []byte(renderBibtex(dois)), 0o644); err != nil {
				return fmt.Errorf("bibtex: write %s: %w", args[0], err)
			}
			fmt.Printf("wrote %d entries to %s\n", len(dois), args[0])
			return nil
		},
	}
}

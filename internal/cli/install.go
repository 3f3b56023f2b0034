// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"undr/internal/config"
	"undr/internal/orchestrator"
	"undr/internal/tui"
)

func newInstallCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Index and install every enabled dataset in the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(ro.Configuration)
			if err != nil {
				return err
			}
			enabled := cfg.Enabled()
			if len(enabled) == 0 {
				return fmt.Errorf("cli: no enabled datasets in %s", ro.Configuration)
			}
			if ro.Timeout > 0 {
				for i := range enabled {
					enabled[i].Timeout = ro.Timeout
				}
			}

			names := make([]string, len(enabled))
			for i, ds := range enabled {
				names[i] = ds.Name
			}
			renderer := tui.NewRenderer()
			renderer.Prepare(names)
			if err := renderer.Start(); err != nil {
				return err
			}

			o := &orchestrator.Orchestrator{
				PathRoot: cfg.Directory,
				Datasets: enabled,
				Workers:  ro.Workers,
				Force:    ro.Force,
				Display:  renderer,
			}

			statuses, err := o.Install(ctx)
			renderer.Close()
			if err != nil {
				return fmt.Errorf("install: %w", err)
			}

			for _, ds := range enabled {
				st := statuses[ds.Name]
				ro.logger.Printf("%s: %d/%d directories scanned", ds.Name, st.Current, st.Final)
			}
			return nil
		},
	}
}

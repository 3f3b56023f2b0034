// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigTemplate = `# UNDR dataset configuration.
# directory is where installed/indexed data lands, relative to this file
# unless absolute.
directory = "datasets"

[[datasets]]
name = "example"
url = "https://example.org/datasets/example"
mode = "local"   # disabled | remote | local | raw
timeout = 60.0
`

func newInitCmd(ro *RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter dataset configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(ro.Configuration); err == nil && !ro.Force {
				return fmt.Errorf("cli: %s already exists (use --force to overwrite)", ro.Configuration)
			}
			if err := os.WriteFile(ro.Configuration, []byte(defaultConfigTemplate), 0o644); err != nil {
				return fmt.Errorf("cli: write %s: %w", ro.Configuration, err)
			}
			fmt.Printf("wrote %s\n", ro.Configuration)
			return nil
		},
	}
}

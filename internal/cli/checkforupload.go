// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newCheckForUploadCmd is a thin stub documenting the boundary: spec.md §1
// does not define what "ready for upload" means; this subcommand only checks
// that the path exists and is a directory. Any
// dataset-specific upload-readiness policy belongs to an external
// collaborator this command does not implement.
func newCheckForUploadCmd(ro *RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "check-for-upload <path>",
		Short: "Verify a local path exists and is a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("check-for-upload: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("check-for-upload: %s is not a directory", args[0])
			}
			fmt.Printf("%s exists and is a directory\n", args[0])
			return nil
		},
	}
}

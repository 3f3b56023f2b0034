// Package installmode names the per-dataset install strategy read from the
// TOML configuration (§6.1), mirroring install_mode.py's Mode enum.
package installmode

import "fmt"

// Mode selects how much of a dataset's content install fetches locally.
type Mode string

const (
	// Disabled excludes the dataset from install entirely.
	Disabled Mode = "disabled"
	// Remote indexes the dataset but never downloads file content.
	Remote Mode = "remote"
	// Local downloads each file's best-compression form as-is.
	Local Mode = "local"
	// Raw downloads and decompresses every file.
	Raw Mode = "raw"
)

// Parse validates a TOML mode string.
func Parse(s string) (Mode, error) {
	switch Mode(s) {
	case Disabled, Remote, Local, Raw:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("installmode: unknown mode %q", s)
	}
}

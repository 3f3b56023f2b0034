// Package config loads the TOML dataset configuration (§6.1), the external
// collaborator the core treats as a pure data source. Ported from
// configuration.py's configuration_from_path, with go-toml/v2's struct-tag
// decode standing in for the Python side's JSON-schema validation pass —
// the schema's only remaining job, duplicate-name detection, is kept as an
// explicit check since go-toml has no notion of "unique across a list".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"undr/internal/installmode"
	"undr/internal/undrerrors"
)

// DatasetSettings is one `[[datasets]]` table.
type DatasetSettings struct {
	Name    string  `toml:"name"`
	URL     string  `toml:"url"`
	Mode    string  `toml:"mode"`
	Timeout float64 `toml:"timeout"`
}

// Config is the parsed, validated configuration file.
type Config struct {
	Directory string            `toml:"directory"`
	Datasets  []DatasetSettings `toml:"datasets"`
}

type rawConfig struct {
	Directory string            `toml:"directory"`
	Datasets  []DatasetSettings `toml:"datasets"`
}

// Load reads and validates the TOML configuration at path. Directory is
// resolved relative to path's containing directory when it is not already
// absolute, and is created if missing. Duplicate dataset names are fatal.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed rawConfig
	if err := toml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	directory := parsed.Directory
	if directory == "" {
		directory = "datasets"
	}
	if !filepath.IsAbs(directory) {
		directory = filepath.Join(filepath.Dir(path), directory)
	}

	seen := make(map[string]struct{}, len(parsed.Datasets))
	for _, ds := range parsed.Datasets {
		if _, ok := seen[ds.Name]; ok {
			return nil, &undrerrors.DuplicateNameError{Scope: "configuration datasets", Name: ds.Name}
		}
		seen[ds.Name] = struct{}{}
		if _, err := installmode.Parse(ds.Mode); err != nil {
			return nil, fmt.Errorf("config: dataset %q: %w", ds.Name, err)
		}
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("config: create directory %s: %w", directory, err)
	}

	return &Config{Directory: directory, Datasets: parsed.Datasets}, nil
}

// Enabled returns every dataset whose mode is not "disabled".
func (c *Config) Enabled() []DatasetSettings {
	out := make([]DatasetSettings, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		if ds.Mode != string(installmode.Disabled) {
			out = append(out, ds)
		}
	}
	return out
}

// TimeoutDuration returns the dataset's configured HTTP timeout, defaulting to 60s
// when unset (§5's "default 60 s" per-request timeout).
func (d DatasetSettings) TimeoutDuration() time.Duration {
	if d.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(d.Timeout * float64(time.Second))
}

// Package selector implements component C9: the policy object Index,
// InstallFilesRecursive and ProcessFilesRecursive all consult to decide what
// happens to each file and whether a directory needs a filesystem scan.
// Ported from json_index_tasks.py's Selector base class and configuration.py's
// InstallSelector/DoiSelector/MapSelector.
package selector

import (
	"undr/internal/installmode"
	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/records"
	"undr/internal/store"
)

// Action is the per-file decision a Selector returns.
type Action int

const (
	// Ignore skips the file and never reports it.
	Ignore Action = iota
	// Doi skips the file, but its own Doi (if any) is still published.
	Doi
	// Skip skips the file but reports it as both downloaded and processed.
	Skip
	// DownloadSkip skips decompress/process but reports the file as downloaded.
	DownloadSkip
	// Download fetches the file's raw (best-compression) bytes and stops.
	Download
	// Decompress fetches and decompresses the file, leaving decoded bytes on
	// disk.
	Decompress
	// Process fetches, decompresses, and streams every decoded byte to a map
	// handler.
	Process
)

// IsSkipAction reports whether action reports the file as already handled
// without any further work (Skip, DownloadSkip).
func IsSkipAction(a Action) bool {
	return a == Skip || a == DownloadSkip
}

// ReportsDownload reports whether action counts the file as downloaded once
// complete.
func ReportsDownload(a Action) bool {
	switch a {
	case Skip, DownloadSkip, Download, Decompress, Process:
		return true
	default:
		return false
	}
}

// ReportsProcess reports whether action counts the file as processed once
// complete.
func ReportsProcess(a Action) bool {
	switch a {
	case Skip, Decompress, Process:
		return true
	default:
		return false
	}
}

// InstallIgnoresLocalState reports whether action never touches the local
// filesystem at all. Index and the install task decide whether to scan
// through Selector.ScanFilesystem, not through this helper.
func InstallIgnoresLocalState(a Action) bool {
	switch a {
	case Ignore, Doi, Skip, DownloadSkip:
		return true
	default:
		return false
	}
}

// Selector is the policy interface consulted for every file and directory
// encountered while walking a dataset's manifest tree.
type Selector interface {
	// Action returns the decision for one file. dir is the PathId of the
	// directory the file was listed in, letting a Selector key a durable
	// Store (or any other per-file state) by the file's full PathId rather
	// than its bare name.
	Action(dir pathid.PathId, file manifest.FileDescriptor) Action
	// ScanFilesystem reports whether a directory's on-disk contents must be
	// compared against its manifest (used to detect partial/stale local
	// state); returning false lets Index skip an otherwise-expensive walk.
	ScanFilesystem(dir manifest.Directory) bool
}

// InstallSelector drives a plain install, picking one fixed action for every
// file according to the dataset's install mode.
type InstallSelector struct {
	action Action
	scan   bool
}

// NewInstallSelector builds the InstallSelector for mode.
func NewInstallSelector(mode installmode.Mode) InstallSelector {
	switch mode {
	case installmode.Remote:
		return InstallSelector{action: Ignore, scan: false}
	case installmode.Local:
		return InstallSelector{action: Download, scan: true}
	case installmode.Raw:
		return InstallSelector{action: Decompress, scan: true}
	default:
		panic("selector: unexpected install mode")
	}
}

func (s InstallSelector) Action(pathid.PathId, manifest.FileDescriptor) Action { return s.action }
func (s InstallSelector) ScanFilesystem(manifest.Directory) bool               { return s.scan }

// DoiSelector walks a manifest tree purely to collect Doi identifiers,
// touching no file content and no local filesystem state.
type DoiSelector struct{}

func (DoiSelector) Action(pathid.PathId, manifest.FileDescriptor) Action { return Doi }
func (DoiSelector) ScanFilesystem(manifest.Directory) bool               { return false }

// MapSelector drives a Map task: files whose Properties.Type is in
// EnabledTypes are processed (or skipped if Store already has them
// recorded), everything else is ignored outright.
type MapSelector struct {
	EnabledTypes map[records.Kind]bool
	Store        *store.ReadOnlyStore
}

func (s MapSelector) Action(dir pathid.PathId, file manifest.FileDescriptor) Action {
	kind := records.KindFromTypeName(file.Properties.Type)
	if !s.EnabledTypes[kind] {
		return Ignore
	}
	if s.Store != nil && s.Store.Contains(dir.Join(file.Name).String()) {
		return Skip
	}
	return Process
}

func (s MapSelector) ScanFilesystem(manifest.Directory) bool {
	return len(s.EnabledTypes) > 0
}

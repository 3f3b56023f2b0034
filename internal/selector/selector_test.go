package selector

import (
	"path/filepath"
	"testing"

	"undr/internal/installmode"
	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/records"
	"undr/internal/store"
)

var testDir = pathid.New("ds")

func TestInstallSelectorRemoteIgnoresEverything(t *testing.T) {
	s := NewInstallSelector(installmode.Remote)
	if got := s.Action(testDir, manifest.FileDescriptor{}); got != Ignore {
		t.Fatalf("got %v want Ignore", got)
	}
	if s.ScanFilesystem(manifest.Directory{}) {
		t.Fatal("remote mode should never scan the filesystem")
	}
}

func TestInstallSelectorLocalDownloads(t *testing.T) {
	s := NewInstallSelector(installmode.Local)
	if got := s.Action(testDir, manifest.FileDescriptor{}); got != Download {
		t.Fatalf("got %v want Download", got)
	}
	if !s.ScanFilesystem(manifest.Directory{}) {
		t.Fatal("local mode should scan the filesystem")
	}
}

func TestInstallSelectorRawDecompresses(t *testing.T) {
	s := NewInstallSelector(installmode.Raw)
	if got := s.Action(testDir, manifest.FileDescriptor{}); got != Decompress {
		t.Fatalf("got %v want Decompress", got)
	}
}

func TestDoiSelectorNeverScans(t *testing.T) {
	var s DoiSelector
	if got := s.Action(testDir, manifest.FileDescriptor{}); got != Doi {
		t.Fatalf("got %v want Doi", got)
	}
	if s.ScanFilesystem(manifest.Directory{}) {
		t.Fatal("DoiSelector should never scan")
	}
}

func TestMapSelectorIgnoresDisabledTypes(t *testing.T) {
	s := MapSelector{EnabledTypes: map[records.Kind]bool{records.DVS: true}}
	aps := manifest.FileDescriptor{Name: "a.aps", Properties: manifest.Properties{Type: "aps"}}
	if got := s.Action(testDir, aps); got != Ignore {
		t.Fatalf("got %v want Ignore", got)
	}
	dvs := manifest.FileDescriptor{Name: "a.es", Properties: manifest.Properties{Type: "dvs"}}
	if got := s.Action(testDir, dvs); got != Process {
		t.Fatalf("got %v want Process", got)
	}
}

func TestMapSelectorSkipsAlreadyStoredFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	st, err := store.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()
	st.Add(testDir.Join("a.es").String())
	st.Commit()

	s := MapSelector{
		EnabledTypes: map[records.Kind]bool{records.DVS: true},
		Store:        &st.ReadOnlyStore,
	}
	dvs := manifest.FileDescriptor{Name: "a.es", Properties: manifest.Properties{Type: "dvs"}}
	if got := s.Action(testDir, dvs); got != Skip {
		t.Fatalf("got %v want Skip", got)
	}
	other := manifest.FileDescriptor{Name: "b.es", Properties: manifest.Properties{Type: "dvs"}}
	if got := s.Action(testDir, other); got != Process {
		t.Fatalf("got %v want Process", got)
	}
}

func TestMapSelectorScanFilesystemReflectsEnabledTypes(t *testing.T) {
	empty := MapSelector{}
	if empty.ScanFilesystem(manifest.Directory{}) {
		t.Fatal("expected no scan with zero enabled types")
	}
	nonEmpty := MapSelector{EnabledTypes: map[records.Kind]bool{records.IMU: true}}
	if !nonEmpty.ScanFilesystem(manifest.Directory{}) {
		t.Fatal("expected scan with at least one enabled type")
	}
}

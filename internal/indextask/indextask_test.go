package indextask

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/remote"
	"undr/internal/selector"
	"undr/internal/taskpool"
)

type alwaysProcess struct{}

func (alwaysProcess) Action(pathid.PathId, manifest.FileDescriptor) selector.Action {
	return selector.Process
}
func (alwaysProcess) ScanFilesystem(manifest.Directory) bool         { return true }

type collectingManager struct {
	scheduled []taskpool.Task
	messages  []interface{}
}

func (m *collectingManager) Schedule(task taskpool.Task, priority int) {
	m.scheduled = append(m.scheduled, task)
}

func (m *collectingManager) SendMessage(message interface{}) {
	m.messages = append(m.messages, message)
}

const rootManifest = `{
  "version": "1",
  "directories": ["sub"],
  "files": [
    {"name": "a.bin", "size": 4, "hash": "h1", "doi": "",
     "compressions": [{"type": "none", "suffix": "", "size": 4, "hash": "h1"}],
     "properties": {"type": "dvs"}, "metadata": {}}
  ],
  "other_files": []
}`

const subManifest = `{
  "version": "1",
  "directories": [],
  "files": [],
  "other_files": []
}`

func TestIndexRunLoadsAndSchedulesChildren(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/-index.json":
			fmt.Fprint(w, rootManifest)
		case "/sub/-index.json":
			fmt.Fprint(w, subManifest)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	task := &Index{
		PathRoot:  dir,
		PathId:    pathid.New("ds"),
		Server:    remote.Server{URL: srv.URL},
		Manifests: manifest.NewStore(),
		Selector:  alwaysProcess{},
		Priority:  0,
	}
	mgr := &collectingManager{}
	if err := task.Run(context.Background(), srv.Client(), mgr); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(mgr.scheduled) != 1 {
		t.Fatalf("expected 1 scheduled child Index task, got %d", len(mgr.scheduled))
	}
	child, ok := mgr.scheduled[0].(*Index)
	if !ok {
		t.Fatalf("expected *Index, got %T", mgr.scheduled[0])
	}
	if child.PathId.String() != "ds/sub" {
		t.Fatalf("expected child path ds/sub, got %s", child.PathId.String())
	}

	var sawLoaded bool
	var sawScanned DirectoryScanned
	for _, m := range mgr.messages {
		switch v := m.(type) {
		case IndexLoaded:
			sawLoaded = true
			if v.Children != 1 {
				t.Fatalf("expected 1 child, got %d", v.Children)
			}
		case DirectoryScanned:
			sawScanned = v
		}
	}
	if !sawLoaded {
		t.Fatal("expected an IndexLoaded message")
	}
	if sawScanned.FinalCount != 1 {
		t.Fatalf("expected FinalCount=1, got %d", sawScanned.FinalCount)
	}
	if sawScanned.DownloadBytes.Final != 4 {
		t.Fatalf("expected DownloadBytes.Final=4, got %d", sawScanned.DownloadBytes.Final)
	}
	if sawScanned.ProcessBytes.Final != 4 {
		t.Fatalf("expected ProcessBytes.Final=4, got %d", sawScanned.ProcessBytes.Final)
	}

	if _, err := os.Stat(filepath.Join(dir, "ds/-index.json")); err != nil {
		t.Fatalf("expected -index.json to be downloaded: %v", err)
	}
}

func TestIndexRunSkipsScanWhenSelectorSaysSo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, subManifest)
	}))
	defer srv.Close()

	dir := t.TempDir()
	task := &Index{
		PathRoot:  dir,
		PathId:    pathid.New("ds"),
		Server:    remote.Server{URL: srv.URL},
		Manifests: manifest.NewStore(),
		Selector:  selector.DoiSelector{},
	}
	mgr := &collectingManager{}
	if err := task.Run(context.Background(), srv.Client(), mgr); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

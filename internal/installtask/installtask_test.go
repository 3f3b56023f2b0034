package installtask

import (
	"context"
	"crypto/sha3"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"undr/internal/compress"
	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/remote"
	"undr/internal/selector"
	"undr/internal/taskpool"
)

func hashHex(b []byte) string {
	h := sha3.New224()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

type alwaysProcess struct{}

func (alwaysProcess) Action(pathid.PathId, manifest.FileDescriptor) selector.Action {
	return selector.Process
}
func (alwaysProcess) ScanFilesystem(manifest.Directory) bool         { return true }

type runningManager struct {
	client   *http.Client
	ctx      context.Context
	messages []interface{}
}

func (m *runningManager) Schedule(task taskpool.Task, priority int) {
	if err := task.Run(m.ctx, m.client, m); err != nil {
		panic(err)
	}
}

func (m *runningManager) SendMessage(message interface{}) {
	m.messages = append(m.messages, message)
}

func TestDecompressFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := []byte("decompressed content goes here, word aligned")
	if err := os.WriteFile(filepath.Join(dir, "a.bin.none"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	task := DecompressFile{
		PathRoot:     dir,
		PathId:       pathid.New("a.bin"),
		Compression:  compress.Compression{Kind: compress.None, Suffix: ".none"},
		ExpectedHash: hashHex(content),
		WordSize:     1,
	}
	mgr := &runningManager{client: http.DefaultClient, ctx: context.Background()}
	if err := task.Run(context.Background(), http.DefaultClient, mgr); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.bin"))
	if err != nil {
		t.Fatalf("read decompressed file: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q want %q", got, content)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.bin.none")); !os.IsNotExist(err) {
		t.Fatal("expected compressed source to be removed")
	}
}

func TestInstallFilesRecursiveFreshInstall(t *testing.T) {
	content := []byte("raw file contents")
	rootManifest := fmt.Sprintf(`{
  "version": "1",
  "directories": [],
  "files": [
    {"name": "a.bin", "size": %d, "hash": "%s", "doi": "",
     "compressions": [{"type": "none", "suffix": "", "size": %d, "hash": "%s"}],
     "properties": {"type": "other"}, "metadata": {}}
  ],
  "other_files": []
}`, len(content), hashHex(content), len(content), hashHex(content))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "ds"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ds/-index.json"), []byte(rootManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	task := &InstallFilesRecursive{
		PathRoot:  dir,
		PathId:    pathid.New("ds"),
		Server:    remote.Server{URL: srv.URL},
		Manifests: manifest.NewStore(),
		Selector:  alwaysProcess{},
	}
	mgr := &runningManager{client: srv.Client(), ctx: context.Background()}
	if err := task.Run(context.Background(), srv.Client(), mgr); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "ds/a.bin"))
	if err != nil {
		t.Fatalf("expected a.bin to be downloaded: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q want %q", got, content)
	}
}

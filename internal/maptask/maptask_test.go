package maptask

import (
	"context"
	"crypto/sha3"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"undr/internal/fileio"
	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/records"
	"undr/internal/selector"
	"undr/internal/taskpool"
)

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

func hashHex(b []byte) string {
	h := sha3.New224()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func TestSwitchEnabledTypes(t *testing.T) {
	s := Switch{HandleDVS: func(fileio.File, SendMessage) {}}
	enabled := s.EnabledTypes()
	if !enabled[records.DVS] {
		t.Fatal("expected DVS enabled")
	}
	if enabled[records.IMU] {
		t.Fatal("did not expect IMU enabled")
	}
}

func TestProcessFileRunsHandlerAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	content := []byte("dvs bytes")
	if err := os.WriteFile(filepath.Join(dir, "a.es"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	var handlerCalled bool
	sw := Switch{
		HandleDVS: func(file fileio.File, send SendMessage) {
			handlerCalled = true
			send("hello")
		},
	}
	file := fileio.File{
		PathRoot: dir,
		PathId:   pathid.New("a.es"),
		Hash:     hashHex(content),
		Manager:  &collectingManager{},
	}
	task := ProcessFile{File: file, Kind: records.DVS, Switch: sw}
	mgr := &collectingManager{}
	if err := task.Run(context.Background(), http.DefaultClient, mgr); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !handlerCalled {
		t.Fatal("expected handler to run")
	}
	var sawProgress bool
	var sawMapMessage bool
	for _, m := range mgr.messages {
		switch v := m.(type) {
		case Progress:
			sawProgress = true
		case MapMessage:
			sawMapMessage = true
			if v.Payload != "hello" {
				t.Fatalf("got payload %v", v.Payload)
			}
		}
	}
	if !sawProgress || !sawMapMessage {
		t.Fatalf("expected both Progress and MapMessage, got %v", mgr.messages)
	}
}

func TestProcessFileSurfacesHandlerPanicAsError(t *testing.T) {
	sw := Switch{
		HandleOther: func(file fileio.File, send SendMessage) {
			panic("boom")
		},
	}
	file := fileio.File{Manager: &collectingManager{}}
	task := ProcessFile{File: file, Kind: records.Other, Switch: sw}
	mgr := &collectingManager{}
	err := task.Run(context.Background(), http.DefaultClient, mgr)
	if err == nil {
		t.Fatal("expected an error from the panicking handler")
	}
}

type processEverything struct{}

func (processEverything) Action(pathid.PathId, manifest.FileDescriptor) selector.Action {
	return selector.Process
}
func (processEverything) ScanFilesystem(manifest.Directory) bool         { return false }

func TestProcessFilesRecursiveSchedulesProcessFileAndChildren(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "ds"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("payload")
	rootManifest := fmt.Sprintf(`{
  "version": "1",
  "directories": ["sub"],
  "files": [
    {"name": "a.es", "size": %d, "hash": "%s",
     "compressions": [{"type": "none", "suffix": "", "size": %d, "hash": "%s"}],
     "properties": {"type": "dvs"}, "metadata": {}}
  ],
  "other_files": []
}`, len(content), hashHex(content), len(content), hashHex(content))
	if err := os.WriteFile(filepath.Join(dir, "ds/-index.json"), []byte(rootManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	task := &ProcessFilesRecursive{
		PathRoot:  dir,
		PathId:    pathid.New("ds"),
		Manifests: manifest.NewStore(),
		Selector:  processEverything{},
		Switch:    Switch{HandleDVS: func(fileio.File, SendMessage) {}},
	}
	mgr := &collectingManager{}
	if err := task.Run(context.Background(), http.DefaultClient, mgr); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var sawProcessFile, sawChild bool
	for _, s := range mgr.scheduled {
		switch v := s.(type) {
		case ProcessFile:
			sawProcessFile = true
			if v.Kind != records.DVS {
				t.Fatalf("expected DVS kind, got %v", v.Kind)
			}
		case *ProcessFilesRecursive:
			sawChild = true
			if v.PathId.String() != "ds/sub" {
				t.Fatalf("expected child ds/sub, got %s", v.PathId.String())
			}
		}
	}
	if !sawProcessFile {
		t.Fatal("expected a ProcessFile to be scheduled")
	}
	if !sawChild {
		t.Fatal("expected a child ProcessFilesRecursive to be scheduled")
	}
}

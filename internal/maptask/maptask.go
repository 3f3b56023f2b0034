// Package maptask implements component C8: running user-provided handlers
// over every selected file's decoded content. Ported from
// json_index_tasks.py's ProcessFilesRecursive/ProcessFile and
// configuration.py's MapProcessFile/MapMessage/Switch dispatch.
package maptask

import (
	"context"
	"fmt"
	"net/http"

	"undr/internal/compress"
	"undr/internal/fileio"
	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/records"
	"undr/internal/remote"
	"undr/internal/selector"
	"undr/internal/taskpool"
)

// SendMessage lets a handler publish an application-level message without
// depending on taskpool directly.
type SendMessage func(message interface{})

// Switch dispatches a file to exactly one handler by its declared record
// kind, mirroring formats.py's Switch. A nil handler means that kind is not
// enabled for this map run.
type Switch struct {
	HandleDVS   func(file fileio.File, send SendMessage)
	HandleIMU   func(file fileio.File, send SendMessage)
	HandleAPS   func(file fileio.File, send SendMessage)
	HandleOther func(file fileio.File, send SendMessage)
}

// EnabledTypes returns the set of record kinds this switch has a handler
// for, the same set a MapSelector uses to decide what to ignore.
func (s Switch) EnabledTypes() map[records.Kind]bool {
	enabled := map[records.Kind]bool{}
	if s.HandleDVS != nil {
		enabled[records.DVS] = true
	}
	if s.HandleIMU != nil {
		enabled[records.IMU] = true
	}
	if s.HandleAPS != nil {
		enabled[records.APS] = true
	}
	if s.HandleOther != nil {
		enabled[records.Other] = true
	}
	return enabled
}

// HandleFile routes file to the handler matching kind. It panics if no
// handler is registered for kind: a Selector.Process action should never be
// returned for a kind this Switch does not enable.
func (s Switch) HandleFile(kind records.Kind, file fileio.File, send SendMessage) {
	switch kind {
	case records.DVS:
		if s.HandleDVS == nil {
			panic("maptask: no DVS handler registered")
		}
		s.HandleDVS(file, send)
	case records.IMU:
		if s.HandleIMU == nil {
			panic("maptask: no IMU handler registered")
		}
		s.HandleIMU(file, send)
	case records.APS:
		if s.HandleAPS == nil {
			panic("maptask: no APS handler registered")
		}
		s.HandleAPS(file, send)
	default:
		if s.HandleOther == nil {
			panic("maptask: no default handler registered")
		}
		s.HandleOther(file, send)
	}
}

// MapMessage wraps a message yielded by a handler so the consumer can tell
// it apart from scheduler/progress plumbing messages.
type MapMessage struct {
	Payload interface{}
}

// Progress is emitted once a file's handler has returned successfully,
// whether or not the caller keeps a durable Store of completed PathIds.
type Progress struct {
	PathId pathid.PathId
}

// ProcessFile runs one file's content through switch, publishing whatever
// messages the handler sends plus a final Progress.
type ProcessFile struct {
	File   fileio.File
	Kind   records.Kind
	Switch Switch
}

func (t ProcessFile) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	var handlerErr error
	send := func(message interface{}) {
		manager.SendMessage(MapMessage{Payload: message})
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				handlerErr = panicToError(r)
			}
		}()
		t.Switch.HandleFile(t.Kind, t.File, send)
	}()
	if handlerErr != nil {
		return handlerErr
	}
	manager.SendMessage(Progress{PathId: t.File.PathId})
	return nil
}

// ProcessFilesRecursive walks PathId's manifest, scheduling one ProcessFile
// per Selector.Process-selected file and recursing into every child
// directory.
type ProcessFilesRecursive struct {
	PathRoot  string
	PathId    pathid.PathId
	Server    remote.Server
	Manifests *manifest.Store
	Selector  selector.Selector
	Switch    Switch
	Priority  int
}

func (t *ProcessFilesRecursive) localDirPath() string {
	return t.PathRoot + "/" + t.PathId.String()
}

func (t *ProcessFilesRecursive) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	dir, err := t.Manifests.Load(t.localDirPath() + "/-index.json")
	if err != nil {
		return err
	}

	files := make([]manifest.FileDescriptor, 0, len(dir.Files)+len(dir.OtherFiles))
	files = append(files, dir.Files...)
	files = append(files, dir.OtherFiles...)

	for _, fd := range files {
		if t.Selector.Action(t.PathId, fd) != selector.Process {
			continue
		}
		kind := records.KindFromTypeName(fd.Properties.Type)
		file := fileio.File{
			PathRoot:     t.PathRoot,
			PathId:       t.PathId.Join(fd.Name),
			Size:         fd.Size,
			Hash:         fd.Hash,
			Compressions: toCompressions(fd),
			Server:       t.Server,
			Manager:      manager,
			WordSize:     records.WordSize(kind, fd.Properties.Width, fd.Properties.Height),
		}
		manager.Schedule(ProcessFile{File: file, Kind: kind, Switch: t.Switch}, t.Priority)
	}

	for _, child := range dir.Directories {
		manager.Schedule(&ProcessFilesRecursive{
			PathRoot:  t.PathRoot,
			PathId:    t.PathId.Join(child),
			Server:    t.Server,
			Manifests: t.Manifests,
			Selector:  t.Selector,
			Switch:    t.Switch,
			Priority:  t.Priority,
		}, t.Priority)
	}
	return nil
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

func toCompressions(fd manifest.FileDescriptor) []compress.Compression {
	out := make([]compress.Compression, 0, len(fd.Compressions))
	for _, c := range fd.Compressions {
		out = append(out, c.ToCompression())
	}
	return out
}

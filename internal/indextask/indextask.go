// Package indextask implements component C6: the recursive directory-index
// crawl. One Index task downloads a single "-index.json", schedules its
// child directories, and reports per-directory accounting back through the
// manager's message stream. Ported from json_index_tasks.py's Index.run.
package indextask

import (
	"context"
	"net/http"
	"os"

	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/remote"
	"undr/internal/selector"
	"undr/internal/taskpool"
)

const indexFileName = "-index.json"

// ValueRange reports an initial/final pair for one accounting dimension
// (index bytes, download bytes, process bytes).
type ValueRange struct {
	Initial int64
	Final   int64
}

// DirectoryScanned is emitted once per directory, after its index file has
// been loaded and every file it names has been classified.
type DirectoryScanned struct {
	PathId               pathid.PathId
	InitialDownloadCount int
	InitialProcessCount  int
	FinalCount           int
	IndexBytes           ValueRange
	DownloadBytes        ValueRange
	ProcessBytes         ValueRange
}

// IndexLoaded is emitted as soon as a directory's manifest has been parsed,
// before its children are scheduled.
type IndexLoaded struct {
	PathId   pathid.PathId
	Children int
}

// Doi is emitted once for a directory's or a file's own Doi, when the
// selector asks for DOI reporting.
type Doi struct {
	PathId pathid.PathId
	Value  string
}

// Index downloads and indexes the directory at PathId, recursing into every
// child directory named by its manifest.
type Index struct {
	PathRoot     string
	PathId       pathid.PathId // directory path, not the -index.json file
	Server       remote.Server
	Manifests    *manifest.Store
	Selector     selector.Selector
	Priority     int
	Force        bool
	DirectoryDoi bool
}

func (t *Index) indexPathId() pathid.PathId {
	return t.PathId.Join(indexFileName)
}

func (t *Index) localIndexPath() string {
	return t.PathRoot + "/" + t.indexPathId().String()
}

func (t *Index) localDirPath() string {
	return t.PathRoot + "/" + t.PathId.String()
}

// Run implements taskpool.Task.
func (t *Index) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	if err := os.MkdirAll(t.localDirPath(), 0o755); err != nil {
		return err
	}

	scanned := DirectoryScanned{PathId: t.PathId}
	if !t.Force {
		if info, err := os.Stat(t.localIndexPath()); err == nil {
			scanned.IndexBytes.Initial = info.Size()
		} else if info, err := os.Stat(t.localIndexPath() + remote.DownloadSuffix); err == nil {
			scanned.IndexBytes.Initial = info.Size()
		}
	}

	download := &remote.DownloadFile{
		PathRoot:     t.PathRoot,
		PathId:       t.indexPathId(),
		Server:       t.Server,
		Force:        t.Force,
		ExpectedSize: -1,
	}
	if err := download.Run(ctx, client, manager); err != nil {
		return err
	}

	dir, err := t.Manifests.Load(t.localIndexPath())
	if err != nil {
		return err
	}

	manager.SendMessage(IndexLoaded{PathId: t.PathId, Children: len(dir.Directories)})
	for _, child := range dir.Directories {
		manager.Schedule(&Index{
			PathRoot:     t.PathRoot,
			PathId:       t.PathId.Join(child),
			Server:       t.Server,
			Manifests:    t.Manifests,
			Selector:     t.Selector,
			Priority:     t.Priority,
			Force:        t.Force,
			DirectoryDoi: t.DirectoryDoi,
		}, t.Priority)
	}

	nameToSize := map[string]int64{}
	if t.Selector.ScanFilesystem(*dir) {
		entries, err := os.ReadDir(t.localDirPath())
		if err != nil {
			return err
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			nameToSize[entry.Name()] = info.Size()
		}
	} else if info, err := os.Stat(t.localIndexPath()); err == nil {
		nameToSize[indexFileName] = info.Size()
	}
	scanned.IndexBytes.Final = nameToSize[indexFileName]

	if t.DirectoryDoi && dir.Doi != "" {
		manager.SendMessage(Doi{PathId: t.PathId, Value: dir.Doi})
	}

	files := make([]manifest.FileDescriptor, 0, len(dir.Files)+len(dir.OtherFiles))
	files = append(files, dir.Files...)
	files = append(files, dir.OtherFiles...)

	for _, fd := range files {
		action := t.Selector.Action(t.PathId, fd)
		if action == selector.Ignore {
			continue
		}
		if action == selector.Doi {
			if fd.Doi != "" {
				manager.SendMessage(Doi{PathId: t.PathId.Join(fd.Name), Value: fd.Doi})
			}
			continue
		}
		scanned.FinalCount++
		if !selector.ReportsDownload(action) {
			continue
		}
		best, _ := fd.BestCompression()
		scanned.DownloadBytes.Final += best.Size
		reportsProcess := selector.ReportsProcess(action)
		if reportsProcess {
			scanned.ProcessBytes.Final += fd.Size
		}
		switch {
		case selector.IsSkipAction(action):
			scanned.InitialDownloadCount++
			scanned.DownloadBytes.Initial += best.Size
			if reportsProcess {
				scanned.InitialProcessCount++
				scanned.ProcessBytes.Initial += fd.Size
			}
		case !t.Force:
			if _, ok := nameToSize[fd.Name]; ok {
				scanned.InitialDownloadCount++
				scanned.DownloadBytes.Initial += best.Size
				if reportsProcess {
					scanned.InitialProcessCount++
					scanned.ProcessBytes.Initial += fd.Size
				}
				continue
			}
			compressedName := fd.Name + best.Suffix
			if _, ok := nameToSize[compressedName]; ok {
				scanned.InitialDownloadCount++
				scanned.DownloadBytes.Initial += best.Size
				continue
			}
			// In PROCESS mode nothing is ever persisted to disk, so a
			// partially-downloaded compressed file found here is stale; it is
			// ignored and the file is re-downloaded from scratch.
			if action == selector.Process {
				continue
			}
			if sz, ok := nameToSize[compressedName+remote.DownloadSuffix]; ok {
				// The server's declared size is authoritative; a stale
				// .download partial can overshoot it.
				scanned.DownloadBytes.Initial += min(sz, best.Size)
			}
		}
	}

	manager.SendMessage(scanned)
	return nil
}

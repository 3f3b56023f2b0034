// Package installtask implements component C7: downloading (and optionally
// decompressing) every file a Selector selects within one directory, then
// recursing into its children. Ported from json_index_tasks.py's
// InstallFilesRecursive.run and its "actual_action" decision table.
package installtask

import (
	"context"
	"io"
	"net/http"
	"os"

	"undr/internal/compress"
	"undr/internal/manifest"
	"undr/internal/pathid"
	"undr/internal/records"
	"undr/internal/remote"
	"undr/internal/selector"
	"undr/internal/taskpool"
	"undr/internal/undrerrors"
)

// uncompressedDecodeProgress emits a synthetic, already-complete decode
// message for files whose best compression is "none": DownloadFile already
// reported their bytes, so no further decompression work is needed but the
// §8 invariant "download complete implies decode complete eventually" still
// wants a decode-progress completion event.
type uncompressedDecodeProgress struct {
	pathId pathid.PathId
	size   int64
}

func (t uncompressedDecodeProgress) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	manager.SendMessage(remote.Progress{PathId: t.pathId, CurrentBytes: t.size, Complete: true})
	return nil
}

// DecompressFile reads a locally-cached compressed file, decodes it, writes
// the decoded bytes to the file's final local path, verifies the decoded
// hash, and removes the compressed source unless Keep is set.
type DecompressFile struct {
	PathRoot     string
	PathId       pathid.PathId
	Compression  compress.Compression
	ExpectedSize int64
	ExpectedHash string
	WordSize     int
	Keep         bool
}

func (t DecompressFile) compressedPath() string {
	return t.PathRoot + "/" + t.PathId.WithSuffix(t.Compression.Suffix).String()
}

func (t DecompressFile) finalPath() string {
	return t.PathRoot + "/" + t.PathId.String()
}

func (t DecompressFile) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	wordSize := t.WordSize
	if wordSize <= 0 {
		wordSize = 1
	}
	src, err := os.Open(t.compressedPath())
	if err != nil {
		return undrerrors.NewNetworkError(t.PathId.String(), err)
	}
	defer src.Close()

	dst, err := os.Create(t.finalPath() + remote.DownloadSuffix)
	if err != nil {
		return undrerrors.NewNetworkError(t.PathId.String(), err)
	}

	decoder := t.Compression.NewDecoder(wordSize)
	hasher := newSHA3224()
	buf := make([]byte, remote.ChunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			decoded, err := decoder.Decompress(buf[:n])
			if err != nil {
				dst.Close()
				return err
			}
			if len(decoded) > 0 {
				if _, werr := dst.Write(decoded); werr != nil {
					dst.Close()
					return undrerrors.NewNetworkError(t.PathId.String(), werr)
				}
				hasher.Write(decoded)
				manager.SendMessage(remote.Progress{PathId: t.PathId, CurrentBytes: int64(len(decoded)), FinalBytes: int64(len(decoded))})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			return undrerrors.NewNetworkError(t.PathId.String(), readErr)
		}
	}

	aligned, remaining, err := decoder.Finish()
	if err != nil {
		dst.Close()
		return err
	}
	if len(aligned) > 0 {
		if _, werr := dst.Write(aligned); werr != nil {
			dst.Close()
			return undrerrors.NewNetworkError(t.PathId.String(), werr)
		}
		hasher.Write(aligned)
	}
	if err := dst.Close(); err != nil {
		return undrerrors.NewNetworkError(t.PathId.String(), err)
	}
	if len(remaining) > 0 {
		return &undrerrors.TrailingBytesError{WordSize: wordSize, Remaining: len(remaining)}
	}

	digestBytes := hasher.Sum(nil)
	digest := hexString(digestBytes)
	if digest != t.ExpectedHash {
		return &undrerrors.HashMismatchError{PathId: t.PathId.String(), Expected: t.ExpectedHash, Actual: digest}
	}
	if err := os.Rename(t.finalPath()+remote.DownloadSuffix, t.finalPath()); err != nil {
		return undrerrors.NewNetworkError(t.PathId.String(), err)
	}
	if !t.Keep {
		os.Remove(t.compressedPath())
	}
	manager.SendMessage(remote.Progress{PathId: t.PathId, Complete: true})
	return nil
}

// actualAction mirrors InstallFilesRecursive.run's numbered decision table:
// 0 skip, 1 download only, 2 download + synthetic decode-complete, 3
// download then decompress, 4 decompress an already-downloaded compressed
// file.
type actualAction int

const (
	actionSkipAll actualAction = iota
	actionDownloadOnly
	actionDownloadUncompressed
	actionDownloadAndDecompress
	actionDecompressOnly
)

func decideActualAction(action selector.Action, force bool, best manifest.CompressionDescriptor, rawPresent, compressedPresent bool) actualAction {
	isNone := best.Type == "" || best.Type == "none"
	if force {
		switch {
		case action == selector.Download:
			return actionDownloadOnly
		case isNone:
			return actionDownloadUncompressed
		default:
			return actionDownloadAndDecompress
		}
	}
	switch {
	case rawPresent:
		return actionSkipAll
	case action == selector.Download:
		if compressedPresent {
			return actionSkipAll
		}
		return actionDownloadOnly
	case isNone:
		return actionDownloadUncompressed
	case compressedPresent:
		return actionDecompressOnly
	default:
		return actionDownloadAndDecompress
	}
}

// InstallFilesRecursive downloads (and optionally decompresses) every
// Selector-selected file directly under PathId, then schedules itself for
// each child directory named by the manifest.
type InstallFilesRecursive struct {
	PathRoot  string
	PathId    pathid.PathId
	Server    remote.Server
	Manifests *manifest.Store
	Selector  selector.Selector
	Priority  int
	Force     bool
}

func (t *InstallFilesRecursive) localDirPath() string {
	return t.PathRoot + "/" + t.PathId.String()
}

func (t *InstallFilesRecursive) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	dir, err := t.Manifests.Load(t.localDirPath() + "/-index.json")
	if err != nil {
		return err
	}

	names := map[string]bool{}
	if t.Selector.ScanFilesystem(*dir) {
		entries, err := os.ReadDir(t.localDirPath())
		if err != nil {
			return err
		}
		for _, entry := range entries {
			names[entry.Name()] = true
		}
	}

	files := make([]manifest.FileDescriptor, 0, len(dir.Files)+len(dir.OtherFiles))
	files = append(files, dir.Files...)
	files = append(files, dir.OtherFiles...)

	for _, fd := range files {
		action := t.Selector.Action(t.PathId, fd)
		if isInstallIgnored(action) {
			continue
		}
		best, _ := fd.BestCompression()
		fileId := t.PathId.Join(fd.Name)

		if !t.Force && action == selector.Process &&
			!names[fd.Name] && !names[fd.Name+best.Suffix] && names[fd.Name+best.Suffix+remote.DownloadSuffix] {
			os.Remove(t.PathRoot + "/" + fileId.WithSuffix(best.Suffix).String() + remote.DownloadSuffix)
		}

		decision := decideActualAction(action, t.Force, best, names[fd.Name], names[fd.Name+best.Suffix])
		if decision == actionSkipAll {
			continue
		}

		download := &remote.DownloadFile{
			PathRoot:     t.PathRoot,
			PathId:       fileId,
			Suffix:       best.Suffix,
			Server:       t.Server,
			Force:        t.Force,
			ExpectedSize: best.Size,
			ExpectedHash: best.Hash,
		}
		decompress := DecompressFile{
			PathRoot:     t.PathRoot,
			PathId:       fileId,
			Compression:  best.ToCompression(),
			ExpectedSize: fd.Size,
			ExpectedHash: fd.Hash,
			WordSize:     wordSizeFor(fd),
			Keep:         false,
		}

		switch decision {
		case actionDownloadOnly:
			manager.Schedule(download, t.Priority)
		case actionDownloadUncompressed:
			manager.Schedule(taskpool.Chain{Tasks: []taskpool.Task{download, uncompressedDecodeProgress{pathId: fileId, size: fd.Size}}}, t.Priority)
		case actionDownloadAndDecompress:
			manager.Schedule(taskpool.Chain{Tasks: []taskpool.Task{download, decompress}}, t.Priority)
		case actionDecompressOnly:
			manager.Schedule(decompress, t.Priority)
		}
	}

	for _, child := range dir.Directories {
		manager.Schedule(&InstallFilesRecursive{
			PathRoot:  t.PathRoot,
			PathId:    t.PathId.Join(child),
			Server:    t.Server,
			Manifests: t.Manifests,
			Selector:  t.Selector,
			Priority:  t.Priority,
			Force:     t.Force,
		}, t.Priority)
	}
	return nil
}

func isInstallIgnored(a selector.Action) bool {
	switch a {
	case selector.Ignore, selector.Doi, selector.Skip, selector.DownloadSkip:
		return true
	default:
		return false
	}
}

// wordSizeFor picks the decode word size implied by a file's declared type,
// so a DECOMPRESS action never splits a DVS/IMU/APS record across chunk
// boundaries (§6.3).
func wordSizeFor(fd manifest.FileDescriptor) int {
	kind := records.KindFromTypeName(fd.Properties.Type)
	return records.WordSize(kind, fd.Properties.Width, fd.Properties.Height)
}

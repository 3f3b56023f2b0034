// Package remote implements component C2: URL composition from a PathId and
// a resumable, range-aware HTTP download task. Ported from remote.py's
// Server/Download/DownloadFile lifecycle, with the chunked-write pattern
// (progress deltas per chunk, rename-on-success) adapted from the teacher's
// pkg/hfdownloader/downloader.go.
package remote

import (
	"context"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"undr/internal/pathid"
	"undr/internal/taskpool"
	"undr/internal/undrerrors"
)

// ChunkSize is the fixed streaming chunk size used throughout the download
// and decompress pipelines (constants.CHUNK_SIZE).
const ChunkSize = 65536

// StreamChunkThreshold: declared sizes at or above ChunkSize*StreamChunkThreshold
// must stream rather than buffer (constants.STREAM_CHUNK_THRESHOLD).
const StreamChunkThreshold = 64

// DownloadSuffix names the in-flight partial download file.
const DownloadSuffix = ".download"

// DefaultTimeout is the per-request HTTP timeout used when a dataset does
// not override it (constants.DEFAULT_TIMEOUT).
const DefaultTimeout = 60 * time.Second

// Progress reports a download delta or completion event for one PathId.
// InitialBytes/CurrentBytes/FinalBytes mirror remote.py's Progress: a
// negative InitialBytes/CurrentBytes/FinalBytes triple reports a rollback
// (range request rejected).
type Progress struct {
	PathId       pathid.PathId
	InitialBytes int64
	CurrentBytes int64
	FinalBytes   int64
	Complete     bool
}

// Server resolves PathIds to URLs for one dataset's base URL.
type Server struct {
	URL     string
	Timeout time.Duration
}

// Resolve concatenates the server URL with path_id.parts[1:], matching
// remote.py's Server.path_id_to_url.
func (s Server) Resolve(id pathid.PathId) string {
	parts := id.UnderlyingParts()
	if len(parts) == 0 {
		return s.URL
	}
	base := s.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.Join(parts, "/")
}

// NullServer is used by collaborators (e.g. a future doctor/check path) that
// must not issue network requests; any Resolve call panics.
type NullServer struct{}

func (NullServer) Resolve(id pathid.PathId) string {
	panic("remote: NullServer cannot resolve a URL")
}

// DownloadFile is the resumable-download task from §4.2. It downloads
// path_id (optionally with a compression suffix appended) to pathRoot,
// verifying size/hash when known and renaming the `.download` temp file to
// its final path atomically on success.
type DownloadFile struct {
	PathRoot     string
	PathId       pathid.PathId
	Suffix       string // "" for no suffix
	Server       Server
	Force        bool
	ExpectedSize int64 // <0 if unknown
	ExpectedHash string

	Timeout time.Duration
}

func (d *DownloadFile) finalLocalPath() string {
	return d.PathRoot + "/" + d.PathId.WithSuffix(d.Suffix).String()
}

func (d *DownloadFile) downloadLocalPath() string {
	return d.finalLocalPath() + DownloadSuffix
}

func (d *DownloadFile) url() string {
	if d.Suffix == "" {
		return d.Server.Resolve(d.PathId)
	}
	return d.Server.Resolve(d.PathId.WithSuffix(d.Suffix))
}

// Run executes the full §4.2 lifecycle.
func (d *DownloadFile) Run(ctx context.Context, client *http.Client, manager taskpool.Manager) error {
	finalPath := d.finalLocalPath()
	downloadPath := d.downloadLocalPath()

	if !d.Force {
		if info, err := os.Stat(finalPath); err == nil {
			size := info.Size()
			if d.ExpectedSize >= 0 {
				size = d.ExpectedSize
			}
			manager.SendMessage(Progress{PathId: d.PathId, InitialBytes: size, CurrentBytes: size, FinalBytes: size, Complete: true})
			return nil
		} else if !os.IsNotExist(err) {
			return undrerrors.NewNetworkError(d.PathId.String(), err)
		}
	}

	var h hash.Hash
	var file *os.File
	var skip int64
	var err error

	if !d.Force {
		if info, statErr := os.Stat(downloadPath); statErr == nil {
			skip = info.Size()
			if d.ExpectedHash != "" {
				h, err = hashExistingFile(downloadPath)
				if err != nil {
					return undrerrors.NewNetworkError(d.PathId.String(), err)
				}
			}
			file, err = os.OpenFile(downloadPath, os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return undrerrors.NewNetworkError(d.PathId.String(), err)
			}
			manager.SendMessage(Progress{PathId: d.PathId, InitialBytes: skip, CurrentBytes: skip, FinalBytes: skip, Complete: false})
		}
	}
	if file == nil {
		if err := os.MkdirAll(parentDir(downloadPath), 0o755); err != nil {
			return undrerrors.NewNetworkError(d.PathId.String(), err)
		}
		file, err = os.Create(downloadPath)
		if err != nil {
			return undrerrors.NewNetworkError(d.PathId.String(), err)
		}
		if d.ExpectedHash != "" {
			h = newHash()
		}
	}
	defer file.Close()

	timeout := d.Timeout
	if timeout == 0 {
		timeout = d.Server.Timeout
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	resp, cancel, rangeWasRejected, err := d.fetch(ctx, client, timeout, skip)
	if err != nil {
		return undrerrors.NewNetworkError(d.PathId.String(), err)
	}
	defer cancel()
	defer resp.Body.Close()

	if rangeWasRejected {
		file.Close()
		manager.SendMessage(Progress{PathId: d.PathId, InitialBytes: -skip, CurrentBytes: -skip, FinalBytes: -skip, Complete: false})
		if err := os.MkdirAll(parentDir(downloadPath), 0o755); err != nil {
			return undrerrors.NewNetworkError(d.PathId.String(), err)
		}
		file, err = os.Create(downloadPath)
		if err != nil {
			return undrerrors.NewNetworkError(d.PathId.String(), err)
		}
		defer file.Close()
		if d.ExpectedHash != "" {
			h = newHash()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return undrerrors.NewNetworkError(d.PathId.String(), fmt.Errorf("unexpected status %s", resp.Status))
	}

	buf := make([]byte, ChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return undrerrors.NewNetworkError(d.PathId.String(), werr)
			}
			if h != nil {
				h.Write(buf[:n])
			}
			manager.SendMessage(Progress{PathId: d.PathId, InitialBytes: 0, CurrentBytes: int64(n), FinalBytes: int64(n), Complete: false})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return undrerrors.NewNetworkError(d.PathId.String(), readErr)
		}
	}

	if err := file.Close(); err != nil {
		return undrerrors.NewNetworkError(d.PathId.String(), err)
	}
	if h != nil {
		digest := fmt.Sprintf("%x", h.Sum(nil))
		if digest != d.ExpectedHash {
			return &undrerrors.HashMismatchError{PathId: d.PathId.String(), Expected: d.ExpectedHash, Actual: digest}
		}
	}
	if d.ExpectedSize >= 0 {
		info, statErr := os.Stat(downloadPath)
		if statErr != nil {
			return undrerrors.NewNetworkError(d.PathId.String(), statErr)
		}
		if info.Size() != d.ExpectedSize {
			return &undrerrors.SizeMismatchError{PathId: d.PathId.String(), Expected: d.ExpectedSize, Actual: info.Size()}
		}
	}
	if err := os.Rename(downloadPath, finalPath); err != nil {
		return undrerrors.NewNetworkError(d.PathId.String(), err)
	}
	manager.SendMessage(Progress{PathId: d.PathId, Complete: true})
	return nil
}

// fetch issues the GET, with a Range header when skip > 0. If the server
// rejects the range request (anything but 206), it reports rangeWasRejected
// and re-issues a fresh GET. The returned cancel must be deferred by the
// caller only after the response body has been fully drained or closed: the
// timeout it establishes bounds the whole request, body included.
func (d *DownloadFile) fetch(ctx context.Context, client *http.Client, timeout time.Duration, skip int64) (*http.Response, context.CancelFunc, bool, error) {
	if skip > 0 {
		resp, cancel, err := d.doRequest(ctx, client, timeout, skip)
		if err != nil {
			return nil, nil, false, err
		}
		if resp.StatusCode == http.StatusPartialContent {
			return resp, cancel, false, nil
		}
		resp.Body.Close()
		cancel()
		resp, cancel, err = d.doRequest(ctx, client, timeout, 0)
		if err != nil {
			return nil, nil, false, err
		}
		return resp, cancel, true, nil
	}
	resp, cancel, err := d.doRequest(ctx, client, timeout, 0)
	return resp, cancel, false, err
}

func (d *DownloadFile) doRequest(ctx context.Context, client *http.Client, timeout time.Duration, skip int64) (*http.Response, context.CancelFunc, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.url(), nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if skip > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", skip))
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

func newHash() hash.Hash {
	return newSHA3224()
}

func hashExistingFile(path string) (hash.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := newHash()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h, nil
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

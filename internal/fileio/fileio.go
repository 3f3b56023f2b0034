// Package fileio implements component C5: File, the three-source streaming
// abstraction a map task consumes. Ported from path.py's File._chunks, which
// picks one of three sources depending on what is present on disk: an
// already-decompressed local file, a locally-cached compressed file, or a
// live remote download decoded on the fly.
package fileio

import (
	"context"
	"fmt"
	"hash"
	"io"
	"math"
	"net/http"
	"os"

	"undr/internal/compress"
	"undr/internal/pathid"
	"undr/internal/remote"
	"undr/internal/taskpool"
	"undr/internal/undrerrors"
)

// File describes one manifest file entry together with enough context to
// stream its decoded bytes regardless of which source currently holds it.
type File struct {
	PathRoot     string
	PathId       pathid.PathId
	Size         int64
	Hash         string
	Compressions []compress.Compression
	Server       remote.Server
	Manager      taskpool.Manager
	WordSize     int // defaults to 1 when zero
}

func (f File) wordSize() int {
	if f.WordSize <= 0 {
		return 1
	}
	return f.WordSize
}

func (f File) localPath() string {
	return f.PathRoot + "/" + f.PathId.String()
}

// bestCompression returns the smallest-size compression descriptor, the one
// preferred both for local caching and for remote fetches.
func (f File) bestCompression() (compress.Compression, error) {
	if len(f.Compressions) == 0 {
		return compress.Compression{}, fmt.Errorf("fileio: %s has no compressions", f.PathId)
	}
	best := f.Compressions[0]
	for _, c := range f.Compressions[1:] {
		if c.Size < best.Size {
			best = c
		}
	}
	return best, nil
}

func (f File) compressedLocalPath(suffix string) string {
	return f.localPath() + suffix
}

// Chunks streams the file's decoded content to onChunk, word-size-aligned,
// verifying its hash as it goes and reporting progress through f.Manager.
// It never buffers the whole file: callers that need the full content
// accumulate it themselves.
func (f File) Chunks(ctx context.Context, client *http.Client, onChunk func([]byte) error) error {
	wordSize := f.wordSize()
	if wordSize <= 0 {
		return fmt.Errorf("fileio: word size must be positive")
	}

	if info, err := os.Stat(f.localPath()); err == nil && !info.IsDir() {
		return f.chunksFromLocalRaw(wordSize, onChunk)
	}

	best, err := f.bestCompression()
	if err != nil {
		return err
	}
	if info, err := os.Stat(f.compressedLocalPath(best.Suffix)); err == nil && !info.IsDir() {
		return f.chunksFromLocalCompressed(best, wordSize, onChunk)
	}

	return f.chunksFromRemote(ctx, client, best, wordSize, onChunk)
}

func (f File) chunksFromLocalRaw(wordSize int, onChunk func([]byte) error) error {
	file, err := os.Open(f.localPath())
	if err != nil {
		return undrerrors.NewNetworkError(f.PathId.String(), err)
	}
	defer file.Close()

	chunkSize := int(math.Ceil(float64(remote.ChunkSize)/float64(wordSize))) * wordSize
	buf := make([]byte, chunkSize)
	h := newHash()
	for {
		n, readErr := io.ReadFull(file, buf)
		if n > 0 {
			chunk := buf[:n]
			if n%wordSize != 0 {
				return &undrerrors.TrailingBytesError{WordSize: wordSize, Remaining: n % wordSize}
			}
			h.Write(chunk)
			if err := onChunk(chunk); err != nil {
				return err
			}
			f.Manager.SendMessage(remote.Progress{PathId: f.PathId, CurrentBytes: int64(n), FinalBytes: int64(n)})
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return undrerrors.NewNetworkError(f.PathId.String(), readErr)
		}
	}
	return f.verifyHash(h, f.Hash)
}

func (f File) chunksFromLocalCompressed(best compress.Compression, wordSize int, onChunk func([]byte) error) error {
	file, err := os.Open(f.compressedLocalPath(best.Suffix))
	if err != nil {
		return undrerrors.NewNetworkError(f.PathId.String(), err)
	}
	defer file.Close()

	decoder := best.NewDecoder(wordSize)
	h := newHash()
	buf := make([]byte, remote.ChunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			decoded, err := decoder.Decompress(buf[:n])
			if err != nil {
				return err
			}
			if len(decoded) > 0 {
				h.Write(decoded)
				if err := onChunk(decoded); err != nil {
					return err
				}
				f.Manager.SendMessage(remote.Progress{PathId: f.PathId, CurrentBytes: int64(len(decoded)), FinalBytes: int64(len(decoded))})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return undrerrors.NewNetworkError(f.PathId.String(), readErr)
		}
	}
	if err := f.finishDecoder(decoder, h, onChunk); err != nil {
		return err
	}
	return f.verifyHash(h, f.Hash)
}

func (f File) chunksFromRemote(ctx context.Context, client *http.Client, best compress.Compression, wordSize int, onChunk func([]byte) error) error {
	url := f.Server.Resolve(f.PathId.WithSuffix(best.Suffix))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return undrerrors.NewNetworkError(f.PathId.String(), err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return undrerrors.NewNetworkError(f.PathId.String(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return undrerrors.NewNetworkError(f.PathId.String(), fmt.Errorf("unexpected status %s", resp.Status))
	}

	decoder := best.NewDecoder(wordSize)
	downloadHash := newHash()
	decodeHash := newHash()
	buf := make([]byte, remote.ChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			downloadHash.Write(buf[:n])
			f.Manager.SendMessage(remote.Progress{PathId: f.PathId, CurrentBytes: int64(n), FinalBytes: int64(n)})
			decoded, err := decoder.Decompress(buf[:n])
			if err != nil {
				return err
			}
			if len(decoded) > 0 {
				decodeHash.Write(decoded)
				if err := onChunk(decoded); err != nil {
					return err
				}
				f.Manager.SendMessage(remote.Progress{PathId: f.PathId, CurrentBytes: int64(len(decoded)), FinalBytes: int64(len(decoded))})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return undrerrors.NewNetworkError(f.PathId.String(), readErr)
		}
	}
	// Two Complete events on the remote path, one per verifyHash call: this
	// one closes the download phase (raw bytes verified against the
	// compressed file's hash); the one below closes the decompress phase
	// (decoded bytes verified against the uncompressed file's hash).
	if err := f.verifyHash(downloadHash, best.Hash); err != nil {
		return err
	}

	if err := f.finishDecoder(decoder, decodeHash, onChunk); err != nil {
		return err
	}
	return f.verifyHash(decodeHash, f.Hash)
}

func (f File) finishDecoder(decoder compress.Decoder, h hash.Hash, onChunk func([]byte) error) error {
	aligned, remaining, err := decoder.Finish()
	if err != nil {
		return err
	}
	if len(aligned) > 0 {
		h.Write(aligned)
		if err := onChunk(aligned); err != nil {
			return err
		}
		f.Manager.SendMessage(remote.Progress{PathId: f.PathId, CurrentBytes: int64(len(aligned)), FinalBytes: int64(len(aligned))})
	}
	if len(remaining) > 0 {
		return &undrerrors.TrailingBytesError{WordSize: f.wordSize(), Remaining: len(remaining)}
	}
	return nil
}

func (f File) verifyHash(h hash.Hash, expected string) error {
	digest := fmt.Sprintf("%x", h.Sum(nil))
	if digest != expected {
		return &undrerrors.HashMismatchError{PathId: f.PathId.String(), Expected: expected, Actual: digest}
	}
	f.Manager.SendMessage(remote.Progress{PathId: f.PathId, Complete: true})
	return nil
}

func newHash() hash.Hash {
	return newSHA3224()
}

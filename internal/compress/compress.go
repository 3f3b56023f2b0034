// Package compress implements the streaming decoders of component C1: byte
// chunks in, word-aligned decompressed byte chunks out, with the sub-word
// residual withheld until Finish. Ported from decode.py's NoneCompression and
// BrotliCompression decoders, which implement the identical buffering
// arithmetic.
package compress

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Decoder consumes arbitrary byte chunks and produces decompressed chunks
// whose total length is a multiple of the configured word size. A decoder is
// single-use and is not safe for concurrent use.
type Decoder interface {
	// Decompress returns the largest word-aligned prefix of everything fed to
	// the decoder so far that has not yet been returned; a sub-word
	// residual is buffered internally until more input arrives or Finish is
	// called.
	Decompress(buffer []byte) ([]byte, error)

	// Finish flushes the buffered residual, splitting it into a final
	// word-aligned chunk and a left-over remainder. A non-empty remainder
	// means the input was not a multiple of the word size.
	Finish() (aligned []byte, remaining []byte, err error)
}

// Kind names a compression variant, mirroring the manifest's
// compressions[].type tag.
type Kind int

const (
	None Kind = iota
	Brotli
)

// Compression is one compressed alternative a manifest offers for a file:
// suffix names its on-disk form, Size/Hash describe the compressed bytes
// (for None these are the decompressed size/hash, since no transform is
// applied).
type Compression struct {
	Kind   Kind
	Suffix string
	Size   int64
	Hash   string
}

// NewDecoder builds the Decoder for this compression's word size.
func (c Compression) NewDecoder(wordSize int) Decoder {
	switch c.Kind {
	case Brotli:
		return newBrotliDecoder(wordSize)
	default:
		return newAlignDecoder(wordSize)
	}
}

// alignDecoder implements word-alignment-only buffering (the "None" codec).
// It is also embedded by brotliDecoder, which first runs bytes through a
// brotli.Reader and then applies the exact same alignment arithmetic.
type alignDecoder struct {
	wordSize int
	buffer   []byte
}

func newAlignDecoder(wordSize int) *alignDecoder {
	if wordSize <= 0 {
		panic("compress: word size must be > 0")
	}
	return &alignDecoder{wordSize: wordSize}
}

func (d *alignDecoder) Decompress(buffer []byte) ([]byte, error) {
	if len(d.buffer) == 0 {
		remainder := len(buffer) % d.wordSize
		if remainder == 0 {
			return buffer, nil
		}
		out := buffer[:len(buffer)-remainder]
		d.buffer = append([]byte(nil), buffer[len(buffer)-remainder:]...)
		return out, nil
	}
	remainder := (len(d.buffer) + len(buffer)) % d.wordSize
	if remainder == 0 {
		out := append(d.buffer, buffer...)
		d.buffer = nil
		return out, nil
	}
	if remainder < len(buffer) {
		out := append(d.buffer, buffer[:len(buffer)-remainder]...)
		d.buffer = append([]byte(nil), buffer[len(buffer)-remainder:]...)
		return out, nil
	}
	if remainder == len(buffer) {
		out := d.buffer
		d.buffer = append([]byte(nil), buffer...)
		return out, nil
	}
	// remainder > len(buffer): some of the previously buffered bytes are
	// also part of the new residual.
	keep := len(d.buffer) + len(buffer) - remainder
	out := d.buffer[:keep]
	next := make([]byte, 0, remainder)
	next = append(next, d.buffer[keep:]...)
	next = append(next, buffer...)
	d.buffer = next
	return out, nil
}

func (d *alignDecoder) Finish() ([]byte, []byte, error) {
	remainder := len(d.buffer) % d.wordSize
	aligned := d.buffer[:len(d.buffer)-remainder]
	residual := d.buffer[len(d.buffer)-remainder:]
	return aligned, residual, nil
}

// pushSource adapts a "feed chunks as they arrive" caller to the io.Reader a
// brotli.Reader expects to pull from: Feed buffers one chunk, Read drains it
// and returns (0, nil) once empty rather than blocking, so the decoder loop
// below can stop as soon as there is nothing left to decode yet.
type pushSource struct {
	pending []byte
	closed  bool
}

func (s *pushSource) Feed(buffer []byte) {
	s.pending = append(s.pending, buffer...)
}

func (s *pushSource) Close() {
	s.closed = true
}

func (s *pushSource) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if s.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// brotliDecoder wraps a streaming brotli reader and re-uses alignDecoder for
// the word-alignment pass over the decompressed bytes.
type brotliDecoder struct {
	alignDecoder
	source *pushSource
	reader *brotli.Reader
}

func newBrotliDecoder(wordSize int) *brotliDecoder {
	source := &pushSource{}
	return &brotliDecoder{
		alignDecoder: alignDecoder{wordSize: wordSize},
		source:       source,
		reader:       brotli.NewReader(source),
	}
}

func (d *brotliDecoder) Decompress(buffer []byte) ([]byte, error) {
	d.source.Feed(buffer)
	decoded, err := d.drainAvailable()
	if err != nil {
		return nil, fmt.Errorf("brotli decompress: %w", err)
	}
	return d.alignDecoder.Decompress(decoded)
}

func (d *brotliDecoder) Finish() ([]byte, []byte, error) {
	d.source.Close()
	tail, err := d.drainAvailable()
	if err != nil {
		return nil, nil, fmt.Errorf("brotli decompress: %w", err)
	}
	var head []byte
	if len(tail) > 0 {
		head, err = d.alignDecoder.Decompress(tail)
		if err != nil {
			return nil, nil, err
		}
	}
	aligned, remaining, err := d.alignDecoder.Finish()
	if err != nil {
		return nil, nil, err
	}
	return append(head, aligned...), remaining, nil
}

// drainAvailable reads everything brotli can currently produce from the
// pending pushSource bytes without blocking: it stops on a short read once
// the source reports it has nothing more buffered.
func (d *brotliDecoder) drainAvailable() ([]byte, error) {
	var out []byte
	buf := make([]byte, 65536)
	for {
		n, err := d.reader.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

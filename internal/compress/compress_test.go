package compress

import (
	"bytes"
	"testing"
)

func concat(decoder Decoder, chunks [][]byte) ([]byte, error) {
	var out []byte
	for _, chunk := range chunks {
		decoded, err := decoder.Decompress(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	last, residual, err := decoder.Finish()
	if err != nil {
		return nil, err
	}
	out = append(out, last...)
	if len(residual) > 0 {
		return out, &trailingBytesForTest{len(residual)}
	}
	return out, nil
}

type trailingBytesForTest struct{ n int }

func (e *trailingBytesForTest) Error() string { return "trailing bytes" }

func TestAlignDecoderIdentityOnAlignedInput(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3, 4}, 100) // word size 4, aligned
	for _, split := range [][]int{{len(data)}, {7, 13, len(data) - 20}, {1, 1, 1, 1}} {
		decoder := newAlignDecoder(4)
		var chunks [][]byte
		offset := 0
		for _, size := range split {
			end := offset + size
			if end > len(data) {
				end = len(data)
			}
			chunks = append(chunks, data[offset:end])
			offset = end
		}
		if offset < len(data) {
			chunks = append(chunks, data[offset:])
		}
		got, err := concat(decoder, chunks)
		if err != nil {
			t.Fatalf("split %v: unexpected error: %v", split, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("split %v: got %d bytes, want %d", split, len(got), len(data))
		}
	}
}

func TestAlignDecoderTrailingBytes(t *testing.T) {
	decoder := newAlignDecoder(4)
	data := bytes.Repeat([]byte{9}, 10) // not a multiple of 4
	_, err := concat(decoder, [][]byte{data})
	if err == nil {
		t.Fatal("expected trailing bytes error")
	}
}

func TestAlignDecoderWordSizeOne(t *testing.T) {
	decoder := newAlignDecoder(1)
	data := []byte("any length works when word size is one")
	got, err := concat(decoder, [][]byte{data[:5], data[5:]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

// Package manifest loads and caches directory manifests ("-index.json"),
// component C3. It mirrors json_index.py's `load`: a schema-validated parse
// result cached by filesystem path behind a fixed-size LRU, with a
// distinctive not-installed error when the file is absent.
package manifest

import (
	"container/list"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"undr/internal/compress"
	"undr/internal/undrerrors"
)

const cacheMaxSize = 128 // constants.LRU_CACHE_MAXSIZE

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("undr-index-schema.json", mustJSON(schemaJSON)); err != nil {
		panic(fmt.Sprintf("manifest: invalid bundled schema: %v", err))
	}
	schema, err := compiler.Compile("undr-index-schema.json")
	if err != nil {
		panic(fmt.Sprintf("manifest: invalid bundled schema: %v", err))
	}
	compiledSchema = schema
}

func mustJSON(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}

// CompressionDescriptor is one compressed alternative offered for a file.
type CompressionDescriptor struct {
	Type   string `json:"type"`
	Suffix string `json:"suffix"`
	Size   int64  `json:"size"`
	Hash   string `json:"hash"`
}

// Properties carries the format tag and, for APS frames, the frame
// dimensions that determine word size.
type Properties struct {
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// FileDescriptor is one entry of a directory's "files" or "other_files"
// list.
type FileDescriptor struct {
	Name         string                  `json:"name"`
	Size         int64                   `json:"size"`
	Hash         string                  `json:"hash"`
	Compressions []CompressionDescriptor `json:"compressions"`
	Properties   Properties              `json:"properties"`
	Metadata     map[string]interface{}  `json:"metadata"`
	Doi          string                  `json:"doi,omitempty"`
}

// ToCompression converts a manifest compression descriptor into the codec
// package's runtime type.
func (c CompressionDescriptor) ToCompression() compress.Compression {
	kind := compress.None
	if c.Type == "brotli" {
		kind = compress.Brotli
	}
	return compress.Compression{Kind: kind, Suffix: c.Suffix, Size: c.Size, Hash: c.Hash}
}

// BestCompression returns the smallest-size compressed alternative for a
// file, the one a download or fileio.File source prefers.
func (f FileDescriptor) BestCompression() (CompressionDescriptor, bool) {
	if len(f.Compressions) == 0 {
		return CompressionDescriptor{}, false
	}
	best := f.Compressions[0]
	for _, c := range f.Compressions[1:] {
		if c.Size < best.Size {
			best = c
		}
	}
	return best, true
}

// Directory is the parsed contents of one "-index.json" file.
type Directory struct {
	Version     string                 `json:"version"`
	Doi         string                 `json:"doi,omitempty"`
	Metadata    map[string]interface{} `json:"metadata"`
	Directories []string               `json:"directories"`
	Files       []FileDescriptor       `json:"files"`
	OtherFiles  []FileDescriptor       `json:"other_files"`
}

// validateNames enforces "names are unique inside a directory" across the
// three lists (directories, files, other_files) combined.
func (d *Directory) validateNames() error {
	seen := make(map[string]struct{}, len(d.Directories)+len(d.Files)+len(d.OtherFiles))
	check := func(name string) error {
		if _, ok := seen[name]; ok {
			return &undrerrors.DuplicateNameError{Scope: "manifest directory", Name: name}
		}
		seen[name] = struct{}{}
		return nil
	}
	for _, name := range d.Directories {
		if err := check(name); err != nil {
			return err
		}
	}
	for _, f := range d.Files {
		if err := check(f.Name); err != nil {
			return err
		}
	}
	for _, f := range d.OtherFiles {
		if err := check(f.Name); err != nil {
			return err
		}
	}
	return nil
}

// Store is the process-local, LRU-bounded cache of parsed manifests, keyed
// by filesystem path. It is not safe to share across orchestrators that
// should not see each other's cached entries (§9's "global/process-wide
// state" note).
type Store struct {
	mu       sync.Mutex
	maxSize  int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	path string
	dir  *Directory
}

// NewStore builds an empty manifest cache with the default capacity.
func NewStore() *Store {
	return &Store{
		maxSize: cacheMaxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Load reads, schema-validates and returns the manifest at path, consulting
// and populating the LRU cache. A missing file yields undrerrors.ErrNotInstalled.
func (s *Store) Load(path string) (*Directory, error) {
	s.mu.Lock()
	if elem, ok := s.entries[path]; ok {
		s.order.MoveToFront(elem)
		dir := elem.Value.(*cacheEntry).dir
		s.mu.Unlock()
		return dir, nil
	}
	s.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, undrerrors.NewNotInstalled(path)
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, undrerrors.NewSchemaInvalid(path, err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, undrerrors.NewSchemaInvalid(path, err)
	}

	var dir Directory
	if err := json.Unmarshal(raw, &dir); err != nil {
		return nil, undrerrors.NewSchemaInvalid(path, err)
	}
	if err := dir.validateNames(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.entries[path]; ok {
		s.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).dir = &dir
		return &dir, nil
	}
	elem := s.order.PushFront(&cacheEntry{path: path, dir: &dir})
	s.entries[path] = elem
	if s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*cacheEntry).path)
		}
	}
	return &dir, nil
}

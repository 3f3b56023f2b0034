// Package pathid implements PathId, the immutable POSIX-style path that
// identifies every resource inside a dataset tree.
package pathid

import "strings"

// PathId is an immutable, slash-separated path rooted at a dataset name, e.g.
// "nmnist/train/0/foo.es". It never carries a leading or trailing slash and
// never contains "." or ".." segments; components are compared byte-for-byte
// (case- and encoding-sensitive), matching the manifest protocol.
type PathId struct {
	parts []string
}

// New builds a PathId from its dataset-rooted parts. It panics if called with
// zero parts: every PathId has at least a dataset name.
func New(parts ...string) PathId {
	if len(parts) == 0 {
		panic("pathid: New requires at least one part")
	}
	cp := make([]string, len(parts))
	copy(cp, parts)
	return PathId{parts: cp}
}

// Parse splits a "/"-joined string into a PathId.
func Parse(s string) PathId {
	return New(strings.Split(s, "/")...)
}

// Parts returns the path's components. The slice is owned by the caller.
func (p PathId) Parts() []string {
	cp := make([]string, len(p.parts))
	copy(cp, p.parts)
	return cp
}

// Root returns the dataset name, the first component.
func (p PathId) Root() string {
	return p.parts[0]
}

// Name returns the last component.
func (p PathId) Name() string {
	return p.parts[len(p.parts)-1]
}

// Parent returns the PathId without its last component. It panics if called
// on a root (single-component) PathId.
func (p PathId) Parent() PathId {
	if len(p.parts) == 1 {
		panic("pathid: Parent called on dataset root")
	}
	return PathId{parts: p.parts[:len(p.parts)-1]}
}

// Join appends one component and returns the new PathId.
func (p PathId) Join(component string) PathId {
	next := make([]string, len(p.parts)+1)
	copy(next, p.parts)
	next[len(p.parts)] = component
	return PathId{parts: next}
}

// WithSuffix returns a PathId whose last component has suffix appended, e.g.
// for composing a compression suffix or the ".download"/".decompress"
// extensions.
func (p PathId) WithSuffix(suffix string) PathId {
	if suffix == "" {
		return p
	}
	next := p.Parts()
	next[len(next)-1] += suffix
	return PathId{parts: next}
}

// UnderlyingParts returns the components after the dataset root, the part a
// Server uses to compose a URL.
func (p PathId) UnderlyingParts() []string {
	if len(p.parts) == 1 {
		return nil
	}
	return p.parts[1:]
}

// String renders the PathId back to its "/"-joined form.
func (p PathId) String() string {
	return strings.Join(p.parts, "/")
}

// Equal reports whether two PathIds name the same resource.
func (p PathId) Equal(other PathId) bool {
	if len(p.parts) != len(other.parts) {
		return false
	}
	for i := range p.parts {
		if p.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

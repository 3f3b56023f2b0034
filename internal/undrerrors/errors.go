// Package undrerrors defines the error taxonomy from the error handling
// design: a sentinel per kind plus typed wrappers carrying the failing
// PathId, following the same Is/Unwrap shape as pkg/hfdownloader/errors.go
// in the teacher project.
package undrerrors

import (
	"errors"
	"fmt"
)

// Sentinels against which callers can errors.Is.
var (
	ErrNetwork        = errors.New("network error")
	ErrNotInstalled   = errors.New("manifest not installed")
	ErrSchemaInvalid  = errors.New("manifest failed schema validation")
	ErrHashMismatch   = errors.New("hash mismatch")
	ErrSizeMismatch   = errors.New("size mismatch")
	ErrTrailingBytes  = errors.New("trailing bytes after decode")
	ErrDuplicateName  = errors.New("duplicate name")
	ErrRangeRejected  = errors.New("range request rejected")
	ErrEmptyConfig    = errors.New("configuration is empty or all datasets disabled")
	ErrUserInterrupt  = errors.New("user interrupt")
)

// PathError wraps one of the sentinels above with the PathId it occurred on.
type PathError struct {
	PathId string
	Kind   error
	Err    error
}

func (e *PathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.PathId, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.PathId, e.Kind)
}

func (e *PathError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *PathError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newPathError(pathID string, kind error, cause error) *PathError {
	return &PathError{PathId: pathID, Kind: kind, Err: cause}
}

func NewNetworkError(pathID string, cause error) *PathError {
	return newPathError(pathID, ErrNetwork, cause)
}

func NewNotInstalled(pathID string) *PathError {
	return newPathError(pathID, ErrNotInstalled, nil)
}

func NewSchemaInvalid(pathID string, cause error) *PathError {
	return newPathError(pathID, ErrSchemaInvalid, cause)
}

// HashMismatchError carries the expected/actual digests for diagnostics.
type HashMismatchError struct {
	PathId   string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("bad hash for %q (expected %q, got %q)", e.PathId, e.Expected, e.Actual)
}

func (e *HashMismatchError) Is(target error) bool {
	return target == ErrHashMismatch
}

// SizeMismatchError carries the expected/actual sizes for diagnostics.
type SizeMismatchError struct {
	PathId   string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("bad size for %q (expected %d, got %d)", e.PathId, e.Expected, e.Actual)
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// TrailingBytesError reports a decoder residual left over at end of input.
type TrailingBytesError struct {
	WordSize  int
	Remaining int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("the total number of bytes is not a multiple of %d (%d remaining)", e.WordSize, e.Remaining)
}

func (e *TrailingBytesError) Is(target error) bool {
	return target == ErrTrailingBytes
}

// DuplicateNameError reports a repeated name within one scope (TOML dataset
// list or a manifest directory's three name lists).
type DuplicateNameError struct {
	Scope string
	Name  string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate name %q in %s", e.Name, e.Scope)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

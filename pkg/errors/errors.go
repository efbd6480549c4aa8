// Package errors defines the error taxonomy shared across the indexing and
// retrieval pipeline, plus the mapping from error class to process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexMissing means a query was requested before any successful build.
	ErrIndexMissing = errors.New("index missing")
	// ErrSegmentIO means a partial segment is missing or unreadable at merge
	// time. The merge must abort rather than produce an incomplete index.
	ErrSegmentIO = errors.New("segment i/o error")
	// ErrIndexCorrupt means the final index file failed validation (bad magic,
	// checksum mismatch, truncation).
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrUnknownDoc means a doc id referenced by postings has no URL mapping.
	// Structurally impossible unless index and doc map are out of sync.
	ErrUnknownDoc = errors.New("unknown doc id")
	// ErrConfig covers invalid configuration (bad mode, top-k <= 0, ...).
	ErrConfig   = errors.New("invalid configuration")
	ErrInternal = errors.New("internal error")
)

// Exit codes reported by the CLI. Zero results from a query is success,
// not an error, and never reaches this mapping.
const (
	ExitOK           = 0
	ExitInternal     = 1
	ExitConfig       = 2
	ExitIndexMissing = 3
	ExitSegmentIO    = 4
)

// AppError attaches a human-readable message to one of the sentinel errors.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the CLI exit status. A missing index is
// distinguished from every other failure so callers can tell "nothing built
// yet" apart from "something broke".
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.Is(err, ErrIndexMissing):
		return ExitIndexMissing
	case errors.Is(err, ErrSegmentIO), errors.Is(err, ErrIndexCorrupt):
		return ExitSegmentIO
	default:
		return ExitInternal
	}
}

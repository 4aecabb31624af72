// Package core provides the main hypermem client: a thread-safe facade over
// the encoding pipeline, the memory engine, consolidation, the integration
// metrics, and snapshot persistence.
package core

import (
	"errors"
	"fmt"

	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/encoding"
	"github.com/hypermem/hypermem-go/pkg/persistence"
	"github.com/hypermem/hypermem-go/pkg/storage"
)

// Predefined errors for common failure scenarios. The storage, encoding,
// codebook, and persistence sentinels are re-exported here so callers can
// match any engine failure with errors.Is against a single package.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = storage.ErrNotFound

	// ErrDuplicateID indicates an insert with an identifier that already
	// exists.
	ErrDuplicateID = storage.ErrDuplicateID

	// ErrEmptyInput indicates empty or whitespace-only input text.
	ErrEmptyInput = encoding.ErrEmptyInput

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = encoding.ErrEmbeddingFailed

	// ErrDimensionMismatch indicates a vector whose width does not match
	// the codebook.
	ErrDimensionMismatch = codebook.ErrDimensionMismatch

	// ErrSnapshotVersion indicates a snapshot written by a newer version.
	ErrSnapshotVersion = persistence.ErrVersionMismatch

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoSnapshotPath indicates a Save or Load call on a client that was
	// configured without a snapshot path.
	ErrNoSnapshotPath = errors.New("no snapshot path configured")

	// ErrSnapshotMismatch indicates a snapshot whose codebook parameters
	// differ from the client's, so its vectors live in a different space.
	ErrSnapshotMismatch = errors.New("snapshot codebook parameters do not match")
)

// MemoryError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "Remember",
//	    Err: ErrEmptyInput,
//	}
//	// Error() returns: "hypermem: Remember: empty input text"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "hypermem: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("hypermem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("Remember", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "Remember", "Recall", "Save")
//   - err: The underlying error to wrap
//
// Returns a MemoryError, or nil if err is nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}

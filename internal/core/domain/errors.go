package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrChunkNotFound marks lookups of a URI with no stored chunk.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrInvalidInput marks caller mistakes (empty question, bad category).
	ErrInvalidInput = errors.New("invalid input")
	// ErrRetrievalUnavailable marks a missing or timed-out vector index.
	// Callers treat it as a "no results" signal, never as control flow.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrTemporary marks transient infrastructure failures.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

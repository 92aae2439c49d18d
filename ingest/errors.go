package ingest

import "fmt"

// IngestionError describes a per-file extraction failure (unreadable file,
// unsupported encoding, corrupt structure). A batch skips the file and
// continues; the error is logged, not fatal.
type IngestionError struct {
	Location string
	Err      error
}

// Error implements error.
func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Location, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *IngestionError) Unwrap() error { return e.Err }

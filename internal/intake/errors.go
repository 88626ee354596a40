package intake

import "errors"

// Intake errors
var (
	// ErrMalformed marks a draft document that failed to parse or lacks a
	// required field. Malformed documents are recorded and skipped, never
	// fatal to the batch.
	ErrMalformed = errors.New("malformed draft document")
)

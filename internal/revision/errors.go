package revision

import "errors"

// Error kinds surfaced by Service.Revise. Callers match them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("measurement not found")
	ErrConflict    = errors.New("measurement changed concurrently")
	ErrPersistence = errors.New("persistence error")
)

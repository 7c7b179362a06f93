package ledger

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a unique-field collision (duplicate unit id,
	// registry id or name). The attempted mutation was rolled back.
	ErrConflict = errors.New("unique field conflict")
	// ErrForeignKey indicates a ticket referenced a nonexistent vehicle,
	// material type or destination.
	ErrForeignKey = errors.New("referenced record does not exist")
	// ErrValidation indicates the input was rejected before any storage
	// access. Wrap it with a reason.
	ErrValidation = errors.New("validation failed")
)

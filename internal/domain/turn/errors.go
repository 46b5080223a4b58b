package turn

import "errors"

var (
	// ErrTurnNotFound is returned by store updates that target an unknown id.
	ErrTurnNotFound = errors.New("turn not found")
	// ErrConflict is returned when a write would break a uniqueness rule:
	// a second available turn, a repeated number or a repeated id.
	ErrConflict = errors.New("turn conflict")
)

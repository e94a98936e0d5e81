package repository

import "errors"

var (
	ErrBusNotFound     = errors.New("bus not found")
	ErrBusTaken        = errors.New("bus already assigned to another driver")
	ErrUnitNumberTaken = errors.New("unit number already in use")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidID       = errors.New("invalid bus ID")
)

// PartialReleaseError reports a bulk release that applied to a strict subset
// of the assigned buses. Retrying is always safe because release is
// idempotent.
type PartialReleaseError struct {
	Released  int64
	Remaining int64
	Cause     error
}

func (e *PartialReleaseError) Error() string {
	return "bulk release partially applied"
}

func (e *PartialReleaseError) Unwrap() error {
	return e.Cause
}

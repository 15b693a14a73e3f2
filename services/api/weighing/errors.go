package weighing

import (
	"errors"
	"fmt"
)

// Input validation failures. They are always wrapped in *ValidationError.
var (
	ErrPlateRequired    = errors.New("plate number is required")
	ErrInvalidWeight    = errors.New("weight must be a positive number")
	ErrNegativeWeight   = errors.New("weight must not be negative")
	ErrInvalidLeg       = errors.New("leg must be gross or tare")
	ErrStationRequired  = errors.New("station is required")
	ErrUnknownStation   = errors.New("unknown station")
	ErrInvalidDiscount  = errors.New("discount must be between 0 and 100")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrTareWithoutGross = errors.New("tare weight requires a gross weight")
	ErrNoRecordIDs      = errors.New("at least one record id is required")
	ErrOpenVisitExists  = errors.New("plate already has another open visit")
	ErrNewerVisitExists = errors.New("plate has a more recent visit")

	ErrDocReferenceRequired = errors.New("document reference is required")
	ErrVehicleRequired      = errors.New("vehicle id is required")
	ErrKomidelRequired      = errors.New("komidel is required")
	ErrInvalidFruitType     = errors.New("fruit type must be Buah Besar, Buah Kecil or Buah Super")
	ErrInvalidCount         = errors.New("count must not be negative")
	ErrMessageRequired      = errors.New("message text is required")
)

// Lifecycle ordering failures. They are always wrapped in *LegError.
var (
	// ErrDuplicateLeg is returned when a gross leg arrives for a plate whose
	// visit still waits for its tare.
	ErrDuplicateLeg = errors.New("gross leg already recorded for open visit")

	// ErrMissingGrossLeg is returned when a tare leg has no open gross leg.
	ErrMissingGrossLeg = errors.New("no open gross leg for plate")
)

// ErrForbidden is returned when the session may not perform the operation.
var ErrForbidden = errors.New("operation not allowed for this session")

// ValidationError reports input that was rejected before any write.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LegError reports an out-of-sequence leg. Nothing was written.
type LegError struct {
	Err         error
	PlateNumber string
	RecordID    int64
}

func (e *LegError) Error() string {
	if e.RecordID != 0 {
		return fmt.Sprintf("%s: plate %s (record %d)", e.Err.Error(), e.PlateNumber, e.RecordID)
	}
	return fmt.Sprintf("%s: plate %s", e.Err.Error(), e.PlateNumber)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a store failure. There is no retry; the caller
// resubmits.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: err, Details: fmt.Sprintf(format, args...)}
}

package domain

import "errors"

// Error taxonomy for the scoring pipeline and lifecycle. Scoring failures
// (ErrScorerUnavailable, ErrInference) are absorbed by the blender and never
// surface from Submit; ledger and state-machine failures are always surfaced
// so the caller knows whether money moved.
var (
	// ErrValidation covers malformed input: bad amount, unknown category,
	// inactive account, missing required fields. No state change occurred.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientCredit means the reservation would exceed the
	// account's available credit. No state change occurred.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrInvalidState means a decision was attempted on a transaction that
	// is not in the Submitted state. No mutation was performed.
	ErrInvalidState = errors.New("invalid transaction state")

	// ErrScorerUnavailable means the model artifact failed to load; the
	// condition is permanent for the process lifetime.
	ErrScorerUnavailable = errors.New("scorer unavailable")

	// ErrInference is a per-call scoring failure (schema mismatch,
	// deadline expiry). It does not disable the adapter.
	ErrInference = errors.New("inference failed")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means a record with the same ID already exists.
	ErrDuplicate = errors.New("duplicate entry")
)

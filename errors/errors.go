// Package errors provides error handling for tripline.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// On top of that it defines the pipeline error taxonomy. Every stage failure
// is marked with exactly one of ErrDataSource, ErrTraining or ErrRegistration
// so the top-level runner can classify it with errors.Is:
//
//	ds, err := ld.Load()
//	if errors.IsDataSourceError(err) {
//	    // missing file, wrong schema, unparsable row
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Pipeline error taxonomy.
// Wrap these with the helpers below to add context while preserving the class.
var (
	// ErrDataSource indicates a missing, unreadable or malformed source dataset
	ErrDataSource = New("data source error")

	// ErrTraining indicates the trainer received empty or degenerate input
	ErrTraining = New("training error")

	// ErrRegistration indicates the tracking store was unreachable or rejected a submission
	ErrRegistration = New("registration error")

	// ErrNotFound indicates the requested tracking record does not exist
	ErrNotFound = New("not found")
)

// NewDataSourceError creates a data source error with a formatted message
func NewDataSourceError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrDataSource)
}

// WrapDataSource wraps err as a data source error with context
func WrapDataSource(err error, context string) error {
	return Mark(Wrap(err, context), ErrDataSource)
}

// NewTrainingError creates a training error with a formatted message
func NewTrainingError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrTraining)
}

// WrapTraining wraps err as a training error with context
func WrapTraining(err error, context string) error {
	return Mark(Wrap(err, context), ErrTraining)
}

// NewRegistrationError creates a registration error with a formatted message
func NewRegistrationError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrRegistration)
}

// WrapRegistration wraps err as a registration error with context
func WrapRegistration(err error, context string) error {
	return Mark(Wrap(err, context), ErrRegistration)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// IsDataSourceError checks if an error is or wraps ErrDataSource
func IsDataSourceError(err error) bool {
	return err != nil && Is(err, ErrDataSource)
}

// IsTrainingError checks if an error is or wraps ErrTraining
func IsTrainingError(err error) bool {
	return err != nil && Is(err, ErrTraining)
}

// IsRegistrationError checks if an error is or wraps ErrRegistration
func IsRegistrationError(err error) bool {
	return err != nil && Is(err, ErrRegistration)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// Kind returns the taxonomy name of err for reporting ("data_source",
// "training", "registration") or "internal" when unclassified.
func Kind(err error) string {
	switch {
	case IsDataSourceError(err):
		return "data_source"
	case IsTrainingError(err):
		return "training"
	case IsRegistrationError(err):
		return "registration"
	default:
		return "internal"
	}
}

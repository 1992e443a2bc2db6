package model

import "errors"

var (
	// ErrNotFound is returned when an operation references a record that is
	// not in the vault.
	ErrNotFound = errors.New("vault record not found")

	// ErrStorageUnavailable wraps failures to open the database or to run a
	// transaction against it.
	ErrStorageUnavailable = errors.New("vault storage unavailable")

	// ErrMalformedImport is returned when an import document cannot be parsed
	// or is not an array of record objects. Nothing is written in that case.
	ErrMalformedImport = errors.New("malformed vault import")

	// ErrInvalidRecord is returned for a single record that fails validation,
	// e.g. one without an id.
	ErrInvalidRecord = errors.New("invalid vault record")
)

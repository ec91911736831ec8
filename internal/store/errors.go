package store

import "errors"

var (
	// ErrQuotaExceeded is returned by Write when the new flat string is
	// larger than the namespace quota.
	ErrQuotaExceeded = errors.New("flat store quota exceeded")

	// ErrRecordNotFound is returned when no record exists at an index.
	ErrRecordNotFound = errors.New("record not found")

	// ErrSchemaNotFound is returned when a record references an
	// unregistered schema.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrSchemaViolation is returned when a record body does not satisfy
	// its schema.
	ErrSchemaViolation = errors.New("record violates schema")
)

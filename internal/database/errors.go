package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrEmptyKey is returned when a usage counter key is empty.
	ErrEmptyKey = errors.New("usage counter key is empty")

	// ErrNilResult is returned when saving a nil audit result.
	ErrNilResult = errors.New("audit result is nil")
)

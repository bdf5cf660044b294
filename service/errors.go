package service

import "errors"

var (
	// ErrNotFound is returned for unknown contract identifiers and
	// missing stored files.
	ErrNotFound = errors.New("contract not found")
	// ErrFileTooLarge rejects uploads over the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType rejects uploads without a .pdf filename.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrNotCompleted is returned when the detail view is requested
	// before processing finished.
	ErrNotCompleted = errors.New("processing not complete")
)

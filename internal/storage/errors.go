package storage

import "errors"

var (
	// ErrNotFound is returned when no record exists for a logical key.
	ErrNotFound = errors.New("record not found")
	// ErrCorrupt is returned when a stored record cannot be decoded or lacks
	// its filename or content fields.
	ErrCorrupt = errors.New("record is corrupt")
	// ErrIO wraps filesystem failures (permissions, full disk, ...).
	ErrIO = errors.New("storage i/o failure")
	// ErrRootNotDirectory is returned when the storage root path is occupied by
	// something other than a directory and repair is disabled.
	ErrRootNotDirectory = errors.New("storage root is not a directory")
)

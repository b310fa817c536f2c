package storage

import "errors"

var (
	// ErrNotFound means no file record exists for the given id.
	ErrNotFound = errors.New("file not found")
	// ErrStorageWriteFailed means a backend or metadata write did not commit.
	ErrStorageWriteFailed = errors.New("storage write failed")
	// ErrStorageReadFailed means the backend holding the bytes is unreachable.
	ErrStorageReadFailed = errors.New("storage read failed")
)

package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrIntegrity is returned when a snippet body on disk no longer matches
// the content hash recorded at save time.
var ErrIntegrity = errors.New("storage: content hash mismatch")

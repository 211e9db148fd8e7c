package vault

import "errors"

// Common errors returned by vault operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, vault.ErrUnlock) {
//	    // wrong password or key file
//	}
var (
	// ErrUnlock is returned when a database cannot be decrypted with the
	// supplied credentials.
	ErrUnlock = errors.New("failed to unlock database")

	// ErrUnknownFormat is returned when no backend is registered for the
	// database file's extension.
	ErrUnknownFormat = errors.New("unknown database format")

	// ErrGroupNotFound is returned when an operation names a folder path
	// that does not exist in the database.
	ErrGroupNotFound = errors.New("group not found")

	// ErrPersist is returned when a database cannot be written back to
	// disk. The in-memory state is left intact so other databases can
	// still be saved.
	ErrPersist = errors.New("failed to persist database")
)

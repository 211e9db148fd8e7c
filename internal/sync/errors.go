package sync

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Check with errors.Is():
//
//	if errors.Is(err, sync.ErrTooFewDatabases) {
//	    // nothing to sync against
//	}
var (
	// ErrTooFewDatabases is returned when a run is started with fewer
	// than two databases.
	ErrTooFewDatabases = errors.New("need at least two databases to sync")

	// ErrNoLock is returned when a live run is attempted without a held
	// run lock.
	ErrNoLock = errors.New("live run requires a held run lock")
)

// AmbiguousMatchError reports an identifier that matched two or more
// entries inside a single database. The run aborts before any write;
// the caller must disambiguate with a folder-qualified identifier.
type AmbiguousMatchError struct {
	Identifier string
	Database   string
	Count      int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("entry %q matches %d entries in database %q; qualify it with a folder path",
		e.Identifier, e.Count, e.Database)
}

// MissingEntryError reports an identifier absent from a database that is
// required to contain it, or absent from every database in the run.
type MissingEntryError struct {
	Identifier string
	// Database is the required database missing the entry, or empty when
	// the entry was found nowhere at all.
	Database string
}

func (e *MissingEntryError) Error() string {
	if e.Database == "" {
		return fmt.Sprintf("entry %q not found in any database; check the identifier for typos", e.Identifier)
	}
	return fmt.Sprintf("entry %q not found in required database %q", e.Identifier, e.Database)
}

// PersistError reports a failed save of one database after its in-memory
// writes were applied. Other databases are still saved.
type PersistError struct {
	Database string
	Path     string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to save database %q (%s): %v", e.Database, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Package vault provides a unified interface over encrypted password
// database files.
//
// The core sync engine never touches a database file format directly; it
// works against the Database and Entry interfaces defined here. Format
// backends (currently KDBX via internal/vault/kdbx) register themselves
// with the package registry and are selected by file extension.
//
// # Usage
//
//	creds := vault.Credentials{Password: password, KeyFile: keyPath}
//	db, err := vault.Open("~/passwords.kdbx", creds)
//	if err != nil {
//	    return err
//	}
//	for _, e := range db.Entries() {
//	    fmt.Println(strings.Join(e.FolderPath(), "/"), e.Title())
//	}
package vault

import (
	"time"
)

// Well-known field names shared by all backends. Backends may expose
// additional, format-specific fields alongside these.
const (
	FieldTitle    = "Title"
	FieldUsername = "UserName"
	FieldPassword = "Password"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
)

// Credentials unlocks a database. Password is the master secret; KeyFile
// is an optional path to a key file used alongside (or instead of) the
// password.
type Credentials struct {
	Password []byte
	KeyFile  string
}

// Database is an opened, decrypted password database.
//
// A Database is exclusively owned by one sync run: it is opened at run
// start, possibly mutated through its entries, and saved (or discarded)
// before the run ends. Implementations are not required to be safe for
// concurrent use.
type Database interface {
	// Path returns the file path the database was opened from.
	Path() string

	// Entries returns every entry in the database, in tree order.
	// The returned slice is a snapshot; entries themselves are live
	// references into the database and writes through them are visible
	// on the next Save.
	Entries() []Entry

	// EnsureGroup creates the folder path (each element one folder level,
	// from the database root) if any part of it is missing. Creating a
	// group marks the database dirty.
	EnsureGroup(folder []string) error

	// AddEntry creates a new entry under the given folder path with the
	// supplied field map and modification time. The folder path must
	// already exist (see EnsureGroup). Marks the database dirty.
	AddEntry(folder []string, fields map[string]string, modified time.Time) (Entry, error)

	// Dirty reports whether the database has unsaved modifications.
	Dirty() bool

	// Save persists the database back to Path. Implementations must
	// write atomically so a failed save never corrupts the original
	// file. Save clears the dirty flag on success.
	Save() error
}

// Entry is a single credential record inside a Database.
type Entry interface {
	// Title returns the entry title.
	Title() string

	// FolderPath returns the folder path from the database root to the
	// entry, one folder name per element. An entry at the root has an
	// empty path.
	FolderPath() []string

	// Modified returns the entry's last-modification timestamp.
	Modified() time.Time

	// Fields returns the synchronizable fields as a name-to-value map.
	// Internal bookkeeping (UUID, history, timestamps) is excluded.
	// The map is a copy; use SetField to write.
	Fields() map[string]string

	// Field returns a single field value and whether it is present.
	Field(name string) (string, bool)

	// SetField sets a field value, creating the field if absent, and
	// updates the entry's modification time. Marks the owning database
	// dirty.
	SetField(name, value string)

	// Secret reports whether the named field holds a protected value
	// (e.g. the password) that should be masked in reports.
	Secret(name string) bool
}

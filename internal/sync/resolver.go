package sync

import (
	"log/slog"
	"time"

	"github.com/jrabinow/kpsync/internal/vault"
)

// DatabaseRef couples one configured database with its opened handle.
// The ref is exclusively owned by the run: the executor writes through
// Handle and saves it at run end if it got dirty.
type DatabaseRef struct {
	// Name is the database alias from configuration, used in reports
	// and error messages.
	Name string

	// Path is the database file path (expansion already applied).
	Path string

	// KeyFile is the optional key file path.
	KeyFile string

	// Required makes absence of any requested identifier in this
	// database a fatal MissingEntryError.
	Required bool

	// CreateMissing lets the planner create entries absent from this
	// database instead of skipping it as a target.
	CreateMissing bool

	// Handle is the opened, decrypted database.
	Handle vault.Database
}

// ResolvedEntry is one identifier located in one database.
type ResolvedEntry struct {
	Identifier Identifier
	Database   string
	Entry      vault.Entry
	Modified   time.Time
	Fields     map[string]string
}

// ResolutionItem is the cross-database match set for one identifier.
type ResolutionItem struct {
	Identifier Identifier

	// Entries holds the resolved copies in configured database order.
	Entries []ResolvedEntry

	// CreateTargets names databases where the entry is absent but may be
	// created (create_missing enabled).
	CreateTargets []string

	// Skipped marks identifiers excluded from the plan because they
	// resolved in fewer than two databases and nothing may be created.
	Skipped bool
}

// Resolution is the validated output of the resolution phase. Reaching a
// Resolution guarantees that no identifier is ambiguous anywhere and that
// every required database holds every identifier.
type Resolution struct {
	Items []ResolutionItem
}

// Resolver validates identifiers against every database before any
// mutation happens.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to slog.Default.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve runs the locator for every (database, identifier) pair and
// validates the match table.
//
// Fatal conditions, each aborting the run with no partial result:
//   - fewer than two databases supplied (ErrTooFewDatabases)
//   - an identifier matching two or more entries in one database
//     (AmbiguousMatchError)
//   - an identifier absent from a required database, or from every
//     database (MissingEntryError)
//
// An identifier present in exactly one database with nowhere to create
// copies is not fatal: it is marked Skipped and reported as a no-op so
// the remaining identifiers still sync.
func (r *Resolver) Resolve(refs []DatabaseRef, ids []Identifier) (*Resolution, error) {
	if len(refs) < 2 {
		return nil, ErrTooFewDatabases
	}

	res := &Resolution{Items: make([]ResolutionItem, 0, len(ids))}

	for _, id := range ids {
		item := ResolutionItem{Identifier: id}

		for _, ref := range refs {
			matches := Locate(ref.Handle, id)
			switch {
			case len(matches) > 1:
				return nil, &AmbiguousMatchError{
					Identifier: id.Raw,
					Database:   ref.Name,
					Count:      len(matches),
				}
			case len(matches) == 0:
				if ref.Required {
					return nil, &MissingEntryError{Identifier: id.Raw, Database: ref.Name}
				}
				if ref.CreateMissing {
					item.CreateTargets = append(item.CreateTargets, ref.Name)
				}
			default:
				e := matches[0]
				item.Entries = append(item.Entries, ResolvedEntry{
					Identifier: id,
					Database:   ref.Name,
					Entry:      e,
					Modified:   e.Modified(),
					Fields:     e.Fields(),
				})
			}
		}

		switch {
		case len(item.Entries) == 0:
			// Present nowhere: there is no authoritative copy to take
			// fields from, not even for creation.
			return nil, &MissingEntryError{Identifier: id.Raw}
		case len(item.Entries)+len(item.CreateTargets) < 2:
			r.logger.Warn("entry found in a single database, nothing to sync",
				"entry", id.Raw, "database", item.Entries[0].Database)
			item.Skipped = true
			item.CreateTargets = nil
		}

		res.Items = append(res.Items, item)
	}

	return res, nil
}

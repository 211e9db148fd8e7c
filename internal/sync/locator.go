package sync

import (
	"slices"

	"github.com/jrabinow/kpsync/internal/vault"
)

// Locate returns every entry in db matching the identifier.
//
// A qualified identifier requires both an exact, case-sensitive folder
// path from the database root and an exact title. A bare title matches in
// any folder, so duplicated titles across folders all come back; the
// locator never picks one. Read-only.
func Locate(db vault.Database, id Identifier) []vault.Entry {
	var matches []vault.Entry
	for _, e := range db.Entries() {
		if e.Title() != id.Title {
			continue
		}
		if id.Qualified() && !slices.Equal(e.FolderPath(), id.Folder) {
			continue
		}
		matches = append(matches, e)
	}
	return matches
}

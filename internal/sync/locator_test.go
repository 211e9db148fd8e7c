package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrabinow/kpsync/internal/vault"
)

func mustParse(t *testing.T, raw string) Identifier {
	t.Helper()
	id, err := ParseIdentifier(raw)
	require.NoError(t, err)
	return id
}

func TestLocateBareTitle(t *testing.T) {
	db := newFakeDB("a.kdbx")
	db.add("Github", nil, time.Now(), map[string]string{vault.FieldTitle: "Github"})
	db.add("Gitlab", nil, time.Now(), map[string]string{vault.FieldTitle: "Gitlab"})

	matches := Locate(db, mustParse(t, "Github"))
	require.Len(t, matches, 1)
	assert.Equal(t, "Github", matches[0].Title())
}

func TestLocateBareTitleMatchesAcrossFolders(t *testing.T) {
	db := newFakeDB("a.kdbx")
	db.add("Google", []string{"Personal"}, time.Now(), map[string]string{vault.FieldTitle: "Google"})
	db.add("Google", []string{"Work"}, time.Now(), map[string]string{vault.FieldTitle: "Google"})

	// The locator reports both; it never guesses.
	matches := Locate(db, mustParse(t, "Google"))
	assert.Len(t, matches, 2)
}

func TestLocateQualified(t *testing.T) {
	db := newFakeDB("a.kdbx")
	db.add("Google", []string{"Personal"}, time.Now(), map[string]string{vault.FieldTitle: "Google"})
	db.add("Google", []string{"Work"}, time.Now(), map[string]string{vault.FieldTitle: "Google"})

	matches := Locate(db, mustParse(t, "Personal/Google"))
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"Personal"}, matches[0].FolderPath())
}

func TestLocateQualifiedExactSegments(t *testing.T) {
	db := newFakeDB("a.kdbx")
	db.add("Google", []string{"Personal", "Web"}, time.Now(), map[string]string{vault.FieldTitle: "Google"})

	// A prefix of the folder path is not a match.
	assert.Empty(t, Locate(db, mustParse(t, "Personal/Google")))
	assert.Len(t, Locate(db, mustParse(t, "Personal/Web/Google")), 1)
}

func TestLocateCaseSensitive(t *testing.T) {
	db := newFakeDB("a.kdbx")
	db.add("Github", nil, time.Now(), map[string]string{vault.FieldTitle: "Github"})

	assert.Empty(t, Locate(db, mustParse(t, "github")))
}

func TestLocateNoMatch(t *testing.T) {
	db := newFakeDB("a.kdbx")
	assert.Empty(t, Locate(db, mustParse(t, "Github")))
}

package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncengine "github.com/jrabinow/kpsync/internal/sync"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func record(id string, started time.Time, changes ...syncengine.ChangeRecord) syncengine.RunRecord {
	return syncengine.RunRecord{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Mode:       "sync",
		Status:     "ok",
		Changes:    changes,
	}
}

func TestRecordAndReadBack(t *testing.T) {
	j := openTestJournal(t)
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := j.RecordRun(record("run-1", started,
		syncengine.ChangeRecord{Identifier: "Github", Database: "work", Field: "Password", Action: "update"},
		syncengine.ChangeRecord{Identifier: "Github", Database: "backup", Action: "create"},
	))
	require.NoError(t, err)

	runs, err := j.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "sync", runs[0].Mode)
	assert.Equal(t, "ok", runs[0].Status)
	assert.Equal(t, 2, runs[0].Changes)
	assert.True(t, runs[0].StartedAt.Equal(started))

	changes, err := j.RunChanges("run-1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "update", changes[0].Action)
	assert.Equal(t, "Password", changes[0].Field)
	assert.Equal(t, "create", changes[1].Action)
	assert.Empty(t, changes[1].Field)
}

func TestRecentRunsMostRecentFirst(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordRun(record("old", base)))
	require.NoError(t, j.RecordRun(record("new", base.Add(time.Hour))))
	require.NoError(t, j.RecordRun(record("middle", base.Add(time.Minute))))

	runs, err := j.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "middle", runs[1].ID)
}

func TestRunWithoutChanges(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.RecordRun(record("empty", time.Now())))

	runs, err := j.RecentRuns(1)
	require.NoError(t, err)
	assert.Equal(t, 0, runs[0].Changes)

	changes, err := j.RunChanges("empty")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDuplicateRunIDRejected(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.RecordRun(record("dup", time.Now())))
	assert.Error(t, j.RecordRun(record("dup", time.Now())))
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordRun(record("run-1", time.Now())))
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

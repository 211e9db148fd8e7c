package sync

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jrabinow/kpsync/internal/lockfile"
)

// Options controls one Execute call.
type Options struct {
	// DryRun computes and reports the plan without touching any
	// database: zero mutations, zero saves.
	DryRun bool
}

// Recorder persists an audit trail of runs. Implementations must never
// store field values, only names and actions.
type Recorder interface {
	RecordRun(run RunRecord) error
}

// RunRecord is the journal row for one run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Mode       string // "sync" or "dry-run"
	Status     string // "ok" or "failed"
	Changes    []ChangeRecord
}

// ChangeRecord is one journaled write. Action is "update" or "create".
type ChangeRecord struct {
	Identifier string
	Database   string
	Field      string
	Action     string
}

// ItemStatus classifies the per-identifier outcome in a report.
type ItemStatus string

const (
	// StatusSynced means at least one write was planned (and, in live
	// mode, applied in memory) for the identifier.
	StatusSynced ItemStatus = "synced"
	// StatusConsistent means all copies already agreed.
	StatusConsistent ItemStatus = "consistent"
	// StatusSkipped means the identifier resolved in a single database.
	StatusSkipped ItemStatus = "skipped"
)

// ItemOutcome is the report line for one identifier.
type ItemOutcome struct {
	Identifier string
	Status     ItemStatus
	Writes     int
}

// SaveOutcome is the report line for one database save attempt.
type SaveOutcome struct {
	Database string
	Path     string
	Err      error
}

// Report is the user-visible outcome of one Execute call.
type Report struct {
	DryRun bool
	Items  []ItemOutcome
	Saves  []SaveOutcome
}

// Failed reports whether any database failed to save. Dry runs never
// fail.
func (r *Report) Failed() bool {
	for _, s := range r.Saves {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Executor applies a plan to its target databases.
type Executor struct {
	logger   *slog.Logger
	recorder Recorder
}

// NewExecutor creates an Executor. logger may be nil (slog.Default);
// recorder may be nil to disable journaling.
func NewExecutor(logger *slog.Logger, recorder Recorder) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger, recorder: recorder}
}

// Execute applies the plan.
//
// In dry-run mode it only produces the report. In live mode it applies
// every field diff and entry creation in memory, then saves each database
// that received at least one write. A failed save is recorded in the
// report and does not stop the remaining saves; untouched databases are
// never saved.
//
// lock is the run-scoped lock handle; live mode refuses to proceed
// without a held lock (ErrNoLock). The caller owns the lock's release.
func (x *Executor) Execute(plan *Plan, refs []DatabaseRef, lock *lockfile.Lock, opts Options) (*Report, error) {
	if !opts.DryRun && (lock == nil || !lock.Held()) {
		return nil, ErrNoLock
	}

	started := time.Now()
	report := &Report{DryRun: opts.DryRun}
	var changes []ChangeRecord

	byName := make(map[string]DatabaseRef, len(refs))
	for _, ref := range refs {
		byName[ref.Name] = ref
	}
	dirty := make(map[string]bool)

	for _, item := range plan.Items {
		if item.Skipped {
			report.Items = append(report.Items, ItemOutcome{
				Identifier: item.Identifier.Raw,
				Status:     StatusSkipped,
			})
			continue
		}

		writes := 0
		for _, target := range item.Targets {
			if !target.Changed() {
				continue
			}

			if opts.DryRun {
				writes += countWrites(target)
				changes = append(changes, changeRecords(item.Identifier.Raw, target)...)
				continue
			}

			if err := x.apply(item, target, byName); err != nil {
				// Applying is in-memory only; a failure here means the
				// plan went stale underneath us and the run must not
				// continue half-applied.
				return nil, err
			}
			dirty[target.Database] = true
			writes += countWrites(target)
			changes = append(changes, changeRecords(item.Identifier.Raw, target)...)
		}

		status := StatusSynced
		if writes == 0 {
			status = StatusConsistent
		}
		report.Items = append(report.Items, ItemOutcome{
			Identifier: item.Identifier.Raw,
			Status:     status,
			Writes:     writes,
		})
	}

	if !opts.DryRun {
		for _, ref := range refs {
			if !dirty[ref.Name] {
				continue
			}
			x.logger.Info("saving database", "database", ref.Name, "path", ref.Path)
			var saveErr error
			if err := ref.Handle.Save(); err != nil {
				saveErr = &PersistError{Database: ref.Name, Path: ref.Path, Err: err}
				x.logger.Error("save failed", "database", ref.Name, "error", err)
			}
			report.Saves = append(report.Saves, SaveOutcome{
				Database: ref.Name,
				Path:     ref.Path,
				Err:      saveErr,
			})
		}
	}

	x.record(started, report, changes, opts)
	return report, nil
}

// apply performs one target's writes in memory.
func (x *Executor) apply(item PlanItem, target TargetChange, byName map[string]DatabaseRef) error {
	ref, ok := byName[target.Database]
	if !ok {
		// Plans are built from the same refs they execute against, so
		// this indicates caller misuse rather than user error.
		return &PersistError{Database: target.Database, Err: ErrTooFewDatabases}
	}

	if target.Create {
		if err := ref.Handle.EnsureGroup(target.Folder); err != nil {
			return err
		}
		fields := make(map[string]string, len(target.Diff))
		for _, c := range target.Diff {
			fields[c.Field] = c.New
		}
		x.logger.Info("creating entry",
			"entry", item.Identifier.Raw, "database", target.Database)
		_, err := ref.Handle.AddEntry(target.Folder, fields, item.Source.Modified)
		return err
	}

	for _, c := range target.Diff {
		x.logger.Debug("updating field",
			"entry", item.Identifier.Raw, "database", target.Database, "field", c.Field)
		target.Entry.Entry.SetField(c.Field, c.New)
	}
	x.logger.Info("updated entry",
		"entry", item.Identifier.Raw, "database", target.Database, "fields", len(target.Diff))
	return nil
}

// record journals the run. Journal problems are logged, never fatal.
func (x *Executor) record(started time.Time, report *Report, changes []ChangeRecord, opts Options) {
	if x.recorder == nil {
		return
	}

	mode := "sync"
	if opts.DryRun {
		mode = "dry-run"
	}
	status := "ok"
	if report.Failed() {
		status = "failed"
	}

	err := x.recorder.RecordRun(RunRecord{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Mode:       mode,
		Status:     status,
		Changes:    changes,
	})
	if err != nil {
		x.logger.Warn("failed to journal run", "error", err)
	}
}

func countWrites(target TargetChange) int {
	if target.Create {
		return 1
	}
	return len(target.Diff)
}

func changeRecords(identifier string, target TargetChange) []ChangeRecord {
	if target.Create {
		return []ChangeRecord{{
			Identifier: identifier,
			Database:   target.Database,
			Action:     "create",
		}}
	}
	records := make([]ChangeRecord, 0, len(target.Diff))
	for _, c := range target.Diff {
		records = append(records, ChangeRecord{
			Identifier: identifier,
			Database:   target.Database,
			Field:      c.Field,
			Action:     "update",
		})
	}
	return records
}

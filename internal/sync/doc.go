// Package sync implements the entry resolution and synchronization engine.
//
// Overview
//
// Given a set of open databases and a list of requested entry identifiers,
// the engine locates each identifier in every database, decides which copy
// is authoritative, and propagates its fields to the others. It refuses to
// guess: any identifier that matches more than one entry in a single
// database aborts the whole run before anything is written.
//
// Architecture
//
// The engine runs as a linear pipeline:
//
//	Config / CLI
//	     ├── []DatabaseRef (opened vault.Database handles)
//	     └── []Identifier  (entry names, optionally folder-qualified)
//	                ↓
//	            Resolver      cross-database validation, all-or-nothing
//	                ↓
//	            BuildPlan     pure: authoritative copy + field diffs
//	                ↓
//	            Executor      apply diffs + save, or dry-run report
//
// Usage
//
//	res, err := sync.NewResolver(logger).Resolve(refs, ids)
//	if err != nil {
//	    return err // ambiguous or missing entry, nothing was written
//	}
//	plan := sync.BuildPlan(res)
//	report, err := sync.NewExecutor(logger, recorder).Execute(plan, refs, lock, sync.Options{DryRun: dryRun})
//
// Safety
//
// Resolution-phase failures are all-or-nothing: every identifier is
// validated against every database before any mutation. Save failures are
// isolated per database so one broken file does not block the others, but
// they mark the report failed.
package sync

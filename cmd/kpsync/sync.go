package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jrabinow/kpsync/internal/config"
	"github.com/jrabinow/kpsync/internal/journal"
	"github.com/jrabinow/kpsync/internal/lockfile"
	"github.com/jrabinow/kpsync/internal/prompt"
	syncengine "github.com/jrabinow/kpsync/internal/sync"
	"github.com/jrabinow/kpsync/internal/ui"
	"github.com/jrabinow/kpsync/internal/vault"
)

var (
	flagDryRun bool
	flagYes    bool
	flagReveal bool
	flagDB     []string
)

var syncCmd = &cobra.Command{
	Use:   "sync [entry ...]",
	Short: "Synchronize the configured entries between databases",
	Long: `Resolve every configured entry in every database, pick the most
recently modified copy, and propagate its fields to the other copies.

Positional arguments replace the configured entry list for this run.
With --dry-run the full plan is printed and nothing is written.

Use --db once per database to replace the configured database list:

  kpsync sync --db ~/a.kdbx --db ~/b.kdbx:/path/to/b.keyx`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(args)
	},
}

func init() {
	syncCmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "report the plan without writing anything")
	syncCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "apply without interactive confirmation")
	syncCmd.Flags().BoolVar(&flagReveal, "reveal", false, "show secret values in the plan instead of masking them")
	syncCmd.Flags().StringArrayVar(&flagDB, "db", nil, "database path[:keyfile], repeatable; replaces the configured databases")
	rootCmd.AddCommand(syncCmd)
}

func runSync(entryArgs []string) error {
	logger := slog.Default()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := cfg.ApplyDBOverrides(flagDB); err != nil {
		return err
	}

	rawEntries := cfg.Entries
	if len(entryArgs) > 0 {
		rawEntries = entryArgs
	}
	ids, err := syncengine.ParseIdentifiers(rawEntries)
	if err != nil {
		return err
	}

	refs, err := openDatabases(logger, cfg.Databases)
	if err != nil {
		return err
	}

	res, err := syncengine.NewResolver(logger).Resolve(refs, ids)
	if err != nil {
		return err
	}
	plan := syncengine.BuildPlan(res)

	fmt.Print(ui.RenderPlan(plan, flagReveal))

	var lock *lockfile.Lock
	if !flagDryRun {
		if plan.Writes() == 0 {
			fmt.Printf("%s nothing to do\n", ui.RenderPass("✓"))
			return nil
		}

		if !flagYes && isatty.IsTerminal(os.Stdin.Fd()) {
			ok, err := prompt.Confirm(fmt.Sprintf("Apply %d write(s)?", plan.Writes()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("aborted, nothing written")
				return nil
			}
		}

		lock, err = lockfile.Acquire(filepath.Join(stateDir(), "kpsync.lock"))
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	exec, closeJournal := executor(logger)
	defer closeJournal()
	report, err := exec.Execute(plan, refs, lock, syncengine.Options{DryRun: flagDryRun})
	if err != nil {
		return err
	}

	fmt.Print(ui.RenderReport(report))
	if report.Failed() {
		return fmt.Errorf("one or more databases failed to save")
	}
	return nil
}

// executor builds the executor with a best-effort journal: a broken
// journal degrades to a warning, never blocks a sync. The returned
// cleanup closes the journal.
func executor(logger *slog.Logger) (*syncengine.Executor, func()) {
	var recorder syncengine.Recorder
	cleanup := func() {}
	j, err := journal.Open(journal.DefaultPath())
	if err != nil {
		logger.Warn("run journal unavailable", "error", err)
	} else {
		recorder = j
		cleanup = func() { _ = j.Close() }
	}
	return syncengine.NewExecutor(logger, recorder), cleanup
}

// openDatabases prompts for each master password and opens every
// configured database.
//
// An unlock failure is fatal for the whole run when the database is
// required; otherwise the database is dropped from the run with a
// warning and the remaining databases still sync.
func openDatabases(logger *slog.Logger, dbs []config.Database) ([]syncengine.DatabaseRef, error) {
	refs := make([]syncengine.DatabaseRef, 0, len(dbs))

	for _, db := range dbs {
		warnLoosePermissions(logger, db.Path)
		if db.KeyFile != "" {
			warnLoosePermissions(logger, db.KeyFile)
		}

		password, err := prompt.Password(os.Stderr, db.Path)
		if err != nil {
			return nil, err
		}

		handle, err := vault.Open(db.Path, vault.Credentials{Password: password, KeyFile: db.KeyFile})
		prompt.Wipe(password)
		if err != nil {
			if db.Required || !errors.Is(err, vault.ErrUnlock) {
				return nil, err
			}
			logger.Warn("skipping database: failed to unlock",
				"database", db.Name, "path", db.Path, "error", err)
			continue
		}

		refs = append(refs, syncengine.DatabaseRef{
			Name:          db.Name,
			Path:          db.Path,
			KeyFile:       db.KeyFile,
			Required:      db.Required,
			CreateMissing: db.CreateMissing,
			Handle:        handle,
		})
	}

	return refs, nil
}

func warnLoosePermissions(logger *slog.Logger, path string) {
	loose, err := config.LoosePermissions(path)
	if err != nil {
		return
	}
	if loose {
		logger.Warn("file is readable by group/other, consider chmod 600", "path", path)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrabinow/kpsync/internal/config"
	"github.com/jrabinow/kpsync/internal/lockfile"
	"github.com/jrabinow/kpsync/internal/prompt"
	syncengine "github.com/jrabinow/kpsync/internal/sync"
	"github.com/jrabinow/kpsync/internal/vault"
	"github.com/jrabinow/kpsync/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured databases and re-sync on change",
	Long: `Run in the foreground, watch the configured database files, and
re-run a sync whenever one of them changes (debounced). Master passwords
are prompted once at startup and kept in memory for re-opening the
databases on each run.

Logs go to stderr and to a rotating file under the state directory.
Press Ctrl+C to stop.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "settle time after the last file change before syncing")
	rootCmd.AddCommand(watchCmd)
}

// watchTarget retains what it takes to re-open one database on every run.
type watchTarget struct {
	cfg      config.Database
	password []byte
}

func runWatch() error {
	setupLogging(watchLogFile())
	logger := slog.Default()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	ids, err := syncengine.ParseIdentifiers(cfg.Entries)
	if err != nil {
		return err
	}

	// Hold the run lock for the whole watch session so overlapping
	// one-shot syncs are refused up front.
	lock, err := lockfile.Acquire(filepath.Join(stateDir(), "kpsync.lock"))
	if err != nil {
		return err
	}
	defer lock.Release()

	targets := make([]watchTarget, 0, len(cfg.Databases))
	paths := make([]string, 0, len(cfg.Databases))
	for _, db := range cfg.Databases {
		password, err := prompt.Password(os.Stderr, db.Path)
		if err != nil {
			return err
		}
		targets = append(targets, watchTarget{cfg: db, password: password})
		paths = append(paths, db.Path)
	}
	defer func() {
		for _, t := range targets {
			prompt.Wipe(t.password)
		}
	}()

	watcher, err := watch.New(paths, flagDebounce)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	exec, closeJournal := executor(logger)
	defer closeJournal()
	runOnce := func() {
		refs, err := reopenDatabases(logger, targets)
		if err != nil {
			logger.Error("sync pass failed to open databases", "error", err)
			return
		}

		res, err := syncengine.NewResolver(logger).Resolve(refs, ids)
		if err != nil {
			logger.Error("sync pass aborted", "error", err)
			return
		}
		plan := syncengine.BuildPlan(res)
		if plan.Writes() == 0 {
			logger.Info("databases already consistent")
			return
		}

		// Our own saves must not re-trigger the watcher.
		watcher.Suppress(flagDebounce + time.Second)
		report, err := exec.Execute(plan, refs, lock, syncengine.Options{})
		if err != nil {
			logger.Error("sync pass failed", "error", err)
			return
		}
		for _, save := range report.Saves {
			if save.Err != nil {
				logger.Error("save failed", "database", save.Database, "error", save.Err)
			}
		}
		logger.Info("sync pass complete", "writes", plan.Writes())
	}

	fmt.Printf("%s watching %d database(s), Ctrl+C to stop\n", "👀", len(paths))
	runOnce()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case trigger, ok := <-watcher.Triggers():
			if !ok {
				return nil
			}
			logger.Info("databases changed", "paths", trigger.Paths)
			runOnce()

		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)

		case <-sigc:
			logger.Info("shutting down")
			return nil
		}
	}
}

// reopenDatabases opens fresh handles with the retained credentials.
// Unlike one-shot sync, every configured database must open: a database
// that stops unlocking mid-session is an operator problem worth failing
// loudly on.
func reopenDatabases(logger *slog.Logger, targets []watchTarget) ([]syncengine.DatabaseRef, error) {
	refs := make([]syncengine.DatabaseRef, 0, len(targets))
	for _, t := range targets {
		handle, err := vault.Open(t.cfg.Path, vault.Credentials{Password: t.password, KeyFile: t.cfg.KeyFile})
		if err != nil {
			return nil, fmt.Errorf("failed to reopen %s: %w", t.cfg.Path, err)
		}
		refs = append(refs, syncengine.DatabaseRef{
			Name:          t.cfg.Name,
			Path:          t.cfg.Path,
			KeyFile:       t.cfg.KeyFile,
			Required:      t.cfg.Required,
			CreateMissing: t.cfg.CreateMissing,
			Handle:        handle,
		})
	}
	return refs, nil
}

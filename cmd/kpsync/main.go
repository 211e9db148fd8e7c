package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jrabinow/kpsync/internal/ui"
	"github.com/jrabinow/kpsync/internal/version"

	// Register the KDBX backend.
	_ "github.com/jrabinow/kpsync/internal/vault/kdbx"
)

var (
	flagConfig  string
	flagDebug   bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:     "kpsync",
	Short:   "Partial sync of KeePass databases from the command line",
	Version: version.Version,
	Long: `kpsync synchronizes selected entries between two or more KeePass
(KDBX) databases. Each database stays a separate trust domain with its own
master password and optional key file; only the entries you list are ever
read or written.

The most recently modified copy of an entry wins and its fields are
propagated to the other databases. Ambiguous matches abort the run before
anything is written.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagNoColor {
			ui.DisableColor()
		} else {
			ui.AutoColor()
		}
		setupLogging(nil)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default ./kpsync.yaml, then $XDG_CONFIG_HOME/kpsync/kpsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
}

// setupLogging installs the default slog logger: tint on stderr, plus an
// optional rotating file sink (used by watch mode).
func setupLogging(fileSink io.Writer) {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}

	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    flagNoColor || !isatty.IsTerminal(os.Stderr.Fd()),
	})

	if fileSink == nil {
		slog.SetDefault(slog.New(stderrHandler))
		return
	}

	fileHandler := slog.NewTextHandler(fileSink, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(teeHandler{stderrHandler, fileHandler}))
}

// watchLogFile returns the rotating log sink for watch mode.
func watchLogFile() io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(stateDir(), "watch.log"),
		MaxSize:    5, // MB
		MaxBackups: 3,
	}
}

// stateDir returns the directory for run state (lock file, journal,
// watch log).
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "kpsync")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kpsync"
	}
	return filepath.Join(home, ".local", "state", "kpsync")
}

// teeHandler fans slog records out to two handlers.
type teeHandler struct {
	a, b slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.a.Enabled(ctx, level) || t.b.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if t.a.Enabled(ctx, r.Level) {
		if err := t.a.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if t.b.Enabled(ctx, r.Level) {
		return t.b.Handle(ctx, r.Clone())
	}
	return nil
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{t.a.WithAttrs(attrs), t.b.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{t.a.WithGroup(name), t.b.WithGroup(name)}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrabinow/kpsync/internal/journal"
	"github.com/jrabinow/kpsync/internal/ui"
)

var (
	flagLimit int
	flagRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs from the journal",
	Long: `Show the run journal: when each sync ran, in which mode, whether it
succeeded, and how many writes it performed. The journal stores field
names only, never values.

Use --run with a run ID to list that run's individual changes.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory()
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of runs to show")
	historyCmd.Flags().StringVar(&flagRun, "run", "", "show the changes of one run ID")
	rootCmd.AddCommand(historyCmd)
}

func runHistory() error {
	j, err := journal.Open(journal.DefaultPath())
	if err != nil {
		return err
	}
	defer j.Close()

	if flagRun != "" {
		changes, err := j.RunChanges(flagRun)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Println("no changes recorded for this run")
			return nil
		}
		for _, c := range changes {
			field := c.Field
			if field == "" {
				field = "-"
			}
			fmt.Printf("%-8s %-30s %-20s %s\n", c.Action, c.Identifier, c.Database, field)
		}
		return nil
	}

	runs, err := j.RecentRuns(flagLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	for _, r := range runs {
		status := ui.RenderPass(r.Status)
		if r.Status != "ok" {
			status = ui.RenderFail(r.Status)
		}
		fmt.Printf("%s  %-7s  %-6s  %3d change(s)  %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			status,
			r.Changes,
			ui.RenderDim(r.ID))
	}
	return nil
}

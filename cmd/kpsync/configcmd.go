package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrabinow/kpsync/internal/config"
	"github.com/jrabinow/kpsync/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the kpsync configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a commented starter configuration",
	Long: `Write a starter kpsync.yaml. Without a path argument it goes to
$XDG_CONFIG_HOME/kpsync/kpsync.yaml. Refuses to overwrite an existing
file.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigPath()
		if len(args) == 1 {
			path = config.ExpandPath(args[0])
		}
		if err := config.WriteStarter(path); err != nil {
			return err
		}
		fmt.Printf("%s wrote %s\n", ui.RenderPass("✓"), path)
		fmt.Println("Edit the database paths and entry list, then run: kpsync sync --dry-run")
		return nil
	},
}

func defaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kpsync", "kpsync.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "kpsync.yaml"
	}
	return filepath.Join(home, ".config", "kpsync", "kpsync.yaml")
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice statistics",
	Long: `Display statistics about the practice store of the current profile.

Example:
  praxis stats
  praxis stats --profile exam-prep --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

// StatsResult for JSON output.
type StatsResult struct {
	Profile string `json:"profile"`
	Path    string `json:"path"`
	*praxis.StoreStats
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	stats, err := client.Stats()
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	cfg := client.Config()
	if outputJSON {
		return outputAsJSON(cmd, StatsResult{Profile: cfg.Profile, Path: cfg.LocalPath, StoreStats: stats})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile:        %s\n", cfg.Profile)
	fmt.Fprintf(&sb, "Scenarios:      %d\n", stats.ScenarioCount)
	fmt.Fprintf(&sb, "Dialogue turns: %d\n", stats.DialogueTurns)
	fmt.Fprintf(&sb, "Translations:   %d\n", stats.TranslationCount)
	fmt.Fprintf(&sb, "Events:         %d\n", stats.EventCount)
	fmt.Fprintf(&sb, "Schema version: %s", stats.SchemaVersion)

	fmt.Fprintln(cmd.OutOrStdout(), renderPanel("Practice Statistics", sb.String()))
	return nil
}

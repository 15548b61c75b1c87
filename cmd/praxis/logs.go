package main

import (
	"fmt"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent AI and practice events",
	Long: `Display recent events persisted by the client: retries, fallbacks,
timeouts and completed operations. Only the most recent events are kept.`,
	Example: `  praxis logs
  praxis logs --level warn
  praxis logs --event ai.retry --limit 5
  praxis logs --clear`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsLevel string
	logsEvent string
	logsLimit int
	logsClear bool
)

func init() {
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Only show events at this level (info, warn, error)")
	logsCmd.Flags().StringVar(&logsEvent, "event", "", "Only show events whose name contains this text")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 50, "Maximum number of events")
	logsCmd.Flags().BoolVar(&logsClear, "clear", false, "Delete all recorded events")
}

func runLogs(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if logsClear {
		if err := client.ClearEvents(); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		if outputJSON {
			return outputAsJSON(cmd, map[string]bool{"cleared": true})
		}
		printSuccess(cmd.OutOrStdout(), "Events cleared")
		return nil
	}

	events, err := client.Events(praxis.EventFilter{Level: logsLevel, Name: logsEvent, Limit: logsLimit})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	return outputEvents(cmd, events)
}

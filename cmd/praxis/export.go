package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export practice data to a JSON snapshot",
	Long: `Export the current profile's scenarios, active dialogue, translations
and last grammar check to a JSON snapshot. Writes to stdout unless
--output is given.`,
	Example: `  praxis export -o backup.json
  praxis export --events > backup.json
  praxis export --profile exam-prep -o exam-prep.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON snapshot into the current profile",
	Long: `Import a snapshot written by 'praxis export'.

Merge strategies:
  skip    - Keep existing records; only add what is missing (default)
  replace - Clear scenarios, dialogue, translations and grammar check first`,
	Example: `  praxis import backup.json
  praxis import backup.json --strategy replace
  praxis import backup.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	exportOutputPath string
	exportEvents     bool
	importStrategy   string
	importDryRun     bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutputPath, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportEvents, "events", false, "Include persisted events")

	importCmd.Flags().StringVar(&importStrategy, "strategy", string(praxis.MergeStrategySkip), "Merge strategy: skip, replace")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Preview import without making changes")
}

// ExportResult for JSON output.
type ExportResult struct {
	Profile  string `json:"profile"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	Duration string `json:"duration"`
}

func runExport(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	opts := praxis.ExportOptions{IncludeEvents: exportEvents}

	if exportOutputPath == "" {
		return client.Export(cmd.Context(), cmd.OutOrStdout(), opts)
	}

	start := time.Now()
	if err := ensureParentDir(exportOutputPath); err != nil {
		return err
	}
	f, err := os.Create(exportOutputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := client.Export(cmd.Context(), f, opts); err != nil {
		f.Close()
		_ = os.Remove(exportOutputPath)
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	var size int64
	if fi, err := os.Stat(exportOutputPath); err == nil {
		size = fi.Size()
	}
	duration := time.Since(start).Round(time.Millisecond)

	if outputJSON {
		return outputAsJSON(cmd, ExportResult{
			Profile:  client.Config().Profile,
			FilePath: exportOutputPath,
			FileSize: size,
			Duration: duration.String(),
		})
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Profile:   %s\n", client.Config().Profile)
	fmt.Fprintf(&summary, "File size: %s\n", formatBytes(size))
	fmt.Fprintf(&summary, "Duration:  %s\n", duration)
	fmt.Fprintf(&summary, "Output:    %s", exportOutputPath)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderPanel("Export Summary", summary.String()))
	printSuccess(out, "Export complete")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	strategy := praxis.MergeStrategy(strings.ToLower(importStrategy))
	switch strategy {
	case praxis.MergeStrategySkip, praxis.MergeStrategyReplace:
	default:
		return fmt.Errorf("invalid merge strategy %q: must be 'skip' or 'replace'", importStrategy)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Import(cmd.Context(), f, praxis.ImportOptions{Strategy: strategy, DryRun: importDryRun})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, res)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Scenarios:     %d\n", res.Scenarios)
	fmt.Fprintf(&summary, "Translations:  %d\n", res.Translations)
	fmt.Fprintf(&summary, "Dialogue:      %s\n", yesNo(res.Dialogue))
	fmt.Fprintf(&summary, "Grammar check: %s\n", yesNo(res.GrammarCheck))
	fmt.Fprintf(&summary, "Events:        %d\n", res.Events)
	fmt.Fprintf(&summary, "Skipped:       %d", res.Skipped)

	title := "Import Summary"
	if importDryRun {
		title += " (dry run)"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderPanel(title, summary.String()))
	for _, e := range res.Errors {
		printWarning(out, "%s", e)
	}
	if importDryRun {
		printMuted(out, "No changes were made.")
		return nil
	}
	printSuccess(out, "Import complete")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ensureParentDir creates the parent directory of path if it doesn't exist.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

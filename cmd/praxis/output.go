package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints an error to stderr, ensuring no API keys are leaked.
func outputError(w io.Writer, err error) {
	printError(w, "Error: %s", scrubSensitiveData(err.Error()))
}

// scrubSensitiveData removes the configured API key from messages.
func scrubSensitiveData(msg string) string {
	if cfgAPIKey != "" && strings.Contains(msg, cfgAPIKey) {
		msg = strings.ReplaceAll(msg, cfgAPIKey, "[REDACTED]")
	}
	return msg
}

// resultError turns a non-OK Result into a command error.
func resultError[T any](op string, res praxis.Result[T]) error {
	if res.IsError() && res.Error != nil {
		return fmt.Errorf("%s: %s (%s)", op, res.Error.Message, res.Error.Code)
	}
	return fmt.Errorf("%s: %s", op, res.Message())
}

// noteFallback tells a human reader the content is bundled, not generated.
func noteFallback(w io.Writer, fallback bool) {
	if fallback && !outputJSON {
		printWarning(w, "AI capability unavailable, showing bundled content")
	}
}

func outputCapabilities(cmd *cobra.Command, caps praxis.Capabilities) error {
	if outputJSON {
		return outputAsJSON(cmd, caps)
	}

	out := cmd.OutOrStdout()
	for _, c := range []struct {
		name   string
		status praxis.CapabilityStatus
	}{
		{"Prompt", caps.Prompt},
		{"Translator", caps.Translator},
		{"Rewriter", caps.Rewriter},
	} {
		switch c.status {
		case praxis.StatusAvailable:
			printSuccess(out, "%-11s %s", c.name, c.status)
		case praxis.StatusDownloading:
			printWarning(out, "%-11s %s", c.name, c.status)
		default:
			printError(out, "%-11s %s", c.name, c.status)
		}
	}
	return nil
}

// scenarioMarkdown renders a scenario as a markdown document for glamour.
func scenarioMarkdown(sc *praxis.Scenario) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", sc.Title)
	fmt.Fprintf(&sb, "*%s · %s*\n\n", sc.Specialty, sc.Difficulty)
	fmt.Fprintf(&sb, "%s\n\n", sc.Description)
	fmt.Fprintf(&sb, "**Chief complaint:** %s\n", sc.ChiefComplaint)
	if v := sc.VitalSigns; v != nil {
		sb.WriteString("\n| Vital sign | Value |\n|---|---|\n")
		if v.BP != "" {
			fmt.Fprintf(&sb, "| Blood pressure | %s mmHg |\n", v.BP)
		}
		if v.HR != 0 {
			fmt.Fprintf(&sb, "| Heart rate | %d /min |\n", v.HR)
		}
		if v.RR != 0 {
			fmt.Fprintf(&sb, "| Respiratory rate | %d /min |\n", v.RR)
		}
		if v.Temp != 0 {
			fmt.Fprintf(&sb, "| Temperature | %.1f °C |\n", v.Temp)
		}
		if v.SpO2 != 0 {
			fmt.Fprintf(&sb, "| SpO2 | %.0f %% |\n", v.SpO2)
		}
	}
	return sb.String()
}

func outputScenario(cmd *cobra.Command, sc *praxis.Scenario) error {
	if outputJSON {
		return outputAsJSON(cmd, sc)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderMarkdown(scenarioMarkdown(sc)))
	fmt.Fprintln(out)
	printMuted(out, "ID: %s", sc.ID)
	return nil
}

func outputScenarioList(cmd *cobra.Command, scenarios []praxis.Scenario) error {
	if outputJSON {
		return outputAsJSON(cmd, scenarios)
	}
	out := cmd.OutOrStdout()
	if len(scenarios) == 0 {
		printMuted(out, "No earlier scenarios.")
		return nil
	}
	rows := make([][]string, 0, len(scenarios))
	for _, sc := range scenarios {
		rows = append(rows, []string{sc.ID, sc.Title, string(sc.Specialty), string(sc.Difficulty), formatRelativeTime(sc.CreatedAt)})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "TITLE", "SPECIALTY", "DIFFICULTY", "CREATED"}, rows))
	return nil
}

func outputReply(cmd *cobra.Command, r praxis.DialogueResponse) error {
	if outputJSON {
		return outputAsJSON(cmd, r)
	}
	out := cmd.OutOrStdout()
	line := r.Message
	if r.Emotion != "" {
		line += " " + mutedOrPlain("("+r.Emotion+")")
	}
	printField(out, "Patient:", line)
	if len(r.Suggestions) > 0 {
		fmt.Fprintln(out)
		printMuted(out, "Suggested questions:")
		for _, q := range r.Suggestions {
			fmt.Fprintf(out, "  - %s\n", q)
		}
	}
	return nil
}

func outputDialogue(cmd *cobra.Command, d *praxis.Dialogue) error {
	if outputJSON {
		return outputAsJSON(cmd, d)
	}
	out := cmd.OutOrStdout()
	title := "Consultation"
	if d.Scenario != nil {
		title += ": " + d.Scenario.Title
	}
	printInfo(out, "%s", title)
	printMuted(out, "Started %s", d.StartedAt.Local().Format("2006-01-02 15:04"))
	if len(d.History) == 0 {
		printMuted(out, "No turns yet. Use 'praxis dialogue say <message>'.")
		return nil
	}
	fmt.Fprintln(out)
	for _, m := range d.History {
		label := "Doctor:"
		if m.Role == praxis.RolePatient {
			label = "Patient:"
		}
		printField(out, fmt.Sprintf("%-8s", label), m.Content)
	}
	return nil
}

func outputTranslation(cmd *cobra.Command, t praxis.TranslationResult) error {
	if outputJSON {
		return outputAsJSON(cmd, t)
	}
	out := cmd.OutOrStdout()
	printField(out, fmt.Sprintf("%s (%s) →", t.Original, t.SourceLanguage), fmt.Sprintf("%s (%s)", t.Translated, t.TargetLanguage))
	if len(t.Alternatives) > 0 {
		printMuted(out, "Alternatives: %s", strings.Join(t.Alternatives, ", "))
	}
	return nil
}

func outputTranslationList(cmd *cobra.Command, list []praxis.TranslationResult) error {
	if outputJSON {
		return outputAsJSON(cmd, list)
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		printMuted(out, "No translations yet.")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{t.Original, t.Translated, t.SourceLanguage + "→" + t.TargetLanguage, formatRelativeTime(t.CreatedAt)})
	}
	fmt.Fprintln(out, renderTable([]string{"TERM", "TRANSLATION", "PAIR", "WHEN"}, rows))
	return nil
}

func outputGrammar(cmd *cobra.Command, g *praxis.GrammarCheckResult) error {
	if outputJSON {
		return outputAsJSON(cmd, g)
	}
	out := cmd.OutOrStdout()
	printField(out, "Score:", fmt.Sprintf("%d/100", g.Score))
	if len(g.Suggestions) == 0 {
		printSuccess(out, "No issues found.")
		return nil
	}
	printField(out, "Corrected:", g.CorrectedText)
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(g.Suggestions))
	for _, s := range g.Suggestions {
		rows = append(rows, []string{
			string(s.Type),
			s.Original,
			s.Suggestion,
			strconv.Itoa(s.Position.Start) + "-" + strconv.Itoa(s.Position.End),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"TYPE", "ORIGINAL", "SUGGESTION", "AT"}, rows))
	return nil
}

func outputEvents(cmd *cobra.Command, events []praxis.Event) error {
	if outputJSON {
		return outputAsJSON(cmd, events)
	}
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		printMuted(out, "No events recorded.")
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("15:04:05"),
			e.Level,
			e.Name,
			formatFields(e.Fields),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"TIME", "LEVEL", "EVENT", "FIELDS"}, rows))
	return nil
}

// formatFields renders event fields as sorted key=value pairs.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return truncate(strings.Join(parts, " "), 60)
}

func mutedOrPlain(s string) string {
	if isTTY() {
		return mutedStyle.Render(s)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatRelativeTime formats a time as a relative string (e.g., "2h ago")
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

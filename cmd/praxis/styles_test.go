package main

import (
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/praxis"
)

// setMockTTY sets the TTY override for tests and returns a cleanup function.
// The cleanup function restores the override to nil, allowing real TTY detection.
func setMockTTY(value bool) func() {
	testIsTTYMutex.Lock()
	testIsTTYOverride = &value
	testIsTTYMutex.Unlock()
	return func() {
		testIsTTYMutex.Lock()
		testIsTTYOverride = nil
		testIsTTYMutex.Unlock()
	}
}

const borderChars = "─│╭╮╰╯├┼┤┬┴"

func TestRenderTable_TTY_WithHeaders(t *testing.T) {
	cleanup := setMockTTY(true)
	defer cleanup()

	headers := []string{"ID", "SPECIALTY", "TITLE"}
	rows := [][]string{
		{"01JA", "cardiology", "Chest Pain Evaluation"},
		{"01JB", "surgery", "Acute Appendicitis"},
	}

	result := renderTable(headers, rows)

	for _, want := range []string{"ID", "SPECIALTY", "TITLE", "cardiology", "Acute Appendicitis"} {
		if !strings.Contains(result, want) {
			t.Errorf("result should contain %q", want)
		}
	}
	if !strings.ContainsAny(result, borderChars) {
		t.Error("TTY output should contain border characters")
	}
}

func TestRenderTable_NonTTY_PlainText(t *testing.T) {
	cleanup := setMockTTY(false)
	defer cleanup()

	result := renderTable([]string{"TERM", "TRANSLATION"}, [][]string{
		{"fever", "Fieber"},
		{"headache", "Kopfschmerzen"},
	})

	if !strings.Contains(result, "TERM") || !strings.Contains(result, "Kopfschmerzen") {
		t.Errorf("result should contain headers and data, got: %s", result)
	}
	if strings.ContainsAny(result, borderChars) {
		t.Error("non-TTY output should NOT contain border characters")
	}

	// Columns are aligned: the second column starts at the same offset on every line.
	lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	col := strings.Index(lines[0], "TRANSLATION")
	if strings.Index(lines[1], "Fieber") != col || strings.Index(lines[2], "Kopfschmerzen") != col {
		t.Errorf("columns not aligned:\n%s", result)
	}
}

func TestRenderTable_EmptyRows(t *testing.T) {
	cleanup := setMockTTY(true)
	defer cleanup()

	result := renderTable([]string{"NAME", "COUNT"}, nil)

	if !strings.Contains(result, "NAME") {
		t.Error("result should contain header even with empty rows")
	}
}

func TestRenderTable_LongContent(t *testing.T) {
	cleanup := setMockTTY(true)
	defer cleanup()

	result := renderTable([]string{"MESSAGE"}, [][]string{{strings.Repeat("x", 100)}})

	if !strings.Contains(result, "MESSAGE") || !strings.Contains(result, "x") {
		t.Error("result should contain header and content")
	}
}

func TestRenderPanel_TTY_WithTitle(t *testing.T) {
	cleanup := setMockTTY(true)
	defer cleanup()

	result := renderPanel("Practice Statistics", "Scenarios: 3")

	if !strings.Contains(result, "Practice Statistics") || !strings.Contains(result, "Scenarios: 3") {
		t.Errorf("panel should contain title and content, got: %s", result)
	}
	if !strings.ContainsAny(result, "─│╭╮╰╯") {
		t.Error("TTY panel should have border")
	}
}

func TestRenderPanel_NonTTY_PlainText(t *testing.T) {
	cleanup := setMockTTY(false)
	defer cleanup()

	result := renderPanel("Import Summary", "Scenarios: 2\n")

	want := "Import Summary\n==============\nScenarios: 2"
	if result != want {
		t.Errorf("renderPanel() = %q, want %q", result, want)
	}
}

func TestRenderPanel_NonTTY_NoTitle(t *testing.T) {
	cleanup := setMockTTY(false)
	defer cleanup()

	if got := renderPanel("", "body"); got != "body" {
		t.Errorf("renderPanel() = %q, want %q", got, "body")
	}
}

func TestRenderErrorPanel_AllSections(t *testing.T) {
	cleanup := setMockTTY(true)
	defer cleanup()

	result := renderErrorPanel(
		"No scenario to start",
		"the current profile has no scenarios",
		"Run praxis scenario generate first",
	)

	for _, want := range []string{"No scenario to start", "no scenarios", "praxis scenario generate"} {
		if !strings.Contains(result, want) {
			t.Errorf("result should contain %q", want)
		}
	}
	if !strings.ContainsAny(result, "─│╭╮╰╯") {
		t.Error("TTY error panel should have border")
	}
}

func TestRenderErrorPanel_NonTTY(t *testing.T) {
	cleanup := setMockTTY(false)
	defer cleanup()

	result := renderErrorPanel("Error message", "Some context", "Try this instead")

	for _, want := range []string{"Error message", "Context:", "Suggestion:"} {
		if !strings.Contains(result, want) {
			t.Errorf("result should contain %q", want)
		}
	}
	if strings.ContainsAny(result, "─│╭╮╰╯") {
		t.Error("non-TTY error panel should NOT have borders")
	}
}

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "-"},
		{"seconds", time.Now().Add(-10 * time.Second), "just now"},
		{"minutes", time.Now().Add(-5*time.Minute - time.Second), "5m ago"},
		{"hours", time.Now().Add(-3*time.Hour - time.Second), "3h ago"},
		{"days", time.Now().Add(-49 * time.Hour), "2d ago"},
		{"weeks", time.Now().Add(-15 * 24 * time.Hour), "2w ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("Kopfschmerzen seit drei Tagen", 10); got != "Kopfsch..." {
		t.Errorf("truncate() = %q, want %q", got, "Kopfsch...")
	}
	// Runes, not bytes.
	if got := truncate("Übelkeit und Schwindel", 8); got != "Übelk..." {
		t.Errorf("truncate() = %q, want %q", got, "Übelk...")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScenarioMarkdown(t *testing.T) {
	sc := &praxis.Scenario{
		Specialty:      praxis.SpecialtyCardiology,
		Difficulty:     praxis.DifficultyBeginner,
		Title:          "Chest Pain Evaluation",
		Description:    "A 58-year-old man presents with chest pain.",
		ChiefComplaint: "Brustschmerzen",
		VitalSigns:     &praxis.VitalSigns{BP: "150/95", HR: 98},
	}

	md := scenarioMarkdown(sc)

	for _, want := range []string{
		"## Chest Pain Evaluation",
		"cardiology · beginner",
		"**Chief complaint:** Brustschmerzen",
		"| Blood pressure | 150/95 mmHg |",
		"| Heart rate | 98 /min |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown should contain %q, got:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Temperature") {
		t.Error("unset vital signs should be omitted")
	}
}

func TestScenarioMarkdown_NoVitals(t *testing.T) {
	md := scenarioMarkdown(&praxis.Scenario{Title: "Acute Appendicitis"})
	if strings.Contains(md, "Vital sign") {
		t.Error("vitals table should be omitted without vital signs")
	}
}

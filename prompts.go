package praxis

import (
	"fmt"
	"strings"
)

// languageModelOptions configure the one prompt session shared by scenario
// generation and dialogue. Each prompt carries its own role instructions.
var languageModelOptions = LanguageModelOptions{
	SystemPrompt: "You are a medical education assistant. Generate realistic clinical scenarios for medical students " +
		"and, when asked, play the patient in a consultation, responding realistically to the doctor's questions.",
	Temperature: 0.8,
}

// grammarRewriterOptions asks for a corrected text of the same length.
var grammarRewriterOptions = RewriterOptions{
	SharedContext: "Correct the grammar and spelling of German text written by a medical student. Keep the meaning.",
	Tone:          "formal",
	Format:        "plain-text",
	Length:        "same",
}

func buildScenarioPrompt(params ScenarioParams) string {
	return fmt.Sprintf(`Generate a realistic %s medical scenario for %s.

Format as JSON:
{
  "title": "Brief title",
  "description": "Detailed clinical presentation",
  "chiefComplaint": "Why patient came in",
  "vitalSigns": {
    "bp": "120/80",
    "hr": 75,
    "rr": 16,
    "temp": 37.0,
    "spo2": 98
  }
}`, params.Difficulty, params.Specialty)
}

// buildDialoguePrompt includes only the last lookback turns of history.
func buildDialoguePrompt(message string, dc DialogueContext, lookback int) string {
	if dc.MaxHistoryLength > 0 {
		lookback = dc.MaxHistoryLength
	}
	history := dc.History
	if lookback > 0 && len(history) > lookback {
		history = history[len(history)-lookback:]
	}

	var b strings.Builder
	b.WriteString("You are a patient in a German medical consultation. ")
	b.WriteString("Respond primarily in German with occasional English medical terms when appropriate.")
	if dc.Scenario != nil {
		fmt.Fprintf(&b, "\nScenario: %s\nChief Complaint: %s", dc.Scenario.Description, dc.Scenario.ChiefComplaint)
	}

	b.WriteString("\n\nPrevious conversation:\n")
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}

	fmt.Fprintf(&b, "\nDoctor: %s\n\n", message)
	b.WriteString(`Respond naturally as the patient IN GERMAN. Use everyday German that a real patient would use. Mix in English medical terms if the patient would be confused or uncertain. Format as JSON:
{
  "message": "Deine Antwort auf Deutsch (Your response in German)",
  "emotion": "calm|anxious|relieved|confused",
  "suggestions": ["mögliche Folgefrage 1", "mögliche Frage 2"]
}

Example patient responses:
- "Ja, die Schmerzen haben vor etwa zwei Stunden angefangen."
- "Ich bin nicht sicher... maybe it's the medication?"
- "Es tut hier weh." (points to chest)`)
	return b.String()
}

package praxis

import (
	"strings"
	"time"
)

// Specialty is the clinical field a scenario is drawn from.
type Specialty string

const (
	SpecialtyCardiology Specialty = "cardiology"
	SpecialtyPediatrics Specialty = "pediatrics"
	SpecialtyEmergency  Specialty = "emergency"
	SpecialtySurgery    Specialty = "surgery"
	SpecialtyPsychiatry Specialty = "psychiatry"
	SpecialtyNeurology  Specialty = "neurology"
	SpecialtyNursing    Specialty = "nursing"
	SpecialtyGeriatrics Specialty = "geriatrics"
)

// ValidSpecialties returns the specialties with authored content.
func ValidSpecialties() []Specialty {
	return []Specialty{
		SpecialtyCardiology,
		SpecialtyPediatrics,
		SpecialtyEmergency,
		SpecialtySurgery,
		SpecialtyPsychiatry,
		SpecialtyNeurology,
		SpecialtyNursing,
		SpecialtyGeriatrics,
	}
}

// IsKnown reports whether s is one of ValidSpecialties.
// Unknown specialties are still accepted and get a generic scenario.
func (s Specialty) IsKnown() bool {
	for _, valid := range ValidSpecialties() {
		if s == valid {
			return true
		}
	}
	return false
}

// Difficulty grades a scenario for the learner.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ValidDifficulties returns all difficulty levels.
func ValidDifficulties() []Difficulty {
	return []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}
}

// IsValid checks if the difficulty is a known level.
func (d Difficulty) IsValid() bool {
	for _, valid := range ValidDifficulties() {
		if d == valid {
			return true
		}
	}
	return false
}

// ScenarioParams requests a generated clinical case.
type ScenarioParams struct {
	Specialty  Specialty  `json:"specialty"`
	Difficulty Difficulty `json:"difficulty"`
}

// Validate checks the request before any capability is touched.
func (p ScenarioParams) Validate() error {
	if strings.TrimSpace(string(p.Specialty)) == "" {
		return &InputError{Field: "specialty", Message: "required"}
	}
	if !p.Difficulty.IsValid() {
		return &InputError{Field: "difficulty", Message: "must be beginner, intermediate or advanced"}
	}
	return nil
}

// VitalSigns are optional observations attached to a scenario.
type VitalSigns struct {
	BP   string  `json:"bp,omitempty"`
	HR   int     `json:"hr,omitempty"`
	RR   int     `json:"rr,omitempty"`
	Temp float64 `json:"temp,omitempty"`
	SpO2 float64 `json:"spo2,omitempty"`
}

// Scenario is a generated clinical case. It is never mutated after it is returned.
type Scenario struct {
	ID             string      `json:"id"`
	Specialty      Specialty   `json:"specialty"`
	Difficulty     Difficulty  `json:"difficulty"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	ChiefComplaint string      `json:"chief_complaint"`
	VitalSigns     *VitalSigns `json:"vital_signs,omitempty"`
	Fallback       bool        `json:"fallback,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Role identifies the speaker of a dialogue turn.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// DialogueMessage is a single turn in a simulated consultation.
type DialogueMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogueContext is what the adapter sees of a conversation.
// Only the last MaxHistoryLength turns go into the prompt.
type DialogueContext struct {
	Scenario         *Scenario         `json:"scenario,omitempty"`
	History          []DialogueMessage `json:"history"`
	MaxHistoryLength int               `json:"max_history_length,omitempty"`
}

// DialogueResponse is the simulated patient's reply.
type DialogueResponse struct {
	Message     string   `json:"message"`
	Emotion     string   `json:"emotion,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// Dialogue is a persisted consultation attached to one scenario.
type Dialogue struct {
	ID        string            `json:"id"`
	Scenario  *Scenario         `json:"scenario,omitempty"`
	History   []DialogueMessage `json:"history"`
	StartedAt time.Time         `json:"started_at"`
}

// TranslationParams requests a medical term translation.
type TranslationParams struct {
	Term           string `json:"term"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Validate checks the request before any capability is touched.
func (p TranslationParams) Validate() error {
	if strings.TrimSpace(p.Term) == "" {
		return &InputError{Field: "term", Message: "required"}
	}
	if p.SourceLanguage == "" || p.TargetLanguage == "" {
		return &InputError{Field: "language", Message: "source and target language are required"}
	}
	return nil
}

// TranslationResult is one translated term. The history of these is append-only.
type TranslationResult struct {
	ID             string    `json:"id,omitempty"`
	Original       string    `json:"original"`
	Translated     string    `json:"translated"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	Alternatives   []string  `json:"alternatives,omitempty"`
	Fallback       bool      `json:"fallback,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SuggestionType categorises a grammar suggestion.
type SuggestionType string

const (
	SuggestionGrammar  SuggestionType = "grammar"
	SuggestionSpelling SuggestionType = "spelling"
	SuggestionStyle    SuggestionType = "style"
	SuggestionClarity  SuggestionType = "clarity"
)

// Span is a half-open rune range [Start, End) in the original text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// GrammarSuggestion is one proposed correction.
type GrammarSuggestion struct {
	Original    string         `json:"original"`
	Suggestion  string         `json:"suggestion"`
	Type        SuggestionType `json:"type"`
	Position    Span           `json:"position"`
	Explanation string         `json:"explanation,omitempty"`
}

// GrammarCheckResult is recomputed wholesale on each check.
type GrammarCheckResult struct {
	OriginalText  string              `json:"original_text"`
	CorrectedText string              `json:"corrected_text"`
	Suggestions   []GrammarSuggestion `json:"suggestions"`
	Score         int                 `json:"score"`
	CheckedAt     time.Time           `json:"checked_at"`
}

// CapabilityStatus is the probed state of one AI capability.
type CapabilityStatus string

const (
	StatusAvailable   CapabilityStatus = "available"
	StatusDownloading CapabilityStatus = "downloading"
	StatusNotPresent  CapabilityStatus = "unavailable"
)

// Capabilities is a snapshot of all three capabilities.
type Capabilities struct {
	Prompt      CapabilityStatus `json:"prompt"`
	Translator  CapabilityStatus `json:"translator"`
	Rewriter    CapabilityStatus `json:"rewriter"`
	LastChecked time.Time        `json:"last_checked"`
}

// StoreStats contains statistics about the local practice store.
type StoreStats struct {
	ScenarioCount    int    `json:"scenario_count"`
	TranslationCount int    `json:"translation_count"`
	DialogueTurns    int    `json:"dialogue_turns"`
	EventCount       int    `json:"event_count"`
	SchemaVersion    string `json:"schema_version"`
}

// Event is a persisted structured log entry.
type Event struct {
	Level     string         `json:"level"`
	Name      string         `json:"event"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventFilter narrows Events results.
type EventFilter struct {
	Level string
	Name  string // substring match
	Limit int
}

// Default limits.
const (
	DefaultScenarioHistoryLimit    = 10
	DefaultTranslationHistoryLimit = 50
	DefaultDialogueLookback        = 10
	DefaultEventLogLimit           = 100
	DefaultTimeout                 = 30 * time.Second
	DefaultMaxAttempts             = 3
	DefaultRetryBaseDelay          = time.Second
)

package praxis

import (
	"net/url"
	"os"
	"time"

	"github.com/hyperengineering/praxis/internal/store"
)

// Default local engine settings (an OpenAI-compatible runtime such as Ollama).
const (
	DefaultEndpoint = "http://127.0.0.1:11434/v1"
	DefaultModel    = "llama3.2"
)

// Config configures the praxis client.
type Config struct {
	// Profile selects the practice profile. If empty, resolved as
	// explicit > PRAXIS_PROFILE env > "default".
	Profile string

	// LocalPath is the path to the SQLite practice database.
	// If empty, derived from Profile.
	LocalPath string

	// Endpoint is the base URL of the local model runtime.
	Endpoint string

	// Model is the model name served by the runtime.
	Model string

	// Offline disables every AI capability; all features use bundled content.
	Offline bool

	// Timeout bounds each engine call. Defaults to 30s.
	Timeout time.Duration

	// MaxAttempts and RetryBaseDelay shape the retry policy.
	MaxAttempts    int
	RetryBaseDelay time.Duration

	// ScenarioHistoryLimit is how many prior scenarios are kept.
	ScenarioHistoryLimit int

	// TranslationHistoryLimit is how many translations are kept.
	TranslationHistoryLimit int

	// DialogueLookback is how many past turns go into a dialogue prompt.
	DialogueLookback int

	// EventLogLimit is how many recent events are persisted.
	EventLogLimit int

	// SourceLanguage and TargetLanguage are the default translation pair.
	SourceLanguage string
	TargetLanguage string

	// Debug enables debug-level logging.
	Debug bool

	// LogPath is the file to write logs to. Defaults to stderr.
	LogPath string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Profile:                 store.DefaultProfile,
		LocalPath:               store.ProfileDBPath(store.DefaultRoot(), store.DefaultProfile),
		Endpoint:                DefaultEndpoint,
		Model:                   DefaultModel,
		Timeout:                 DefaultTimeout,
		MaxAttempts:             DefaultMaxAttempts,
		RetryBaseDelay:          DefaultRetryBaseDelay,
		ScenarioHistoryLimit:    DefaultScenarioHistoryLimit,
		TranslationHistoryLimit: DefaultTranslationHistoryLimit,
		DialogueLookback:        DefaultDialogueLookback,
		EventLogLimit:           DefaultEventLogLimit,
		SourceLanguage:          "en",
		TargetLanguage:          "de",
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	PRAXIS_PROFILE     → Profile
//	PRAXIS_DB_PATH     → LocalPath
//	PRAXIS_ENDPOINT    → Endpoint
//	PRAXIS_MODEL       → Model
//	PRAXIS_TIMEOUT     → Timeout (Go duration, e.g. "45s")
//	PRAXIS_OFFLINE     → Offline (any non-empty value enables)
//	PRAXIS_DEBUG       → Debug (any non-empty value enables)
//	PRAXIS_DEBUG_LOG   → LogPath
func ConfigFromEnv() Config {
	cfg := Config{
		Profile:   os.Getenv("PRAXIS_PROFILE"),
		LocalPath: os.Getenv("PRAXIS_DB_PATH"),
		Endpoint:  os.Getenv("PRAXIS_ENDPOINT"),
		Model:     os.Getenv("PRAXIS_MODEL"),
		Offline:   os.Getenv("PRAXIS_OFFLINE") != "",
		Debug:     os.Getenv("PRAXIS_DEBUG") != "",
		LogPath:   os.Getenv("PRAXIS_DEBUG_LOG"),
	}
	if d, err := time.ParseDuration(os.Getenv("PRAXIS_TIMEOUT")); err == nil {
		cfg.Timeout = d
	}
	return cfg
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return &ValidationError{Field: "LocalPath", Message: "required: path to SQLite database"}
	}

	if c.Profile != "" {
		if err := store.ValidateProfileID(c.Profile); err != nil {
			return &ValidationError{Field: "Profile", Message: err.Error()}
		}
	}

	if !c.Offline && c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Field: "Endpoint", Message: "must be an absolute URL"}
		}
		if c.Model == "" {
			return &ValidationError{Field: "Model", Message: "required when Endpoint is set"}
		}
	}

	checks := []struct {
		field string
		value int64
	}{
		{"Timeout", int64(c.Timeout)},
		{"MaxAttempts", int64(c.MaxAttempts)},
		{"RetryBaseDelay", int64(c.RetryBaseDelay)},
		{"ScenarioHistoryLimit", int64(c.ScenarioHistoryLimit)},
		{"TranslationHistoryLimit", int64(c.TranslationHistoryLimit)},
		{"DialogueLookback", int64(c.DialogueLookback)},
		{"EventLogLimit", int64(c.EventLogLimit)},
	}
	for _, check := range checks {
		if check.value < 0 {
			return &ValidationError{Field: check.field, Message: "must be non-negative"}
		}
	}

	return nil
}

// IsOffline reports whether every AI capability is disabled.
func (c *Config) IsOffline() bool {
	return c.Offline || c.Endpoint == ""
}

// WithDefaults fills in default values for unset fields.
// LocalPath is derived from the resolved Profile if not explicitly set.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Profile == "" {
		resolved, err := store.ResolveProfile("")
		if err == nil {
			c.Profile = resolved
		} else {
			c.Profile = store.DefaultProfile
		}
	}
	if c.LocalPath == "" {
		c.LocalPath = store.ProfileDBPath(store.DefaultRoot(), c.Profile)
	}

	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if c.ScenarioHistoryLimit == 0 {
		c.ScenarioHistoryLimit = defaults.ScenarioHistoryLimit
	}
	if c.TranslationHistoryLimit == 0 {
		c.TranslationHistoryLimit = defaults.TranslationHistoryLimit
	}
	if c.DialogueLookback == 0 {
		c.DialogueLookback = defaults.DialogueLookback
	}
	if c.EventLogLimit == 0 {
		c.EventLogLimit = defaults.EventLogLimit
	}
	if c.SourceLanguage == "" {
		c.SourceLanguage = defaults.SourceLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = defaults.TargetLanguage
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}

	return c
}

package praxis_test

import (
	"errors"
	"testing"
	"time"

	"github.com/hyperengineering/praxis"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PRAXIS_PROFILE", "course/anna")
	t.Setenv("PRAXIS_DB_PATH", "/tmp/praxis.db")
	t.Setenv("PRAXIS_ENDPOINT", "http://localhost:8080/v1")
	t.Setenv("PRAXIS_MODEL", "medllama")
	t.Setenv("PRAXIS_TIMEOUT", "45s")
	t.Setenv("PRAXIS_OFFLINE", "")
	t.Setenv("PRAXIS_DEBUG", "1")
	t.Setenv("PRAXIS_DEBUG_LOG", "/tmp/praxis.log")

	cfg := praxis.ConfigFromEnv()
	if cfg.Profile != "course/anna" || cfg.LocalPath != "/tmp/praxis.db" {
		t.Errorf("Profile/LocalPath = %q/%q", cfg.Profile, cfg.LocalPath)
	}
	if cfg.Endpoint != "http://localhost:8080/v1" || cfg.Model != "medllama" {
		t.Errorf("Endpoint/Model = %q/%q", cfg.Endpoint, cfg.Model)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.Offline || !cfg.Debug || cfg.LogPath != "/tmp/praxis.log" {
		t.Errorf("Offline/Debug/LogPath = %v/%v/%q", cfg.Offline, cfg.Debug, cfg.LogPath)
	}
}

func TestConfigFromEnv_BadTimeoutIgnored(t *testing.T) {
	t.Setenv("PRAXIS_TIMEOUT", "soon")
	if got := praxis.ConfigFromEnv().Timeout; got != 0 {
		t.Errorf("Timeout = %v, want 0 for an unparseable value", got)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Setenv("PRAXIS_PROFILE", "")
	cfg := praxis.Config{LocalPath: "/tmp/x.db"}.WithDefaults()

	if cfg.Profile != "default" {
		t.Errorf("Profile = %q, want default", cfg.Profile)
	}
	if cfg.Timeout != 30*time.Second || cfg.MaxAttempts != 3 || cfg.RetryBaseDelay != time.Second {
		t.Errorf("timeouts = %v/%d/%v", cfg.Timeout, cfg.MaxAttempts, cfg.RetryBaseDelay)
	}
	if cfg.ScenarioHistoryLimit != 10 || cfg.TranslationHistoryLimit != 50 || cfg.DialogueLookback != 10 || cfg.EventLogLimit != 100 {
		t.Errorf("limits = %+v", cfg)
	}
	if cfg.SourceLanguage != "en" || cfg.TargetLanguage != "de" {
		t.Errorf("pair = %s→%s", cfg.SourceLanguage, cfg.TargetLanguage)
	}
	if cfg.Endpoint != "" {
		t.Errorf("Endpoint = %q, want unset so the client stays offline", cfg.Endpoint)
	}
	if !cfg.IsOffline() {
		t.Error("IsOffline() = false without an endpoint")
	}
	if cfg.LocalPath != "/tmp/x.db" {
		t.Errorf("explicit LocalPath overwritten: %q", cfg.LocalPath)
	}
}

func TestConfig_WithDefaults_ProfileFromEnv(t *testing.T) {
	t.Setenv("PRAXIS_PROFILE", "exam")
	t.Setenv("HOME", "/home/student")

	cfg := praxis.Config{}.WithDefaults()
	if cfg.Profile != "exam" {
		t.Errorf("Profile = %q, want exam", cfg.Profile)
	}
	if want := "/home/student/.praxis/profiles/exam/praxis.db"; cfg.LocalPath != want {
		t.Errorf("LocalPath = %q, want %q", cfg.LocalPath, want)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := praxis.DefaultConfig()

	tests := []struct {
		name  string
		edit  func(*praxis.Config)
		field string
	}{
		{"valid default", func(*praxis.Config) {}, ""},
		{"missing path", func(c *praxis.Config) { c.LocalPath = "" }, "LocalPath"},
		{"bad profile", func(c *praxis.Config) { c.Profile = "../etc" }, "Profile"},
		{"relative endpoint", func(c *praxis.Config) { c.Endpoint = "localhost:11434" }, "Endpoint"},
		{"endpoint without model", func(c *praxis.Config) { c.Model = "" }, "Model"},
		{"offline ignores endpoint", func(c *praxis.Config) { c.Offline = true; c.Endpoint = "::bad" }, ""},
		{"negative timeout", func(c *praxis.Config) { c.Timeout = -time.Second }, "Timeout"},
		{"negative history", func(c *praxis.Config) { c.ScenarioHistoryLimit = -1 }, "ScenarioHistoryLimit"},
		{"negative lookback", func(c *praxis.Config) { c.DialogueLookback = -2 }, "DialogueLookback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var ve *praxis.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

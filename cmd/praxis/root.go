package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/hyperengineering/praxis/internal/engine/local"
	"github.com/hyperengineering/praxis/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	cfgProfile  string
	cfgDBPath   string
	cfgEndpoint string
	cfgModel    string
	cfgOffline  bool
	cfgDebug    bool
	outputJSON  bool
)

// cfgAPIKey is set by loadConfig so error output can scrub it.
var cfgAPIKey string

var rootCmd = &cobra.Command{
	Use:   "praxis",
	Short: "Praxis - clinical German practice CLI",
	Long: `Praxis helps medical students practise German clinical communication.

It generates clinical scenarios, simulates patient consultations in German,
translates medical terms and checks German text, using a local model
runtime when one is available and bundled content when it is not.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.praxis/config.yaml)")
	pf.StringVar(&cfgProfile, "profile", "", "Practice profile (default: $PRAXIS_PROFILE or 'default')")
	pf.StringVar(&cfgDBPath, "db-path", "", "Path to the practice database (overrides --profile)")
	pf.StringVar(&cfgEndpoint, "endpoint", "", "Local model runtime URL (default: "+praxis.DefaultEndpoint+")")
	pf.StringVar(&cfgModel, "model", "", "Model served by the runtime (default: "+praxis.DefaultModel+")")
	pf.BoolVar(&cfgOffline, "offline", false, "Disable AI capabilities and use bundled content")
	pf.BoolVar(&cfgDebug, "debug", false, "Enable debug logging")
	pf.BoolVar(&outputJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(dialogueCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(translationsCmd)
	rootCmd.AddCommand(grammarCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(profileCmd)
}

// setConfigDefaults registers every config file key. Each key is also read
// from PRAXIS_<KEY>, e.g. PRAXIS_DIALOGUE_LOOKBACK.
func setConfigDefaults(v *viper.Viper) {
	d := praxis.DefaultConfig()
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("model", d.Model)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_attempts", d.MaxAttempts)
	v.SetDefault("retry_base_delay", d.RetryBaseDelay)
	v.SetDefault("scenario_history_limit", d.ScenarioHistoryLimit)
	v.SetDefault("translation_history_limit", d.TranslationHistoryLimit)
	v.SetDefault("dialogue_lookback", d.DialogueLookback)
	v.SetDefault("event_log_limit", d.EventLogLimit)
	v.SetDefault("source_language", d.SourceLanguage)
	v.SetDefault("target_language", d.TargetLanguage)
	v.SetDefault("offline", false)
	v.SetDefault("debug", false)
}

// loadConfig resolves configuration with precedence flags > PRAXIS_* env >
// config file > defaults.
func loadConfig() (praxis.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(store.DefaultRoot())
	}
	v.SetEnvPrefix("PRAXIS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setConfigDefaults(v)

	pf := rootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"profile":  "profile",
		"db_path":  "db-path",
		"endpoint": "endpoint",
		"model":    "model",
		"offline":  "offline",
		"debug":    "debug",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return praxis.Config{}, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return praxis.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	profile, err := store.ResolveProfile(v.GetString("profile"))
	if err != nil {
		return praxis.Config{}, err
	}

	cfgAPIKey = v.GetString("api_key")

	return praxis.Config{
		Profile:                 profile,
		LocalPath:               v.GetString("db_path"),
		Endpoint:                v.GetString("endpoint"),
		Model:                   v.GetString("model"),
		Offline:                 v.GetBool("offline"),
		Timeout:                 v.GetDuration("timeout"),
		MaxAttempts:             v.GetInt("max_attempts"),
		RetryBaseDelay:          v.GetDuration("retry_base_delay"),
		ScenarioHistoryLimit:    v.GetInt("scenario_history_limit"),
		TranslationHistoryLimit: v.GetInt("translation_history_limit"),
		DialogueLookback:        v.GetInt("dialogue_lookback"),
		EventLogLimit:           v.GetInt("event_log_limit"),
		SourceLanguage:          v.GetString("source_language"),
		TargetLanguage:          v.GetString("target_language"),
		Debug:                   v.GetBool("debug"),
		LogPath:                 v.GetString("debug_log"),
	}, nil
}

// newClient opens the practice client for the resolved profile. Engines
// talk to the local runtime unless the configuration is offline.
func newClient() (*praxis.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var opts []praxis.Option
	if !cfg.IsOffline() {
		var engineOpts []local.Option
		if cfgAPIKey != "" {
			engineOpts = append(engineOpts, local.WithAPIKey(cfgAPIKey))
		}
		opts = append(opts, praxis.WithEngines(local.New(cfg.Endpoint, cfg.Model, engineOpts...).Engines()))
	}

	client, err := praxis.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	return client, nil
}

package praxis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// MergeStrategy defines how an import treats state already in the profile.
type MergeStrategy string

const (
	// MergeStrategySkip keeps existing records and adds unknown ones (default).
	MergeStrategySkip MergeStrategy = "skip"
	// MergeStrategyReplace clears the practice state before importing.
	MergeStrategyReplace MergeStrategy = "replace"
)

// ImportOptions controls Import.
type ImportOptions struct {
	Strategy MergeStrategy
	// DryRun counts what would be imported without writing anything.
	DryRun bool
}

// ImportResult summarizes an import operation.
type ImportResult struct {
	Scenarios    int      `json:"scenarios"`
	Translations int      `json:"translations"`
	Events       int      `json:"events"`
	Dialogue     bool     `json:"dialogue"`
	GrammarCheck bool     `json:"grammar_check"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// Import reads a snapshot written by Export into the profile. History
// limits from Config apply to the imported scenarios and translations.
func (c *Client) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("import: decode: %w", err)
	}
	if major, _, _ := strings.Cut(snap.Version, "."); major != "1" {
		return nil, fmt.Errorf("import: unsupported snapshot version %q", snap.Version)
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = MergeStrategySkip
	}
	if strategy != MergeStrategySkip && strategy != MergeStrategyReplace {
		return nil, fmt.Errorf("import: unknown merge strategy %q", strategy)
	}

	if strategy == MergeStrategyReplace && !opts.DryRun {
		if err := c.store.Reset(); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
	}

	result := &ImportResult{}

	for _, sc := range snap.Scenarios {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if sc.ID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("scenario %q: missing id", sc.Title))
			continue
		}
		exists, err := c.scenarioExists(sc.ID, strategy, opts.DryRun)
		if err != nil {
			return result, fmt.Errorf("import: %w", err)
		}
		if exists {
			result.Skipped++
			continue
		}
		if !opts.DryRun {
			if err := c.store.SaveScenario(sc, c.config.ScenarioHistoryLimit); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("scenario %s: %v", sc.ID, err))
				continue
			}
		}
		result.Scenarios++
	}

	known := make(map[string]bool)
	if strategy == MergeStrategySkip {
		existing, err := c.store.Translations(0)
		if err != nil {
			return result, fmt.Errorf("import: %w", err)
		}
		for _, t := range existing {
			known[t.ID] = true
		}
	}
	translations := slices.Clone(snap.Translations)
	slices.Reverse(translations)
	for _, t := range translations {
		if t.ID == "" || known[t.ID] {
			result.Skipped++
			continue
		}
		if !opts.DryRun {
			if err := c.store.AddTranslation(t, c.config.TranslationHistoryLimit); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("translation %s: %v", t.ID, err))
				continue
			}
		}
		known[t.ID] = true
		result.Translations++
	}

	if snap.Dialogue != nil {
		_, err := c.store.ActiveDialogue()
		hasActive := err == nil
		if err != nil && !errors.Is(err, ErrNoActiveDialogue) {
			return result, fmt.Errorf("import: %w", err)
		}
		if hasActive && strategy == MergeStrategySkip {
			result.Skipped++
		} else {
			if !opts.DryRun {
				if err := c.store.StartDialogue(*snap.Dialogue); err != nil {
					return result, fmt.Errorf("import: %w", err)
				}
			}
			result.Dialogue = true
		}
	}

	if snap.GrammarCheck != nil {
		_, err := c.store.LastGrammarCheck()
		hasCheck := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return result, fmt.Errorf("import: %w", err)
		}
		if hasCheck && strategy == MergeStrategySkip {
			result.Skipped++
		} else {
			if !opts.DryRun {
				if err := c.store.SaveGrammarCheck(*snap.GrammarCheck); err != nil {
					return result, fmt.Errorf("import: %w", err)
				}
			}
			result.GrammarCheck = true
		}
	}

	for _, e := range snap.Events {
		if !opts.DryRun {
			if err := c.store.AppendEvent(e, c.config.EventLogLimit); err != nil {
				return result, fmt.Errorf("import: %w", err)
			}
		}
		result.Events++
	}

	return result, nil
}

func (c *Client) scenarioExists(id string, strategy MergeStrategy, dryRun bool) (bool, error) {
	// A dry-run replace would have cleared everything first.
	if strategy == MergeStrategyReplace && dryRun {
		return false, nil
	}
	_, err := c.store.GetScenario(id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Reset removes scenarios, the active dialogue, translations and the last
// grammar check. Metadata and the event log are kept.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.withTx(func(tx *sql.Tx) error {
		if err := clearDialogueTx(tx); err != nil {
			return err
		}
		for _, table := range []string{"scenarios", "translations", "grammar_checks"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return fmt.Errorf("store: reset %s: %w", table, err)
			}
		}
		return nil
	})
}

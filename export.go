package praxis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"
)

// ExportVersion is the current version of the snapshot format.
const ExportVersion = "1.0"

// Snapshot is the top-level structure of a JSON export of one profile.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Profile    string    `json:"profile,omitempty"`

	// Scenarios are ordered oldest first; the last one is current.
	Scenarios []Scenario `json:"scenarios"`

	Dialogue *Dialogue `json:"dialogue,omitempty"`

	// Translations are ordered newest first, as shown to the user.
	Translations []TranslationResult `json:"translations"`

	GrammarCheck *GrammarCheckResult `json:"grammar_check,omitempty"`

	// Events are ordered oldest first.
	Events []Event `json:"events,omitempty"`
}

// Snapshot collects the practice state of the store.
func (s *Store) Snapshot(ctx context.Context, includeEvents bool) (*Snapshot, error) {
	snap := &Snapshot{
		Version:      ExportVersion,
		ExportedAt:   time.Now().UTC(),
		Scenarios:    []Scenario{},
		Translations: []TranslationResult{},
	}
	if profile, err := s.GetMetadata(metadataKeyProfile); err == nil {
		snap.Profile = profile
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	history, err := s.ScenarioHistory()
	if err != nil {
		return nil, err
	}
	current, err := s.CurrentScenario()
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		history = append([]Scenario{*current}, history...)
	}
	slices.Reverse(history)
	snap.Scenarios = append(snap.Scenarios, history...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := s.ActiveDialogue()
	switch {
	case errors.Is(err, ErrNoActiveDialogue):
	case err != nil:
		return nil, err
	default:
		snap.Dialogue = d
	}

	translations, err := s.Translations(0)
	if err != nil {
		return nil, err
	}
	snap.Translations = append(snap.Translations, translations...)

	g, err := s.LastGrammarCheck()
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		snap.GrammarCheck = g
	}

	if includeEvents {
		events, err := s.Events(EventFilter{})
		if err != nil {
			return nil, err
		}
		slices.Reverse(events)
		snap.Events = events
	}
	return snap, nil
}

// ExportOptions controls Export.
type ExportOptions struct {
	// IncludeEvents adds the persisted event log to the snapshot.
	IncludeEvents bool
}

// Export writes the profile's practice state to w as indented JSON.
func (c *Client) Export(ctx context.Context, w io.Writer, opts ExportOptions) error {
	snap, err := c.store.Snapshot(ctx, opts.IncludeEvents)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if snap.Profile == "" {
		snap.Profile = c.config.Profile
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}

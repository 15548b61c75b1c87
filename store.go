package praxis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperengineering/praxis/internal/store/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the practice store schema written by this build.
const SchemaVersion = "1"

// Metadata keys.
const (
	metadataKeySchemaVersion = "schema_version"
	metadataKeyCreatedAt     = "created_at"
	metadataKeyProfile       = "profile"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// Store manages the local SQLite practice database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewStore opens or creates a local practice store.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO metadata (key, value) VALUES (?, ?), (?, ?)
	`, metadataKeySchemaVersion, SchemaVersion, metadataKeyCreatedAt, now)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// ============================================================================
// Scenarios
// ============================================================================

// SaveScenario stores s as the current scenario. The previous current one
// becomes history; at most historyLimit prior scenarios are kept, oldest
// evicted first.
func (s *Store) SaveScenario(sc Scenario, historyLimit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if historyLimit < 0 {
		historyLimit = 0
	}

	vitals, err := marshalNullable(sc.VitalSigns)
	if err != nil {
		return fmt.Errorf("store: encode vital signs: %w", err)
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO scenarios (id, specialty, difficulty, title, description, chief_complaint, vital_signs, fallback, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			sc.ID,
			string(sc.Specialty),
			string(sc.Difficulty),
			sc.Title,
			sc.Description,
			sc.ChiefComplaint,
			vitals,
			sc.Fallback,
			formatTime(sc.CreatedAt),
		); err != nil {
			return fmt.Errorf("store: insert scenario: %w", err)
		}

		if _, err := tx.Exec(`
			DELETE FROM scenarios WHERE seq NOT IN (
				SELECT seq FROM scenarios ORDER BY seq DESC LIMIT ?
			)
		`, historyLimit+1); err != nil {
			return fmt.Errorf("store: evict scenarios: %w", err)
		}
		return nil
	})
}

const scenarioColumns = `id, specialty, difficulty, title, description, chief_complaint, vital_signs, fallback, created_at`

// CurrentScenario returns the most recent scenario, or ErrNotFound.
func (s *Store) CurrentScenario() (*Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	row := s.db.QueryRow(`SELECT ` + scenarioColumns + ` FROM scenarios ORDER BY seq DESC LIMIT 1`)
	return scanScenario(row)
}

// GetScenario returns a stored scenario by ID, or ErrNotFound.
func (s *Store) GetScenario(id string) (*Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	row := s.db.QueryRow(`SELECT `+scenarioColumns+` FROM scenarios WHERE id = ?`, id)
	return scanScenario(row)
}

// ScenarioHistory returns the scenarios before the current one, newest first.
func (s *Store) ScenarioHistory() ([]Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.Query(`SELECT ` + scenarioColumns + ` FROM scenarios ORDER BY seq DESC LIMIT -1 OFFSET 1`)
	if err != nil {
		return nil, fmt.Errorf("store: query scenarios: %w", err)
	}
	defer rows.Close()

	var out []Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

func scanScenario(sc scanner) (*Scenario, error) {
	var (
		out       Scenario
		specialty string
		diff      string
		vitals    sql.NullString
		createdAt string
	)
	err := sc.Scan(
		&out.ID,
		&specialty,
		&diff,
		&out.Title,
		&out.Description,
		&out.ChiefComplaint,
		&vitals,
		&out.Fallback,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan scenario: %w", err)
	}
	out.Specialty = Specialty(specialty)
	out.Difficulty = Difficulty(diff)
	out.CreatedAt = parseTime(createdAt)
	if vitals.Valid && vitals.String != "" {
		var v VitalSigns
		if err := json.Unmarshal([]byte(vitals.String), &v); err == nil {
			out.VitalSigns = &v
		}
	}
	return &out, nil
}

// ============================================================================
// Dialogue
// ============================================================================

// StartDialogue replaces any active dialogue with d.
func (s *Store) StartDialogue(d Dialogue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	scenario, err := marshalNullable(d.Scenario)
	if err != nil {
		return fmt.Errorf("store: encode dialogue scenario: %w", err)
	}
	var scenarioID *string
	if d.Scenario != nil {
		scenarioID = &d.Scenario.ID
	}

	return s.withTx(func(tx *sql.Tx) error {
		if err := clearDialogueTx(tx); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO dialogues (id, scenario_id, scenario, started_at) VALUES (?, ?, ?, ?)
		`, d.ID, scenarioID, scenario, formatTime(d.StartedAt)); err != nil {
			return fmt.Errorf("store: insert dialogue: %w", err)
		}
		for _, m := range d.History {
			if err := insertTurnTx(tx, d.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// ActiveDialogue returns the active dialogue with its turns in order, or
// ErrNoActiveDialogue.
func (s *Store) ActiveDialogue() (*Dialogue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var (
		d         Dialogue
		scenario  sql.NullString
		startedAt string
	)
	err := s.db.QueryRow(`SELECT id, scenario, started_at FROM dialogues LIMIT 1`).Scan(&d.ID, &scenario, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveDialogue
	}
	if err != nil {
		return nil, fmt.Errorf("store: query dialogue: %w", err)
	}
	d.StartedAt = parseTime(startedAt)
	if scenario.Valid && scenario.String != "" {
		var sc Scenario
		if err := json.Unmarshal([]byte(scenario.String), &sc); err == nil {
			d.Scenario = &sc
		}
	}

	rows, err := s.db.Query(`
		SELECT id, role, content, emotion, timestamp FROM dialogue_turns
		WHERE dialogue_id = ? ORDER BY seq
	`, d.ID)
	if err != nil {
		return nil, fmt.Errorf("store: query turns: %w", err)
	}
	defer rows.Close()

	d.History = []DialogueMessage{}
	for rows.Next() {
		var (
			m       DialogueMessage
			role    string
			emotion sql.NullString
			ts      string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &emotion, &ts); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		m.Role = Role(role)
		m.Emotion = emotion.String
		m.Timestamp = parseTime(ts)
		d.History = append(d.History, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate turns: %w", err)
	}
	return &d, nil
}

// AppendTurn adds a turn to the active dialogue. Turns are append-only.
func (s *Store) AppendTurn(dialogueID string, m DialogueMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.withTx(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM dialogues WHERE id = ?`, dialogueID).Scan(&exists); err != nil {
			return fmt.Errorf("store: check dialogue: %w", err)
		}
		if exists == 0 {
			return ErrNoActiveDialogue
		}
		return insertTurnTx(tx, dialogueID, m)
	})
}

// ClearDialogue ends the active dialogue. No-op without one.
func (s *Store) ClearDialogue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.withTx(clearDialogueTx)
}

func clearDialogueTx(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM dialogue_turns`); err != nil {
		return fmt.Errorf("store: clear turns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM dialogues`); err != nil {
		return fmt.Errorf("store: clear dialogue: %w", err)
	}
	return nil
}

func insertTurnTx(tx *sql.Tx, dialogueID string, m DialogueMessage) error {
	_, err := tx.Exec(`
		INSERT INTO dialogue_turns (dialogue_id, id, role, content, emotion, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dialogueID, m.ID, string(m.Role), m.Content, nullString(m.Emotion), formatTime(m.Timestamp))
	if err != nil {
		return fmt.Errorf("store: insert turn: %w", err)
	}
	return nil
}

// ============================================================================
// Translations
// ============================================================================

// AddTranslation records t, keeping at most limit entries (oldest evicted).
func (s *Store) AddTranslation(t TranslationResult, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	alternatives, err := marshalNullable(t.Alternatives)
	if err != nil {
		return fmt.Errorf("store: encode alternatives: %w", err)
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO translations (id, original, translated, source_language, target_language, alternatives, fallback, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			t.Original,
			t.Translated,
			t.SourceLanguage,
			t.TargetLanguage,
			alternatives,
			t.Fallback,
			formatTime(t.CreatedAt),
		); err != nil {
			return fmt.Errorf("store: insert translation: %w", err)
		}
		if limit > 0 {
			if _, err := tx.Exec(`
				DELETE FROM translations WHERE seq NOT IN (
					SELECT seq FROM translations ORDER BY seq DESC LIMIT ?
				)
			`, limit); err != nil {
				return fmt.Errorf("store: evict translations: %w", err)
			}
		}
		return nil
	})
}

// Translations returns recorded translations, newest first. limit <= 0 means all.
func (s *Store) Translations(limit int) ([]TranslationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, original, translated, source_language, target_language, alternatives, fallback, created_at
		FROM translations ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query translations: %w", err)
	}
	defer rows.Close()

	var out []TranslationResult
	for rows.Next() {
		var (
			t            TranslationResult
			alternatives sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&t.ID, &t.Original, &t.Translated, &t.SourceLanguage, &t.TargetLanguage,
			&alternatives, &t.Fallback, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan translation: %w", err)
		}
		if alternatives.Valid && alternatives.String != "" {
			_ = json.Unmarshal([]byte(alternatives.String), &t.Alternatives)
		}
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ============================================================================
// Grammar
// ============================================================================

// SaveGrammarCheck replaces the last grammar check wholesale.
func (s *Store) SaveGrammarCheck(r GrammarCheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []GrammarSuggestion{}
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("store: encode suggestions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO grammar_checks (id, original_text, corrected_text, suggestions, score, checked_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, r.OriginalText, r.CorrectedText, string(data), r.Score, formatTime(r.CheckedAt))
	if err != nil {
		return fmt.Errorf("store: save grammar check: %w", err)
	}
	return nil
}

// LastGrammarCheck returns the most recent grammar check, or ErrNotFound.
func (s *Store) LastGrammarCheck() (*GrammarCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var (
		r           GrammarCheckResult
		suggestions string
		checkedAt   string
	)
	err := s.db.QueryRow(`
		SELECT original_text, corrected_text, suggestions, score, checked_at FROM grammar_checks WHERE id = 1
	`).Scan(&r.OriginalText, &r.CorrectedText, &suggestions, &r.Score, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: query grammar check: %w", err)
	}
	if err := json.Unmarshal([]byte(suggestions), &r.Suggestions); err != nil {
		return nil, fmt.Errorf("store: decode suggestions: %w", err)
	}
	r.CheckedAt = parseTime(checkedAt)
	return &r, nil
}

// ============================================================================
// Event log
// ============================================================================

// AppendEvent records e, keeping at most limit events (oldest evicted).
func (s *Store) AppendEvent(e Event, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	fields, err := marshalNullable(e.Fields)
	if err != nil {
		return fmt.Errorf("store: encode event fields: %w", err)
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO event_log (level, name, fields, timestamp) VALUES (?, ?, ?, ?)
		`, e.Level, e.Name, fields, formatTime(e.Timestamp)); err != nil {
			return fmt.Errorf("store: insert event: %w", err)
		}
		if limit > 0 {
			if _, err := tx.Exec(`
				DELETE FROM event_log WHERE seq NOT IN (
					SELECT seq FROM event_log ORDER BY seq DESC LIMIT ?
				)
			`, limit); err != nil {
				return fmt.Errorf("store: evict events: %w", err)
			}
		}
		return nil
	})
}

// Events returns recorded events matching filter, newest first.
func (s *Store) Events(filter EventFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `SELECT level, name, fields, timestamp FROM event_log WHERE 1=1`
	var args []any
	if filter.Level != "" {
		query += ` AND level = ?`
		args = append(args, filter.Level)
	}
	if filter.Name != "" {
		query += ` AND instr(name, ?) > 0`
		args = append(args, filter.Name)
	}
	query += ` ORDER BY seq DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e      Event
			fields sql.NullString
			ts     string
		)
		if err := rows.Scan(&e.Level, &e.Name, &fields, &ts); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		if fields.Valid && fields.String != "" {
			_ = json.Unmarshal([]byte(fields.String), &e.Fields)
		}
		e.Timestamp = parseTime(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearEvents removes every recorded event.
func (s *Store) ClearEvents() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(`DELETE FROM event_log`)
	return err
}

// ============================================================================
// Metadata and stats
// ============================================================================

// GetMetadata returns a metadata value, or ErrNotFound.
func (s *Store) GetMetadata(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SetMetadata upserts a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Stats returns store statistics.
func (s *Store) Stats() (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	stats := &StoreStats{SchemaVersion: SchemaVersion}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM scenarios", &stats.ScenarioCount},
		{"SELECT COUNT(*) FROM translations", &stats.TranslationCount},
		{"SELECT COUNT(*) FROM dialogue_turns", &stats.DialogueTurns},
		{"SELECT COUNT(*) FROM event_log", &stats.EventCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("store: stats: %w", err)
		}
	}
	return stats, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// withTx runs fn in a transaction. Callers hold s.mu.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// scanner abstracts the Scan method shared by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// marshalNullable encodes v as JSON, or NULL for a nil pointer, slice or map.
func marshalNullable[T any](v T) (*string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	str := string(data)
	return &str, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

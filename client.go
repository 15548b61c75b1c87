package praxis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is the main interface for a practice profile: it owns the store,
// the adapter and the scenario references surfaced in this process.
type Client struct {
	store   *Store
	adapter *Adapter
	session *Session
	config  Config
	logger  *zap.Logger
	now     func() time.Time

	// turnMu serializes SendMessage so turns land in order.
	turnMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	engines Engines
	logger  *zap.Logger
	now     func() time.Time
	adapter []AdapterOption
}

// WithEngines sets the capability providers. Without it (or with Offline
// set) every feature runs on bundled content.
func WithEngines(e Engines) Option {
	return func(o *clientOptions) { o.engines = e }
}

// WithBaseLogger replaces the logger built from Config. Events are still
// persisted to the store.
func WithBaseLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithTimeSource sets the clock used for dialogue timestamps and the adapter.
func WithTimeSource(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// WithAdapterOptions passes extra options to the adapter, applied after
// the ones derived from Config.
func WithAdapterOptions(opts ...AdapterOption) Option {
	return func(o *clientOptions) { o.adapter = append(o.adapter, opts...) }
}

// New creates a new praxis client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := NewStore(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	if cfg.Profile != "" {
		if err := store.SetMetadata(metadataKeyProfile, cfg.Profile); err != nil {
			store.Close()
			return nil, fmt.Errorf("client: %w", err)
		}
	}

	base := o.logger
	if base == nil {
		base, err = NewLogger(LogConfig{Debug: cfg.Debug, Path: cfg.LogPath})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("client: %w", err)
		}
	}
	logger := TeeEvents(base, store, cfg.EventLogLimit)

	engines := o.engines
	if cfg.Offline {
		engines = Engines{}
	}

	adapterOpts := []AdapterOption{
		WithTimeout(cfg.Timeout),
		WithRetryPolicy(RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.RetryBaseDelay}),
		WithLogger(logger),
		WithClock(o.now),
		WithDialogueLookback(cfg.DialogueLookback),
		WithLanguagePair(cfg.SourceLanguage, cfg.TargetLanguage),
	}
	adapterOpts = append(adapterOpts, o.adapter...)

	return &Client{
		store:   store,
		adapter: NewAdapter(engines, adapterOpts...),
		session: NewSession(),
		config:  cfg,
		logger:  logger,
		now:     o.now,
	}, nil
}

// Config returns the resolved configuration.
func (c *Client) Config() Config {
	return c.config
}

// Session returns the scenario references surfaced by this client.
func (c *Client) Session() *Session {
	return c.session
}

// CheckCapabilities probes which AI capabilities are usable right now.
func (c *Client) CheckCapabilities(ctx context.Context) Capabilities {
	return c.adapter.CheckCapabilities(ctx)
}

// GenerateScenario asks for a new clinical case. A produced scenario
// (AI or bundled) becomes the current one and is tracked as a session ref.
func (c *Client) GenerateScenario(ctx context.Context, params ScenarioParams) (Result[Scenario], error) {
	res := c.adapter.GenerateScenario(ctx, params)
	if !res.OK() {
		return res, nil
	}
	if err := c.store.SaveScenario(res.Data, c.config.ScenarioHistoryLimit); err != nil {
		return res, err
	}
	c.session.Track(res.Data.ID)
	return res, nil
}

// CurrentScenario returns the most recent scenario, or ErrNoScenario.
func (c *Client) CurrentScenario() (*Scenario, error) {
	sc, err := c.store.CurrentScenario()
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoScenario
	}
	return sc, err
}

// ScenarioHistory returns earlier scenarios, newest first.
func (c *Client) ScenarioHistory() ([]Scenario, error) {
	return c.store.ScenarioHistory()
}

// GetScenario resolves ref as a session reference (S1), a scenario ID or a
// title snippet of a tracked scenario.
func (c *Client) GetScenario(ref string) (*Scenario, error) {
	id := ref
	if matched, ok := c.session.Match(ref, c.scenarioTitle); ok {
		id = matched
	}
	sc, err := c.store.GetScenario(id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionRefNotFound, ref)
	}
	return sc, err
}

func (c *Client) scenarioTitle(id string) string {
	sc, err := c.store.GetScenario(id)
	if err != nil {
		return ""
	}
	return sc.Title
}

// StartDialogue opens a consultation for a scenario, replacing any active
// dialogue. An empty ref uses the current scenario.
func (c *Client) StartDialogue(ctx context.Context, ref string) (*Dialogue, error) {
	var (
		sc  *Scenario
		err error
	)
	if strings.TrimSpace(ref) == "" {
		sc, err = c.CurrentScenario()
	} else {
		sc, err = c.GetScenario(ref)
	}
	if err != nil {
		return nil, err
	}

	d := Dialogue{
		ID:        newID(),
		Scenario:  sc,
		History:   []DialogueMessage{},
		StartedAt: c.now().UTC(),
	}
	if err := c.store.StartDialogue(d); err != nil {
		return nil, err
	}
	c.logger.Info("dialogue.started", zap.String("dialogue_id", d.ID), zap.String("scenario_id", sc.ID))
	return &d, nil
}

// ActiveDialogue returns the active dialogue, or ErrNoActiveDialogue.
func (c *Client) ActiveDialogue() (*Dialogue, error) {
	return c.store.ActiveDialogue()
}

// SendMessage records the doctor's message, then asks the simulated patient
// to answer. The patient turn is recorded only when a reply was produced.
func (c *Client) SendMessage(ctx context.Context, message string) (Result[DialogueResponse], error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	d, err := c.store.ActiveDialogue()
	if err != nil {
		return Result[DialogueResponse]{}, err
	}

	// History passed to the adapter excludes the message being answered.
	dc := DialogueContext{
		Scenario:         d.Scenario,
		History:          d.History,
		MaxHistoryLength: c.config.DialogueLookback,
	}

	if strings.TrimSpace(message) != "" {
		doctor := DialogueMessage{
			ID:        newID(),
			Role:      RoleDoctor,
			Content:   message,
			Timestamp: c.now().UTC(),
		}
		if err := c.store.AppendTurn(d.ID, doctor); err != nil {
			return Result[DialogueResponse]{}, err
		}
	}

	res := c.adapter.SimulateDialogue(ctx, message, dc)
	if !res.OK() {
		return res, nil
	}

	patient := DialogueMessage{
		ID:        newID(),
		Role:      RolePatient,
		Content:   res.Data.Message,
		Emotion:   res.Data.Emotion,
		Timestamp: c.now().UTC(),
	}
	if err := c.store.AppendTurn(d.ID, patient); err != nil {
		return res, err
	}
	return res, nil
}

// ClearDialogue ends the active dialogue.
func (c *Client) ClearDialogue() error {
	return c.store.ClearDialogue()
}

// TranslateTerm translates a term and records it in the history. Empty
// language fields default to the configured pair.
func (c *Client) TranslateTerm(ctx context.Context, params TranslationParams) (Result[TranslationResult], error) {
	if params.SourceLanguage == "" {
		params.SourceLanguage = c.config.SourceLanguage
	}
	if params.TargetLanguage == "" {
		params.TargetLanguage = c.config.TargetLanguage
	}

	res := c.adapter.TranslateTerm(ctx, params)
	if !res.OK() {
		return res, nil
	}
	if err := c.store.AddTranslation(res.Data, c.config.TranslationHistoryLimit); err != nil {
		return res, err
	}
	return res, nil
}

// Translations returns recorded translations, newest first.
func (c *Client) Translations(limit int) ([]TranslationResult, error) {
	return c.store.Translations(limit)
}

// CheckGrammar checks text and keeps the result as the last check.
func (c *Client) CheckGrammar(ctx context.Context, text string) (Result[GrammarCheckResult], error) {
	res := c.adapter.CheckGrammar(ctx, text)
	if !res.OK() {
		return res, nil
	}
	if err := c.store.SaveGrammarCheck(res.Data); err != nil {
		return res, err
	}
	return res, nil
}

// LastGrammarCheck returns the most recent grammar check, or ErrNotFound.
func (c *Client) LastGrammarCheck() (*GrammarCheckResult, error) {
	return c.store.LastGrammarCheck()
}

// Events returns persisted events, newest first.
func (c *Client) Events(filter EventFilter) ([]Event, error) {
	return c.store.Events(filter)
}

// ClearEvents removes all persisted events.
func (c *Client) ClearEvents() error {
	return c.store.ClearEvents()
}

// Stats returns counts for the profile's store.
func (c *Client) Stats() (*StoreStats, error) {
	return c.store.Stats()
}

// Store returns the underlying practice store.
func (c *Client) Store() *Store {
	return c.store
}

// Close releases engine sessions and closes the store. Safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.adapter.Destroy()
	_ = c.logger.Sync()
	return c.store.Close()
}

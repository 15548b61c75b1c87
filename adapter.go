package praxis

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Operation names used in error messages and events.
const (
	opScenario  = "SCENARIO_GENERATION"
	opDialogue  = "DIALOGUE_SIMULATION"
	opTranslate = "TRANSLATION"
	opGrammar   = "GRAMMAR_CHECK"
)

// grammarUnavailableReason is shown when no rewriter can check grammar.
const grammarUnavailableReason = "Grammar checking capability not available"

// Adapter wraps the engine capabilities with timeouts, retries, session
// reuse and fallback content. Every operation resolves to a Result.
// An Adapter is safe for concurrent use; Destroy releases its sessions.
type Adapter struct {
	engines    Engines
	timeout    time.Duration
	retry      RetryPolicy
	classifier Classifier
	fallback   FallbackSource
	logger     *zap.Logger
	now        func() time.Time
	lookback   int

	sourceLanguage string
	targetLanguage string

	languageModel sessionSlot[LanguageModelSession]
	translator    sessionSlot[TranslatorSession]
	rewriter      sessionSlot[RewriterSession]

	destroyed atomic.Bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout bounds every engine call. Default 30s.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = d }
}

// WithRetryPolicy replaces the default 3 attempts with 1s base delay.
func WithRetryPolicy(p RetryPolicy) AdapterOption {
	return func(a *Adapter) { a.retry = p }
}

// WithClassifier replaces the error decision table.
func WithClassifier(c Classifier) AdapterOption {
	return func(a *Adapter) { a.classifier = c }
}

// WithFallback replaces the bundled fallback content.
func WithFallback(f FallbackSource) AdapterOption {
	return func(a *Adapter) { a.fallback = f }
}

// WithLogger sets the event logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// WithDialogueLookback sets how many past turns go into a dialogue prompt
// when the context does not say. Default 10.
func WithDialogueLookback(n int) AdapterOption {
	return func(a *Adapter) { a.lookback = n }
}

// WithLanguagePair sets the pair the translator probe checks. Default en → de.
func WithLanguagePair(source, target string) AdapterOption {
	return func(a *Adapter) { a.sourceLanguage, a.targetLanguage = source, target }
}

// NewAdapter creates an adapter over the given engines. A nil provider in
// engines marks that capability absent.
func NewAdapter(engines Engines, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		engines:        engines,
		timeout:        DefaultTimeout,
		retry:          DefaultRetryPolicy(),
		classifier:     DefaultClassifier,
		logger:         zap.NewNop(),
		now:            time.Now,
		lookback:       DefaultDialogueLookback,
		sourceLanguage: "en",
		targetLanguage: "de",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fallback == nil {
		a.fallback = BundledFallback()
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.classifier == nil {
		a.classifier = DefaultClassifier
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.retry = a.retry.withDefaults()
	return a
}

// GenerateScenario produces a clinical case. When the prompt capability is
// absent or the call fails terminally, a bundled scenario for the same
// specialty is returned as a fallback success.
func (a *Adapter) GenerateScenario(ctx context.Context, params ScenarioParams) (res Result[Scenario]) {
	defer recoverResult(&res, opScenario, a.logger)
	start := a.now()
	a.logger.Info("ai.scenario.start",
		zap.String("specialty", string(params.Specialty)),
		zap.String("difficulty", string(params.Difficulty)),
	)

	if err := params.Validate(); err != nil {
		return a.inputFailureScenario(err)
	}
	if a.destroyed.Load() || a.engines.LanguageModel == nil {
		a.logger.Warn("ai.scenario.unavailable", zap.String("specialty", string(params.Specialty)))
		return FallbackSuccess(a.fallbackScenario(params))
	}

	prompt := buildScenarioPrompt(params)
	scenario, aiErr := invoke(ctx, a, &a.languageModel, "", a.createLanguageModel, opScenario,
		func(ctx context.Context, s LanguageModelSession) (Scenario, error) {
			text, err := s.Prompt(ctx, prompt)
			if err != nil {
				return Scenario{}, err
			}
			return parseScenario(text, params)
		})
	if aiErr != nil {
		a.logger.Error("ai.scenario.error", zap.Error(aiErr), zap.Duration("duration", a.now().Sub(start)))
		a.logger.Info("ai.scenario.fallback", zap.String("specialty", string(params.Specialty)))
		return FallbackSuccess(a.fallbackScenario(params))
	}

	scenario.ID = newID()
	scenario.CreatedAt = a.now().UTC()
	a.logger.Info("ai.scenario.success",
		zap.String("scenario_id", scenario.ID),
		zap.Duration("duration", a.now().Sub(start)),
	)
	return Success(scenario)
}

func (a *Adapter) inputFailureScenario(err error) Result[Scenario] {
	aiErr := a.classifier.Classify(err, opScenario)
	a.logger.Warn("ai.scenario.error", zap.Error(aiErr))
	return Failure[Scenario](aiErr)
}

func (a *Adapter) fallbackScenario(params ScenarioParams) Scenario {
	s := a.fallback.Scenario(params)
	s.ID = newID()
	s.CreatedAt = a.now().UTC()
	s.Fallback = true
	return s
}

// SimulateDialogue asks the simulated patient to answer message. Only the
// last turns of dc.History go into the prompt.
func (a *Adapter) SimulateDialogue(ctx context.Context, message string, dc DialogueContext) (res Result[DialogueResponse]) {
	defer recoverResult(&res, opDialogue, a.logger)
	start := a.now()
	a.logger.Info("ai.dialogue.start", zap.Int("message_length", len(message)))

	if strings.TrimSpace(message) == "" {
		aiErr := a.classifier.Classify(&InputError{Field: "message", Message: "required"}, opDialogue)
		a.logger.Warn("ai.dialogue.error", zap.Error(aiErr))
		return Failure[DialogueResponse](aiErr)
	}
	if a.destroyed.Load() || a.engines.LanguageModel == nil {
		a.logger.Warn("ai.dialogue.unavailable")
		return FallbackSuccess(a.fallbackDialogue())
	}

	prompt := buildDialoguePrompt(message, dc, a.lookback)
	reply, aiErr := invoke(ctx, a, &a.languageModel, "", a.createLanguageModel, opDialogue,
		func(ctx context.Context, s LanguageModelSession) (DialogueResponse, error) {
			text, err := s.Prompt(ctx, prompt)
			if err != nil {
				return DialogueResponse{}, err
			}
			return parseDialogue(text)
		})
	if aiErr != nil {
		a.logger.Error("ai.dialogue.error", zap.Error(aiErr), zap.Duration("duration", a.now().Sub(start)))
		a.logger.Info("ai.dialogue.fallback")
		return FallbackSuccess(a.fallbackDialogue())
	}

	a.logger.Info("ai.dialogue.success",
		zap.Int("response_length", len(reply.Message)),
		zap.Duration("duration", a.now().Sub(start)),
	)
	return Success(reply)
}

func (a *Adapter) fallbackDialogue() DialogueResponse {
	r := a.fallback.DialogueLine()
	r.Fallback = true
	return r
}

// TranslateTerm translates a medical term. Each language pair has its own
// translator session; the bundled dictionary answers when the
// capability is absent or fails terminally.
func (a *Adapter) TranslateTerm(ctx context.Context, params TranslationParams) (res Result[TranslationResult]) {
	defer recoverResult(&res, opTranslate, a.logger)
	start := a.now()
	a.logger.Info("ai.translate.start",
		zap.String("source", params.SourceLanguage),
		zap.String("target", params.TargetLanguage),
		zap.Int("term_length", len(params.Term)),
	)

	if err := params.Validate(); err != nil {
		aiErr := a.classifier.Classify(err, opTranslate)
		a.logger.Warn("ai.translate.error", zap.Error(aiErr))
		return Failure[TranslationResult](aiErr)
	}
	if a.destroyed.Load() || a.engines.Translator == nil {
		a.logger.Warn("ai.translate.unavailable")
		return FallbackSuccess(a.fallbackTranslation(params))
	}

	pair := TranslatorOptions{SourceLanguage: params.SourceLanguage, TargetLanguage: params.TargetLanguage}
	create := func(ctx context.Context) (TranslatorSession, error) {
		return a.createTranslator(ctx, pair)
	}
	translated, aiErr := invoke(ctx, a, &a.translator, pair.SourceLanguage+"→"+pair.TargetLanguage, create, opTranslate,
		func(ctx context.Context, s TranslatorSession) (string, error) {
			out, err := s.Translate(ctx, params.Term)
			if err != nil {
				return "", err
			}
			out = strings.TrimSpace(out)
			if out == "" {
				return "", fmt.Errorf("%w: empty translation", ErrInvalidResponse)
			}
			return out, nil
		})
	if aiErr != nil {
		a.logger.Error("ai.translate.error", zap.Error(aiErr), zap.Duration("duration", a.now().Sub(start)))
		a.logger.Info("ai.translate.fallback")
		return FallbackSuccess(a.fallbackTranslation(params))
	}

	a.logger.Info("ai.translate.success", zap.Duration("duration", a.now().Sub(start)))
	return Success(TranslationResult{
		ID:             newID(),
		Original:       params.Term,
		Translated:     translated,
		SourceLanguage: params.SourceLanguage,
		TargetLanguage: params.TargetLanguage,
		CreatedAt:      a.now().UTC(),
	})
}

func (a *Adapter) fallbackTranslation(params TranslationParams) TranslationResult {
	t := a.fallback.Translate(params)
	t.ID = newID()
	t.CreatedAt = a.now().UTC()
	t.Fallback = true
	return t
}

// CheckGrammar rewrites text and reports the differences as suggestions.
// There is no substitute for a missing rewriter: the result is Unavailable,
// and other terminal failures are returned as errors.
func (a *Adapter) CheckGrammar(ctx context.Context, text string) (res Result[GrammarCheckResult]) {
	defer recoverResult(&res, opGrammar, a.logger)
	start := a.now()
	a.logger.Info("ai.grammar.start", zap.Int("text_length", len(text)))

	if strings.TrimSpace(text) == "" {
		aiErr := a.classifier.Classify(&InputError{Field: "text", Message: "required"}, opGrammar)
		a.logger.Warn("ai.grammar.error", zap.Error(aiErr))
		return Failure[GrammarCheckResult](aiErr)
	}
	if a.destroyed.Load() || a.engines.Rewriter == nil {
		a.logger.Warn("ai.grammar.unavailable")
		return Unavailable[GrammarCheckResult](grammarUnavailableReason)
	}

	corrected, aiErr := invoke(ctx, a, &a.rewriter, "", a.createRewriter, opGrammar,
		func(ctx context.Context, s RewriterSession) (string, error) {
			return s.Rewrite(ctx, text)
		})
	if aiErr != nil {
		a.logger.Error("ai.grammar.error", zap.Error(aiErr), zap.Duration("duration", a.now().Sub(start)))
		if aiErr.Code == CodeAPIUnavailable {
			return Unavailable[GrammarCheckResult](aiErr.Message)
		}
		return Failure[GrammarCheckResult](aiErr)
	}

	result := DiffGrammar(text, strings.TrimSpace(corrected))
	result.CheckedAt = a.now().UTC()
	a.logger.Info("ai.grammar.success",
		zap.Int("suggestions", len(result.Suggestions)),
		zap.Duration("duration", a.now().Sub(start)),
	)
	return Success(result)
}

// Destroy releases all held sessions. Later operations behave as if every
// capability were absent. Safe to call more than once.
func (a *Adapter) Destroy() {
	if !a.destroyed.CompareAndSwap(false, true) {
		return
	}
	a.languageModel.destroy()
	a.translator.destroy()
	a.rewriter.destroy()
	a.logger.Info("ai.client.destroyed")
}

// ActiveSessions reports how many engine sessions are currently held.
func (a *Adapter) ActiveSessions() int {
	return a.languageModel.held() + a.translator.held() + a.rewriter.held()
}

func (a *Adapter) createLanguageModel(ctx context.Context) (LanguageModelSession, error) {
	avail, err := a.engines.LanguageModel.Availability(ctx)
	if err := requireReady(avail, err); err != nil {
		return nil, err
	}
	s, err := a.engines.LanguageModel.Create(ctx, languageModelOptions)
	return checkCreated(s, err)
}

func (a *Adapter) createTranslator(ctx context.Context, opts TranslatorOptions) (TranslatorSession, error) {
	avail, err := a.engines.Translator.Availability(ctx, opts.SourceLanguage, opts.TargetLanguage)
	if err := requireReady(avail, err); err != nil {
		return nil, err
	}
	s, err := a.engines.Translator.Create(ctx, opts)
	return checkCreated(s, err)
}

func (a *Adapter) createRewriter(ctx context.Context) (RewriterSession, error) {
	avail, err := a.engines.Rewriter.Availability(ctx)
	if err := requireReady(avail, err); err != nil {
		return nil, err
	}
	s, err := a.engines.Rewriter.Create(ctx, grammarRewriterOptions)
	return checkCreated(s, err)
}

// requireReady gates session creation on a readily available capability.
func requireReady(avail Availability, err error) error {
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if avail != AvailabilityReadily {
		return fmt.Errorf("%w: %s", ErrCapabilityUnavailable, avail.Status())
	}
	return nil
}

func checkCreated[S destroyer](s S, err error) (S, error) {
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrSessionCreate, err)
	}
	if any(s) == nil {
		return s, fmt.Errorf("%w: engine returned no session", ErrSessionCreate)
	}
	return s, nil
}

// invoke runs one capability call under the retry policy. Each attempt
// obtains the session, creating it under the timeout if needed, then runs
// call under the timeout. A session that
// reports itself lost is dropped so the next attempt recreates it.
func invoke[S destroyer, T any](
	ctx context.Context,
	a *Adapter,
	slot *sessionSlot[S],
	key string,
	create func(context.Context) (S, error),
	op string,
	call func(context.Context, S) (T, error),
) (T, *AIError) {
	policy := a.retry
	observe := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration) {
		a.logger.Info("ai.retry", zap.String("op", op), zap.Int("attempt", attempt), zap.Duration("delay", delay))
		if observe != nil {
			observe(attempt, delay)
		}
	}

	onLate := func(_ T, err error) {
		a.logger.Warn("ai.timeout.late_result", zap.String("op", op), zap.Error(err))
	}
	// A session created after its deadline has no owner.
	onLateSession := func(s S, err error) {
		a.logger.Warn("ai.timeout.late_session", zap.String("op", op), zap.Error(err))
		if err == nil && any(s) != nil {
			s.Destroy()
		}
	}
	boundedCreate := func(ctx context.Context) (S, error) {
		return callWithTimeout(ctx, a.timeout, create, onLateSession)
	}

	return retryOperation(ctx, policy, a.classifier, op, func(ctx context.Context) (T, error) {
		var zero T
		session, gen, err := slot.get(ctx, key, boundedCreate)
		if err != nil {
			return zero, err
		}
		v, err := callWithTimeout(ctx, a.timeout, func(ctx context.Context) (T, error) {
			return call(ctx, session)
		}, onLate)
		if err != nil {
			if a.classifier.Classify(err, op).Code == CodeSessionLost {
				slot.invalidate(key, gen)
			}
			return zero, err
		}
		return v, nil
	})
}

// recoverResult turns a panic escaping an operation into an error Result.
func recoverResult[T any](res *Result[T], op string, logger *zap.Logger) {
	if r := recover(); r != nil {
		aiErr := newAIError(CodeUnknown, op, fmt.Errorf("panic: %v", r), false)
		logger.Error("ai.panic", zap.String("op", op), zap.Error(aiErr))
		*res = Failure[T](aiErr)
	}
}

func newID() string {
	return ulid.Make().String()
}

package praxis_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperengineering/praxis"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fastRetry() praxis.RetryPolicy {
	return praxis.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func newTestAdapter(engines praxis.Engines, opts ...praxis.AdapterOption) *praxis.Adapter {
	base := []praxis.AdapterOption{
		praxis.WithRetryPolicy(fastRetry()),
		praxis.WithClock(func() time.Time { return fixedNow }),
		praxis.WithTimeout(time.Second),
	}
	return praxis.NewAdapter(engines, append(base, opts...)...)
}

var cardiologyParams = praxis.ScenarioParams{
	Specialty:  praxis.SpecialtyCardiology,
	Difficulty: praxis.DifficultyIntermediate,
}

// =============================================================================
// Scenario generation
// =============================================================================

func TestGenerateScenario_ParsesModelOutput(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(scenarioJSON))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want AI success", res)
	}
	sc := res.Data
	if sc.Title != "Acute Chest Pain" {
		t.Errorf("Title = %q, want %q", sc.Title, "Acute Chest Pain")
	}
	if sc.Specialty != praxis.SpecialtyCardiology || sc.Difficulty != praxis.DifficultyIntermediate {
		t.Errorf("Specialty/Difficulty = %q/%q, want request values", sc.Specialty, sc.Difficulty)
	}
	if sc.VitalSigns == nil || sc.VitalSigns.HR != 102 || sc.VitalSigns.BP != "150/95" {
		t.Errorf("VitalSigns = %+v, want parsed vitals", sc.VitalSigns)
	}
	if sc.ID == "" {
		t.Error("ID is empty")
	}
	if !sc.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", sc.CreatedAt, fixedNow)
	}
	if !strings.Contains(lm.lastPrompt(), "intermediate medical scenario for cardiology") {
		t.Errorf("prompt = %q, want difficulty and specialty", lm.lastPrompt())
	}
}

func TestGenerateScenario_NoLanguageModel_ReturnsFallback(t *testing.T) {
	a := newTestAdapter(praxis.Engines{})

	res := a.GenerateScenario(context.Background(), praxis.ScenarioParams{
		Specialty:  praxis.SpecialtyNeurology,
		Difficulty: praxis.DifficultyBeginner,
	})
	if !res.OK() || !res.Fallback || !res.Data.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback success", res)
	}
	if res.Data.Specialty != praxis.SpecialtyNeurology {
		t.Errorf("Specialty = %q, want neurology", res.Data.Specialty)
	}
	if res.Data.ID == "" || res.Data.CreatedAt.IsZero() {
		t.Errorf("fallback scenario missing ID or CreatedAt: %+v", res.Data)
	}
}

func TestGenerateScenario_InvalidParams_NoEngineCall(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(scenarioJSON))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	tests := []struct {
		name   string
		params praxis.ScenarioParams
	}{
		{"missing specialty", praxis.ScenarioParams{Difficulty: praxis.DifficultyBeginner}},
		{"bad difficulty", praxis.ScenarioParams{Specialty: praxis.SpecialtySurgery, Difficulty: "expert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.GenerateScenario(context.Background(), tt.params)
			if !res.IsError() {
				t.Fatalf("GenerateScenario() status = %q, want error", res.Status)
			}
			if res.Error.Code != praxis.CodeInvalidInput {
				t.Errorf("Code = %q, want %q", res.Error.Code, praxis.CodeInvalidInput)
			}
			if res.Error.Retryable {
				t.Errorf("Retryable = true, want false for INVALID_INPUT")
			}
		})
	}
	if lm.callCount() != 0 {
		t.Errorf("engine called %d times for invalid input, want 0", lm.callCount())
	}
}

func TestGenerateScenario_RetriesThenFallsBack(t *testing.T) {
	lm := newFakeLanguageModel(func(int, string) (string, error) { return "", errRateLimited })

	var delays []time.Duration
	policy := fastRetry()
	policy.OnRetry = func(attempt int, d time.Duration) { delays = append(delays, d) }
	a := newTestAdapter(praxis.Engines{LanguageModel: lm}, praxis.WithRetryPolicy(policy))

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback after retries", res)
	}
	if got := lm.callCount(); got != 3 {
		t.Errorf("prompt attempts = %d, want 3", got)
	}
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("retry delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestGenerateScenario_RecoversAfterTransientFailure(t *testing.T) {
	lm := newFakeLanguageModel(func(call int, _ string) (string, error) {
		if call == 1 {
			return "", errors.New("operation timeout")
		}
		return scenarioJSON, nil
	})
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want AI success on second attempt", res)
	}
	if lm.callCount() != 2 {
		t.Errorf("prompt attempts = %d, want 2", lm.callCount())
	}
}

func TestGenerateScenario_UnparseableOutput_FallsBack(t *testing.T) {
	lm := newFakeLanguageModel(staticReply("I cannot produce JSON today."))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback", res)
	}
	if lm.callCount() != 3 {
		t.Errorf("INVALID_RESPONSE is retryable: attempts = %d, want 3", lm.callCount())
	}
}

func TestGenerateScenario_DownloadingModel_NoRetry(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(scenarioJSON))
	lm.availability = praxis.AvailabilityAfterDownload
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback", res)
	}
	if lm.sessionCount() != 0 || lm.callCount() != 0 {
		t.Errorf("sessions = %d, calls = %d, want none while downloading", lm.sessionCount(), lm.callCount())
	}
}

func TestGenerateScenario_HangingCreate_TimesOut(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(scenarioJSON))
	block := make(chan struct{})
	lm.createBlock = block
	a := newTestAdapter(praxis.Engines{LanguageModel: lm}, praxis.WithTimeout(50*time.Millisecond))
	defer a.Destroy()

	done := make(chan praxis.Result[praxis.Scenario], 1)
	go func() { done <- a.GenerateScenario(context.Background(), cardiologyParams) }()

	var res praxis.Result[praxis.Scenario]
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		close(block)
		t.Fatal("GenerateScenario still pending after the timeout budget")
	}
	if !res.OK() || !res.Fallback {
		t.Errorf("GenerateScenario() = %+v, want fallback after creation timeouts", res)
	}
	if a.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", a.ActiveSessions())
	}

	// Sessions that finish creating after their deadline are released.
	close(block)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		created := lm.sessionList()
		if len(created) == 3 && allDestroyed(created) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("late sessions = %d, not all destroyed", len(lm.sessionList()))
}

func allDestroyed(sessions []*fakeLanguageModelSession) bool {
	for _, s := range sessions {
		if s.destroyed.Load() == 0 {
			return false
		}
	}
	return true
}

// =============================================================================
// Sessions
// =============================================================================

func TestAdapter_ReusesLanguageModelSession(t *testing.T) {
	lm := newFakeLanguageModel(func(_ int, prompt string) (string, error) {
		if strings.Contains(prompt, "Doctor:") {
			return dialogueJSON, nil
		}
		return scenarioJSON, nil
	})
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	ctx := context.Background()
	a.GenerateScenario(ctx, cardiologyParams)
	a.SimulateDialogue(ctx, "Wo tut es weh?", praxis.DialogueContext{})
	a.GenerateScenario(ctx, cardiologyParams)

	if got := lm.sessionCount(); got != 1 {
		t.Errorf("sessions created = %d, want 1", got)
	}
	if got := a.ActiveSessions(); got != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", got)
	}
	opts := lm.options[0]
	if opts.Temperature != 0.8 || opts.SystemPrompt == "" {
		t.Errorf("session options = %+v, want system prompt and temperature 0.8", opts)
	}
}

func TestAdapter_ConcurrentFirstCallsCreateOneSession(t *testing.T) {
	gate := make(chan struct{})
	lm := newFakeLanguageModel(func(int, string) (string, error) {
		<-gate
		return scenarioJSON, nil
	})
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.GenerateScenario(context.Background(), cardiologyParams)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := lm.sessionCount(); got != 1 {
		t.Errorf("sessions created = %d, want 1", got)
	}
}

func TestAdapter_SessionLost_RecreatesSession(t *testing.T) {
	lm := newFakeLanguageModel(func(call int, _ string) (string, error) {
		if call == 1 {
			return "", errors.New("session destroyed")
		}
		return scenarioJSON, nil
	})
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want AI success after recreate", res)
	}
	if got := lm.sessionCount(); got != 2 {
		t.Fatalf("sessions created = %d, want 2", got)
	}
	if got := lm.sessions[0].destroyed.Load(); got != 1 {
		t.Errorf("lost session destroyed %d times, want 1", got)
	}
	if got := lm.sessions[1].destroyed.Load(); got != 0 {
		t.Errorf("replacement session destroyed %d times, want 0", got)
	}
}

func TestAdapter_CreateFailure_IsRetried(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(scenarioJSON))
	lm.createErr = errors.New("out of memory")
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback", res)
	}
	if a.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", a.ActiveSessions())
	}
}

func TestAdapter_Destroy_ReleasesSessionsOnce(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(scenarioJSON))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	a.GenerateScenario(context.Background(), cardiologyParams)
	a.Destroy()
	a.Destroy()

	if got := lm.sessions[0].destroyed.Load(); got != 1 {
		t.Errorf("session destroyed %d times, want 1", got)
	}
	if a.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d after Destroy, want 0", a.ActiveSessions())
	}

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Errorf("GenerateScenario() after Destroy = %+v, want fallback", res)
	}
	if lm.sessionCount() != 1 {
		t.Errorf("sessions created after Destroy = %d, want 1 total", lm.sessionCount())
	}
}

// =============================================================================
// Dialogue
// =============================================================================

func TestSimulateDialogue_ParsesReply(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(dialogueJSON))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	res := a.SimulateDialogue(context.Background(), "Wo tut es weh?", praxis.DialogueContext{})
	if !res.OK() || res.Fallback {
		t.Fatalf("SimulateDialogue() = %+v, want AI success", res)
	}
	if res.Data.Message != "Es tut hier weh." || res.Data.Emotion != "anxious" {
		t.Errorf("reply = %+v", res.Data)
	}
	if len(res.Data.Suggestions) != 1 {
		t.Errorf("Suggestions = %v, want 1", res.Data.Suggestions)
	}
}

func TestSimulateDialogue_MessageWithoutText_UsesRawOutput(t *testing.T) {
	raw := `{"emotion": "calm"} Mir geht es gut.`
	lm := newFakeLanguageModel(staticReply(raw))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	res := a.SimulateDialogue(context.Background(), "Wie geht es Ihnen?", praxis.DialogueContext{})
	if !res.OK() {
		t.Fatalf("SimulateDialogue() = %+v, want success", res)
	}
	if res.Data.Message != raw {
		t.Errorf("Message = %q, want raw output", res.Data.Message)
	}
}

func TestSimulateDialogue_OnlyLastTurnsInPrompt(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(dialogueJSON))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	var history []praxis.DialogueMessage
	for i := 0; i < 6; i++ {
		history = append(history, praxis.DialogueMessage{Role: praxis.RoleDoctor, Content: "turn-" + string(rune('a'+i))})
	}
	dc := praxis.DialogueContext{
		Scenario:         &praxis.Scenario{Description: "Brustschmerz", ChiefComplaint: "Chest pain"},
		History:          history,
		MaxHistoryLength: 2,
	}
	a.SimulateDialogue(context.Background(), "Noch etwas?", dc)

	prompt := lm.lastPrompt()
	for _, absent := range []string{"turn-a", "turn-b", "turn-c", "turn-d"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("prompt contains %q beyond the lookback", absent)
		}
	}
	for _, present := range []string{"turn-e", "turn-f", "Chest pain", "Doctor: Noch etwas?"} {
		if !strings.Contains(prompt, present) {
			t.Errorf("prompt missing %q", present)
		}
	}
}

func TestSimulateDialogue_EmptyMessage_IsInputError(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(dialogueJSON))
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	res := a.SimulateDialogue(context.Background(), "   ", praxis.DialogueContext{})
	if !res.IsError() || res.Error.Code != praxis.CodeInvalidInput {
		t.Fatalf("SimulateDialogue() = %+v, want INVALID_INPUT", res)
	}
	if lm.callCount() != 0 {
		t.Errorf("engine called %d times, want 0", lm.callCount())
	}
}

func TestSimulateDialogue_NoLanguageModel_ReturnsCannedLine(t *testing.T) {
	a := newTestAdapter(praxis.Engines{})

	res := a.SimulateDialogue(context.Background(), "Hallo", praxis.DialogueContext{})
	if !res.OK() || !res.Fallback || res.Data.Message == "" {
		t.Fatalf("SimulateDialogue() = %+v, want canned fallback line", res)
	}
}

// =============================================================================
// Translation
// =============================================================================

func TestTranslateTerm_Success(t *testing.T) {
	tr := newFakeTranslator(map[string]string{"en:heart": "Herz"})
	a := newTestAdapter(praxis.Engines{Translator: tr})
	defer a.Destroy()

	res := a.TranslateTerm(context.Background(), praxis.TranslationParams{
		Term: "heart", SourceLanguage: "en", TargetLanguage: "de",
	})
	if !res.OK() || res.Fallback {
		t.Fatalf("TranslateTerm() = %+v, want AI success", res)
	}
	if res.Data.Translated != "Herz" || res.Data.Original != "heart" {
		t.Errorf("translation = %+v", res.Data)
	}
	if res.Data.ID == "" || !res.Data.CreatedAt.Equal(fixedNow) {
		t.Errorf("translation missing ID or CreatedAt: %+v", res.Data)
	}
}

func TestTranslateTerm_PairChange_KeepsSessions(t *testing.T) {
	tr := newFakeTranslator(map[string]string{"en:heart": "Herz", "de:Herz": "heart"})
	a := newTestAdapter(praxis.Engines{Translator: tr})
	defer a.Destroy()

	ctx := context.Background()
	a.TranslateTerm(ctx, praxis.TranslationParams{Term: "heart", SourceLanguage: "en", TargetLanguage: "de"})
	res := a.TranslateTerm(ctx, praxis.TranslationParams{Term: "Herz", SourceLanguage: "de", TargetLanguage: "en"})
	if res.Data.Translated != "heart" {
		t.Errorf("reverse translation = %q, want %q", res.Data.Translated, "heart")
	}
	a.TranslateTerm(ctx, praxis.TranslationParams{Term: "heart", SourceLanguage: "en", TargetLanguage: "de"})

	sessions := tr.sessionList()
	if len(sessions) != 2 {
		t.Fatalf("translator sessions = %d, want 2", len(sessions))
	}
	if sessions[0].destroyed.Load() != 0 {
		t.Error("en→de session destroyed by a de→en request")
	}
	if sessions[1].opts.SourceLanguage != "de" || sessions[1].opts.TargetLanguage != "en" {
		t.Errorf("second session pair = %+v, want de→en", sessions[1].opts)
	}
	if got := a.ActiveSessions(); got != 2 {
		t.Errorf("ActiveSessions() = %d, want 2", got)
	}

	a.Destroy()
	for i, s := range tr.sessionList() {
		if s.destroyed.Load() != 1 {
			t.Errorf("session %d destroyed %d times, want 1", i, s.destroyed.Load())
		}
	}
}

func TestTranslateTerm_ConcurrentPairs_NoFallback(t *testing.T) {
	tr := newFakeTranslator(map[string]string{"en:heart": "Herz", "de:Herz": "heart"})
	tr.delay = 5 * time.Millisecond
	a := newTestAdapter(praxis.Engines{Translator: tr})
	defer a.Destroy()

	ctx := context.Background()
	var (
		wg        sync.WaitGroup
		fallbacks atomic.Int32
	)
	for range 10 {
		for _, p := range []praxis.TranslationParams{
			{Term: "heart", SourceLanguage: "en", TargetLanguage: "de"},
			{Term: "Herz", SourceLanguage: "de", TargetLanguage: "en"},
		} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := a.TranslateTerm(ctx, p)
				if !res.OK() || res.Fallback {
					fallbacks.Add(1)
				}
			}()
		}
	}
	wg.Wait()

	if got := fallbacks.Load(); got != 0 {
		t.Errorf("%d of 20 translations fell back to the dictionary", got)
	}
	if got := len(tr.sessionList()); got != 2 {
		t.Errorf("translator sessions created = %d, want one per pair", got)
	}
}

func TestTranslateTerm_EmptyResult_FallsBackToDictionary(t *testing.T) {
	tr := newFakeTranslator(map[string]string{})
	a := newTestAdapter(praxis.Engines{Translator: tr})
	defer a.Destroy()

	res := a.TranslateTerm(context.Background(), praxis.TranslationParams{
		Term: "Fever", SourceLanguage: "en", TargetLanguage: "de",
	})
	if !res.OK() || !res.Fallback {
		t.Fatalf("TranslateTerm() = %+v, want fallback", res)
	}
	if res.Data.Translated != "Fieber" {
		t.Errorf("dictionary translation = %q, want %q", res.Data.Translated, "Fieber")
	}
}

func TestTranslateTerm_UnknownTerm_Marker(t *testing.T) {
	a := newTestAdapter(praxis.Engines{})

	res := a.TranslateTerm(context.Background(), praxis.TranslationParams{
		Term: "pneumothorax", SourceLanguage: "en", TargetLanguage: "de",
	})
	if !res.OK() || !res.Fallback {
		t.Fatalf("TranslateTerm() = %+v, want fallback", res)
	}
	if want := "[Translation unavailable: pneumothorax]"; res.Data.Translated != want {
		t.Errorf("Translated = %q, want %q", res.Data.Translated, want)
	}
}

func TestTranslateTerm_MissingLanguage_IsInputError(t *testing.T) {
	a := newTestAdapter(praxis.Engines{})

	res := a.TranslateTerm(context.Background(), praxis.TranslationParams{Term: "heart"})
	if !res.IsError() || res.Error.Code != praxis.CodeInvalidInput {
		t.Fatalf("TranslateTerm() = %+v, want INVALID_INPUT", res)
	}
}

// =============================================================================
// Grammar
// =============================================================================

func TestCheckGrammar_Suggestions(t *testing.T) {
	rw := newFakeRewriter(func(string) (string, error) { return "Der Patient hat Schmerzen.", nil })
	a := newTestAdapter(praxis.Engines{Rewriter: rw})
	defer a.Destroy()

	res := a.CheckGrammar(context.Background(), "Der Pazient hat Schmerzen.")
	if !res.OK() {
		t.Fatalf("CheckGrammar() = %+v, want success", res)
	}
	g := res.Data
	if len(g.Suggestions) != 1 {
		t.Fatalf("Suggestions = %+v, want 1", g.Suggestions)
	}
	s := g.Suggestions[0]
	if s.Original != "Pazient" || s.Suggestion != "Patient" || s.Type != praxis.SuggestionSpelling {
		t.Errorf("suggestion = %+v", s)
	}
	if s.Position != (praxis.Span{Start: 4, End: 11}) {
		t.Errorf("Position = %+v, want {4 11}", s.Position)
	}
	if g.Score != 95 {
		t.Errorf("Score = %d, want 95", g.Score)
	}
	if !g.CheckedAt.Equal(fixedNow) {
		t.Errorf("CheckedAt = %v, want %v", g.CheckedAt, fixedNow)
	}
}

func TestCheckGrammar_NoRewriter_Unavailable(t *testing.T) {
	a := newTestAdapter(praxis.Engines{})

	res := a.CheckGrammar(context.Background(), "Ich habe Kopfschmerzen.")
	if !res.IsUnavailable() {
		t.Fatalf("CheckGrammar() status = %q, want unavailable", res.Status)
	}
	if res.Reason != "Grammar checking capability not available" {
		t.Errorf("Reason = %q", res.Reason)
	}
}

func TestCheckGrammar_ModelUnavailable_NotRetried(t *testing.T) {
	rw := newFakeRewriter(func(string) (string, error) { return "", errors.New("model not available") })
	a := newTestAdapter(praxis.Engines{Rewriter: rw})
	defer a.Destroy()

	res := a.CheckGrammar(context.Background(), "Ich habe Kopfschmerzen.")
	if !res.IsUnavailable() {
		t.Fatalf("CheckGrammar() = %+v, want unavailable", res)
	}
	if rw.callCount() != 1 {
		t.Errorf("rewrite attempts = %d, want 1", rw.callCount())
	}
}

func TestCheckGrammar_PersistentFailure_IsError(t *testing.T) {
	rw := newFakeRewriter(func(string) (string, error) { return "", errors.New("boom") })
	a := newTestAdapter(praxis.Engines{Rewriter: rw})
	defer a.Destroy()

	res := a.CheckGrammar(context.Background(), "Ich habe Kopfschmerzen.")
	if !res.IsError() {
		t.Fatalf("CheckGrammar() = %+v, want error", res)
	}
	if res.Error.Code != praxis.CodeUnknown || res.Error.Retryable {
		t.Errorf("error = %+v, want terminal UNKNOWN", res.Error)
	}
	if rw.callCount() != 3 {
		t.Errorf("rewrite attempts = %d, want 3", rw.callCount())
	}
}

// =============================================================================
// Timeouts, panics, capabilities and events
// =============================================================================

func TestAdapter_SlowEngine_TimesOutAndFallsBack(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	lm := newFakeLanguageModel(func(int, string) (string, error) {
		<-release
		return scenarioJSON, nil
	})
	a := newTestAdapter(praxis.Engines{LanguageModel: lm},
		praxis.WithTimeout(10*time.Millisecond),
		praxis.WithRetryPolicy(praxis.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}),
	)
	defer a.Destroy()

	start := time.Now()
	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback after timeout", res)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("GenerateScenario() took %v, want bounded by timeout", elapsed)
	}
}

type panickingFallback struct{ praxis.FallbackSource }

func (panickingFallback) Scenario(praxis.ScenarioParams) praxis.Scenario { panic("corrupt content") }

func TestAdapter_PanicBecomesErrorResult(t *testing.T) {
	a := newTestAdapter(praxis.Engines{}, praxis.WithFallback(panickingFallback{praxis.BundledFallback()}))

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.IsError() {
		t.Fatalf("GenerateScenario() = %+v, want error result", res)
	}
	if res.Error.Code != praxis.CodeUnknown || !strings.Contains(res.Error.Message, "corrupt content") {
		t.Errorf("error = %+v", res.Error)
	}
}

func TestAdapter_EnginePanic_IsRecovered(t *testing.T) {
	lm := newFakeLanguageModel(func(int, string) (string, error) { panic("driver crashed") })
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})
	defer a.Destroy()

	res := a.GenerateScenario(context.Background(), cardiologyParams)
	if !res.OK() || !res.Fallback {
		t.Fatalf("GenerateScenario() = %+v, want fallback", res)
	}
}

func TestCheckCapabilities(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(""))
	tr := newFakeTranslator(nil)
	tr.availability = praxis.AvailabilityAfterDownload
	a := newTestAdapter(praxis.Engines{LanguageModel: lm, Translator: tr})

	caps := a.CheckCapabilities(context.Background())
	if caps.Prompt != praxis.StatusAvailable {
		t.Errorf("Prompt = %q, want available", caps.Prompt)
	}
	if caps.Translator != praxis.StatusDownloading {
		t.Errorf("Translator = %q, want downloading", caps.Translator)
	}
	if caps.Rewriter != praxis.StatusNotPresent {
		t.Errorf("Rewriter = %q, want unavailable", caps.Rewriter)
	}
	if caps.LastChecked.IsZero() {
		t.Error("LastChecked not set")
	}
	if a.ActiveSessions() != 0 {
		t.Errorf("probe created sessions: %d", a.ActiveSessions())
	}
}

func TestCheckCapabilities_ProbeErrorIsUnavailable(t *testing.T) {
	lm := newFakeLanguageModel(staticReply(""))
	lm.availErr = errors.New("connection refused")
	a := newTestAdapter(praxis.Engines{LanguageModel: lm})

	if got := a.CheckCapabilities(context.Background()).Prompt; got != praxis.StatusNotPresent {
		t.Errorf("Prompt = %q, want unavailable", got)
	}
}

func TestAdapter_EmitsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	lm := newFakeLanguageModel(func(int, string) (string, error) { return "", errRateLimited })
	a := newTestAdapter(praxis.Engines{LanguageModel: lm}, praxis.WithLogger(zap.New(core)))

	a.GenerateScenario(context.Background(), cardiologyParams)
	a.Destroy()

	for _, name := range []string{
		"ai.scenario.start",
		"ai.retry",
		"ai.scenario.error",
		"ai.scenario.fallback",
		"ai.client.destroyed",
	} {
		if logs.FilterMessage(name).Len() == 0 {
			t.Errorf("event %q not logged", name)
		}
	}
	if got := logs.FilterMessage("ai.retry").Len(); got != 2 {
		t.Errorf("ai.retry logged %d times, want 2", got)
	}
}

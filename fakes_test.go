package praxis_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperengineering/praxis"
)

// fakeSession counts prompts and destruction.
type fakeSession struct {
	destroyed atomic.Int32
}

func (s *fakeSession) Destroy() { s.destroyed.Add(1) }

// fakeLanguageModel answers prompts with a scripted function.
type fakeLanguageModel struct {
	mu           sync.Mutex
	availability praxis.Availability
	availErr     error
	createErr    error
	createBlock  chan struct{}
	respond      func(call int, prompt string) (string, error)

	calls    int
	prompts  []string
	sessions []*fakeLanguageModelSession
	options  []praxis.LanguageModelOptions
}

type fakeLanguageModelSession struct {
	fakeSession
	parent *fakeLanguageModel
}

func newFakeLanguageModel(respond func(call int, prompt string) (string, error)) *fakeLanguageModel {
	return &fakeLanguageModel{availability: praxis.AvailabilityReadily, respond: respond}
}

func (f *fakeLanguageModel) Availability(ctx context.Context) (praxis.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availability, f.availErr
}

func (f *fakeLanguageModel) Create(ctx context.Context, opts praxis.LanguageModelOptions) (praxis.LanguageModelSession, error) {
	f.mu.Lock()
	block := f.createBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	s := &fakeLanguageModelSession{parent: f}
	f.sessions = append(f.sessions, s)
	f.options = append(f.options, opts)
	return s, nil
}

func (s *fakeLanguageModelSession) Prompt(ctx context.Context, input string) (string, error) {
	f := s.parent
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, input)
	respond := f.respond
	f.mu.Unlock()
	return respond(call, input)
}

func (f *fakeLanguageModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLanguageModel) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeLanguageModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// fakeTranslator translates through a fixed map per language pair.
type fakeTranslator struct {
	mu           sync.Mutex
	availability praxis.Availability
	words        map[string]string
	err          error
	delay        time.Duration

	sessions []*fakeTranslatorSession
}

type fakeTranslatorSession struct {
	fakeSession
	parent *fakeTranslator
	opts   praxis.TranslatorOptions
}

func newFakeTranslator(words map[string]string) *fakeTranslator {
	return &fakeTranslator{availability: praxis.AvailabilityReadily, words: words}
}

func (f *fakeTranslator) Availability(ctx context.Context, source, target string) (praxis.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availability, nil
}

func (f *fakeTranslator) Create(ctx context.Context, opts praxis.TranslatorOptions) (praxis.TranslatorSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeTranslatorSession{parent: f, opts: opts}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (s *fakeTranslatorSession) Translate(ctx context.Context, text string) (string, error) {
	f := s.parent
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	time.Sleep(delay)

	if s.destroyed.Load() > 0 {
		return "", errSessionDestroyed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.words[s.opts.SourceLanguage+":"+text], nil
}

func (f *fakeTranslator) sessionList() []*fakeTranslatorSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeTranslatorSession(nil), f.sessions...)
}

// fakeRewriter returns a scripted correction.
type fakeRewriter struct {
	mu           sync.Mutex
	availability praxis.Availability
	rewrite      func(text string) (string, error)

	calls int
}

type fakeRewriterSession struct {
	fakeSession
	parent *fakeRewriter
}

func newFakeRewriter(rewrite func(text string) (string, error)) *fakeRewriter {
	return &fakeRewriter{availability: praxis.AvailabilityReadily, rewrite: rewrite}
}

func (f *fakeRewriter) Availability(ctx context.Context) (praxis.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availability, nil
}

func (f *fakeRewriter) Create(ctx context.Context, opts praxis.RewriterOptions) (praxis.RewriterSession, error) {
	return &fakeRewriterSession{parent: f}, nil
}

func (s *fakeRewriterSession) Rewrite(ctx context.Context, text string) (string, error) {
	f := s.parent
	f.mu.Lock()
	f.calls++
	rewrite := f.rewrite
	f.mu.Unlock()
	return rewrite(text)
}

func (f *fakeRewriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const scenarioJSON = `Here is your case:
{
  "title": "Acute Chest Pain",
  "description": "A 58-year-old man with crushing chest pain for 30 minutes.",
  "chiefComplaint": "Chest pain radiating to the left arm",
  "vitalSigns": {"bp": "150/95", "hr": 102, "rr": 22, "temp": 37.1, "spo2": 95}
}`

const dialogueJSON = `{"message": "Es tut hier weh.", "emotion": "anxious", "suggestions": ["Seit wann?"]}`

func staticReply(text string) func(int, string) (string, error) {
	return func(int, string) (string, error) { return text, nil }
}

var (
	errRateLimited      = errors.New("rate limit exceeded")
	errSessionDestroyed = errors.New("session destroyed")
)

func (f *fakeLanguageModel) sessionList() []*fakeLanguageModelSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeLanguageModelSession(nil), f.sessions...)
}

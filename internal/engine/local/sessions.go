package local

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hyperengineering/praxis"
)

// session holds a fixed system prompt. The runtime is stateless, so a
// session is only a local handle; Destroy makes it refuse further calls.
type session struct {
	client      *Client
	system      string
	temperature float64
	destroyed   atomic.Bool
}

func (s *session) complete(ctx context.Context, input string) (string, error) {
	if s.destroyed.Load() {
		return "", ErrSessionDestroyed
	}
	return s.client.Complete(ctx, s.system, input, s.temperature)
}

func (s *session) Destroy() { s.destroyed.Store(true) }

// languageModel is the prompt capability.
type languageModel struct{ c *Client }

func (l languageModel) Availability(ctx context.Context) (praxis.Availability, error) {
	return l.c.Availability(ctx)
}

func (l languageModel) Create(_ context.Context, opts praxis.LanguageModelOptions) (praxis.LanguageModelSession, error) {
	return &promptSession{session{client: l.c, system: opts.SystemPrompt, temperature: opts.Temperature}}, nil
}

type promptSession struct{ session }

func (p *promptSession) Prompt(ctx context.Context, input string) (string, error) {
	return p.complete(ctx, input)
}

// translator prompts the model for a bare translation.
type translator struct{ c *Client }

// Availability ignores the pair; a general model translates any pair.
func (t translator) Availability(ctx context.Context, _, _ string) (praxis.Availability, error) {
	return t.c.Availability(ctx)
}

func (t translator) Create(_ context.Context, opts praxis.TranslatorOptions) (praxis.TranslatorSession, error) {
	if opts.SourceLanguage == "" || opts.TargetLanguage == "" {
		return nil, fmt.Errorf("translator: language pair required")
	}
	system := fmt.Sprintf(
		"You are a medical translator. Translate the user's text from %s to %s. "+
			"Reply with the translation only, without quotes or explanations.",
		languageName(opts.SourceLanguage), languageName(opts.TargetLanguage),
	)
	return &translatorSession{session{client: t.c, system: system, temperature: 0.1}}, nil
}

type translatorSession struct{ session }

func (t *translatorSession) Translate(ctx context.Context, text string) (string, error) {
	out, err := t.complete(ctx, text)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(out), `"`), nil
}

// rewriter prompts the model for a corrected text.
type rewriter struct{ c *Client }

func (r rewriter) Availability(ctx context.Context) (praxis.Availability, error) {
	return r.c.Availability(ctx)
}

func (r rewriter) Create(_ context.Context, opts praxis.RewriterOptions) (praxis.RewriterSession, error) {
	var b strings.Builder
	b.WriteString("Rewrite the user's German text, correcting grammar, spelling and punctuation while keeping its meaning. ")
	if opts.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s. ", opts.Tone)
	}
	if opts.Length != "" {
		fmt.Fprintf(&b, "Length: %s as the original. ", opts.Length)
	}
	if opts.Format != "" {
		fmt.Fprintf(&b, "Format: %s. ", opts.Format)
	}
	if opts.SharedContext != "" {
		b.WriteString(opts.SharedContext + " ")
	}
	b.WriteString("Reply with the rewritten text only.")
	return &rewriterSession{session{client: r.c, system: b.String(), temperature: 0}}, nil
}

type rewriterSession struct{ session }

func (r *rewriterSession) Rewrite(ctx context.Context, text string) (string, error) {
	return r.complete(ctx, text)
}

var languageNames = map[string]string{
	"de": "German",
	"en": "English",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

package praxis

import "context"

// Availability is what an engine reports about one capability.
type Availability string

const (
	AvailabilityReadily       Availability = "readily"
	AvailabilityAfterDownload Availability = "after-download"
	AvailabilityNo            Availability = "no"
)

// Status maps an engine availability to a CapabilityStatus.
func (a Availability) Status() CapabilityStatus {
	switch a {
	case AvailabilityReadily:
		return StatusAvailable
	case AvailabilityAfterDownload:
		return StatusDownloading
	default:
		return StatusNotPresent
	}
}

// LanguageModelOptions configures a prompt session.
type LanguageModelOptions struct {
	SystemPrompt string
	Temperature  float64
}

// LanguageModelProvider is the prompt capability of an engine.
// Implementations must be safe for concurrent use.
type LanguageModelProvider interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context, opts LanguageModelOptions) (LanguageModelSession, error)
}

// LanguageModelSession answers prompts.
type LanguageModelSession interface {
	Prompt(ctx context.Context, input string) (string, error)
	Destroy()
}

// TranslatorOptions fixes the language pair of a translator session.
type TranslatorOptions struct {
	SourceLanguage string
	TargetLanguage string
}

// TranslatorProvider is the translation capability of an engine.
type TranslatorProvider interface {
	Availability(ctx context.Context, sourceLanguage, targetLanguage string) (Availability, error)
	Create(ctx context.Context, opts TranslatorOptions) (TranslatorSession, error)
}

// TranslatorSession translates text within its language pair.
type TranslatorSession interface {
	Translate(ctx context.Context, text string) (string, error)
	Destroy()
}

// RewriterOptions configures a rewriter session.
type RewriterOptions struct {
	SharedContext string
	Tone          string // formal | neutral | casual
	Format        string // plain-text | markdown
	Length        string // shorter | same | longer
}

// RewriterProvider is the rewriting capability of an engine, used for grammar checks.
type RewriterProvider interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context, opts RewriterOptions) (RewriterSession, error)
}

// RewriterSession rewrites text.
type RewriterSession interface {
	Rewrite(ctx context.Context, text string) (string, error)
	Destroy()
}

// Engines bundles the providers the adapter wraps. A nil provider means
// the capability is absent on this host.
type Engines struct {
	LanguageModel LanguageModelProvider
	Translator    TranslatorProvider
	Rewriter      RewriterProvider
}

package praxis

import (
	"fmt"
	"io"

	"github.com/hyperengineering/praxis/internal/fallback"
)

// FallbackSource supplies substitute content when a capability is absent
// or a call fails terminally. The adapter assigns ids and timestamps.
type FallbackSource interface {
	Scenario(params ScenarioParams) Scenario
	DialogueLine() DialogueResponse
	Translate(params TranslationParams) TranslationResult
}

// BundledFallback returns the content shipped with praxis.
func BundledFallback() FallbackSource {
	return bundledFallback{p: fallback.Default()}
}

// LoadFallback reads replacement content in the bundled YAML layout.
func LoadFallback(r io.Reader) (FallbackSource, error) {
	p, err := fallback.Load(r)
	if err != nil {
		return nil, fmt.Errorf("load fallback content: %w", err)
	}
	return bundledFallback{p: p}, nil
}

type bundledFallback struct {
	p *fallback.Provider
}

func (b bundledFallback) Scenario(params ScenarioParams) Scenario {
	s := b.p.Scenario(string(params.Specialty), string(params.Difficulty))
	out := Scenario{
		Specialty:      Specialty(s.Specialty),
		Difficulty:     Difficulty(s.Difficulty),
		Title:          s.Title,
		Description:    s.Description,
		ChiefComplaint: s.ChiefComplaint,
		Fallback:       true,
	}
	if v := s.VitalSigns; v != nil {
		out.VitalSigns = &VitalSigns{BP: v.BP, HR: v.HR, RR: v.RR, Temp: v.Temp, SpO2: v.SpO2}
	}
	return out
}

func (b bundledFallback) DialogueLine() DialogueResponse {
	line := b.p.DialogueLine()
	return DialogueResponse{
		Message:     line.Message,
		Emotion:     line.Emotion,
		Suggestions: line.Suggestions,
		Fallback:    true,
	}
}

func (b bundledFallback) Translate(params TranslationParams) TranslationResult {
	translated, _ := b.p.Translate(params.Term, params.SourceLanguage, params.TargetLanguage)
	return TranslationResult{
		Original:       params.Term,
		Translated:     translated,
		SourceLanguage: params.SourceLanguage,
		TargetLanguage: params.TargetLanguage,
		Fallback:       true,
	}
}

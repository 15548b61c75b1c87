package praxis

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// ExtractJSON returns the first balanced {...} object in text. Braces inside
// JSON strings are ignored. Model output often wraps the object in prose or
// code fences.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Scenario defaults for fields the model leaves out.
const (
	defaultScenarioTitle       = "Medical Scenario"
	defaultScenarioDescription = "No description available"
	defaultChiefComplaint      = "Patient presenting for evaluation"
)

type rawScenario struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	ChiefComplaint    string          `json:"chiefComplaint"`
	ChiefComplaintAlt string          `json:"chief_complaint"`
	VitalSigns        json.RawMessage `json:"vitalSigns"`
	VitalSignsAlt     json.RawMessage `json:"vital_signs"`
}

// parseScenario reads a scenario from model output. Specialty and
// difficulty come from the request, not the model. Vitals that do not
// decode are dropped rather than failing the scenario.
func parseScenario(text string, params ScenarioParams) (Scenario, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return Scenario{}, err
	}
	var raw rawScenario
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Scenario{}, fmt.Errorf("%w: scenario: %v", ErrInvalidResponse, err)
	}

	s := Scenario{
		Specialty:      params.Specialty,
		Difficulty:     params.Difficulty,
		Title:          firstNonEmpty(raw.Title, defaultScenarioTitle),
		Description:    firstNonEmpty(raw.Description, defaultScenarioDescription),
		ChiefComplaint: firstNonEmpty(raw.ChiefComplaint, raw.ChiefComplaintAlt, defaultChiefComplaint),
	}

	vitals := raw.VitalSigns
	if len(vitals) == 0 {
		vitals = raw.VitalSignsAlt
	}
	if len(vitals) > 0 && string(vitals) != "null" {
		var v VitalSigns
		if json.Unmarshal(vitals, &v) == nil && v != (VitalSigns{}) {
			s.VitalSigns = &v
		}
	}
	return s, nil
}

type rawDialogue struct {
	Message     string   `json:"message"`
	Emotion     string   `json:"emotion"`
	Suggestions []string `json:"suggestions"`
}

// parseDialogue reads a patient reply. Output without any JSON object is a
// parse error; an object without a message falls back to the raw text.
func parseDialogue(text string) (DialogueResponse, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return DialogueResponse{}, err
	}
	var raw rawDialogue
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return DialogueResponse{}, fmt.Errorf("%w: dialogue: %v", ErrInvalidResponse, err)
	}
	msg := strings.TrimSpace(raw.Message)
	if msg == "" {
		msg = strings.TrimSpace(text)
	}
	return DialogueResponse{
		Message:     msg,
		Emotion:     raw.Emotion,
		Suggestions: raw.Suggestions,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// token is a whitespace-delimited word with its rune span in the source.
type token struct {
	text       string
	start, end int
}

func tokenize(s string) []token {
	var (
		tokens []token
		b      strings.Builder
		start  = -1
		pos    int
	)
	for _, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{text: b.String(), start: start, end: pos})
				b.Reset()
				start = -1
			}
		} else {
			if start < 0 {
				start = pos
			}
			b.WriteRune(r)
		}
		pos++
	}
	if start >= 0 {
		tokens = append(tokens, token{text: b.String(), start: start, end: pos})
	}
	return tokens
}

func tokenTexts(tokens []token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.text
	}
	return out
}

// DiffGrammar compares a text with its corrected form word by word.
// Tokens are aligned with a sequence matcher, so an inserted or dropped
// word produces one suggestion instead of displacing every later word.
// When both texts have the same word count and pairing by position needs
// no more suggestions than the alignment, positional pairs are used.
// Positions are rune offsets into original.
func DiffGrammar(original, corrected string) GrammarCheckResult {
	result := GrammarCheckResult{
		OriginalText:  original,
		CorrectedText: corrected,
		Suggestions:   []GrammarSuggestion{},
	}
	if original != corrected {
		a, b := tokenize(original), tokenize(corrected)
		aligned := alignedSuggestions(a, b)
		if len(a) == len(b) {
			if positional := positionalSuggestions(a, b); len(positional) <= len(aligned) {
				aligned = positional
			}
		}
		result.Suggestions = append(result.Suggestions, aligned...)
	}
	result.Score = grammarScore(len(result.Suggestions))
	return result
}

func grammarScore(suggestions int) int {
	return max(0, 100-5*suggestions)
}

func positionalSuggestions(a, b []token) []GrammarSuggestion {
	var out []GrammarSuggestion
	for i := range a {
		if a[i].text != b[i].text {
			out = append(out, newSuggestion(a[i].text, b[i].text, Span{a[i].start, a[i].end}, false))
		}
	}
	return out
}

func alignedSuggestions(a, b []token) []GrammarSuggestion {
	matcher := difflib.NewMatcherWithJunk(tokenTexts(a), tokenTexts(b), false, nil)

	var out []GrammarSuggestion
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			continue
		case 'r':
			if op.I2-op.I1 == op.J2-op.J1 {
				for k := 0; k < op.I2-op.I1; k++ {
					ta, tb := a[op.I1+k], b[op.J1+k]
					out = append(out, newSuggestion(ta.text, tb.text, Span{ta.start, ta.end}, false))
				}
				continue
			}
		}
		out = append(out, blockSuggestion(a, b, op))
	}
	return out
}

// blockSuggestion covers an uneven replace, a delete or an insert.
func blockSuggestion(a, b []token, op difflib.OpCode) GrammarSuggestion {
	orig := joinTokens(a[op.I1:op.I2])
	sugg := joinTokens(b[op.J1:op.J2])

	var span Span
	switch {
	case op.I2 > op.I1:
		span = Span{a[op.I1].start, a[op.I2-1].end}
	case op.I1 < len(a):
		span = Span{a[op.I1].start, a[op.I1].start}
	case len(a) > 0:
		end := a[len(a)-1].end
		span = Span{end, end}
	}
	multi := op.I2-op.I1 > 1 || op.J2-op.J1 > 1
	return newSuggestion(orig, sugg, span, multi)
}

func joinTokens(tokens []token) string {
	return strings.Join(tokenTexts(tokens), " ")
}

func newSuggestion(orig, sugg string, pos Span, multiToken bool) GrammarSuggestion {
	kind := suggestionType(orig, sugg, multiToken)
	return GrammarSuggestion{
		Original:    orig,
		Suggestion:  sugg,
		Type:        kind,
		Position:    pos,
		Explanation: explain(kind, orig, sugg),
	}
}

func suggestionType(orig, sugg string, multiToken bool) SuggestionType {
	switch {
	case stripPunct(orig) == stripPunct(sugg):
		return SuggestionStyle
	case orig != "" && sugg != "" &&
		levenshtein.ComputeDistance(strings.ToLower(orig), strings.ToLower(sugg)) <= 2:
		return SuggestionSpelling
	case multiToken:
		return SuggestionClarity
	default:
		return SuggestionGrammar
	}
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func explain(kind SuggestionType, orig, sugg string) string {
	switch {
	case orig == "":
		return fmt.Sprintf("Insert %q", sugg)
	case sugg == "":
		return fmt.Sprintf("Remove %q", orig)
	}
	switch kind {
	case SuggestionStyle:
		return fmt.Sprintf("Punctuation: %q → %q", orig, sugg)
	case SuggestionSpelling:
		return fmt.Sprintf("Spelling: %q → %q", orig, sugg)
	case SuggestionClarity:
		return fmt.Sprintf("Rephrase %q as %q", orig, sugg)
	default:
		return fmt.Sprintf("Replace %q with %q", orig, sugg)
	}
}

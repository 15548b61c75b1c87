// Package fallback supplies bundled practice content for when an AI
// capability is absent or a call fails terminally.
package fallback

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var embeddedContent []byte

// VitalSigns mirrors the scenario vitals in content.yaml.
type VitalSigns struct {
	BP   string  `yaml:"bp"`
	HR   int     `yaml:"hr"`
	RR   int     `yaml:"rr"`
	Temp float64 `yaml:"temp"`
	SpO2 float64 `yaml:"spo2"`
}

// Scenario is a pre-authored clinical case.
type Scenario struct {
	Specialty      string      `yaml:"-"`
	Difficulty     string      `yaml:"difficulty"`
	Title          string      `yaml:"title"`
	Description    string      `yaml:"description"`
	ChiefComplaint string      `yaml:"chief_complaint"`
	VitalSigns     *VitalSigns `yaml:"vital_signs"`
}

// DialogueLine is a pre-authored patient utterance.
type DialogueLine struct {
	Message     string   `yaml:"message"`
	Emotion     string   `yaml:"emotion"`
	Suggestions []string `yaml:"suggestions"`
}

// Entry is one dictionary pair.
type Entry struct {
	EN string `yaml:"en"`
	DE string `yaml:"de"`
}

// Content is the parsed shape of content.yaml.
type Content struct {
	Scenarios  map[string][]Scenario `yaml:"scenarios"`
	Generic    Scenario              `yaml:"generic"`
	Dialogue   []DialogueLine        `yaml:"dialogue"`
	Dictionary []Entry               `yaml:"dictionary"`
}

// Provider serves fallback content. Safe for concurrent use.
type Provider struct {
	content Content
	enDE    map[string]string
	deEN    map[string]string

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Provider.
type Option func(*Provider)

// WithRand sets the source used to pick dialogue lines.
func WithRand(r *rand.Rand) Option {
	return func(p *Provider) { p.rnd = r }
}

// Load parses content from r.
func Load(r io.Reader, opts ...Option) (*Provider, error) {
	var c Content
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("fallback: decode content: %w", err)
	}
	if len(c.Dialogue) == 0 {
		return nil, errors.New("fallback: content has no dialogue lines")
	}
	if c.Generic.Title == "" {
		return nil, errors.New("fallback: content has no generic scenario")
	}

	p := &Provider{
		content: c,
		enDE:    make(map[string]string, len(c.Dictionary)),
		deEN:    make(map[string]string, len(c.Dictionary)),
	}
	for specialty, list := range c.Scenarios {
		for i := range list {
			list[i].Specialty = specialty
		}
	}
	for _, e := range c.Dictionary {
		p.enDE[strings.ToLower(e.EN)] = e.DE
		p.deEN[strings.ToLower(e.DE)] = e.EN
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p, nil
}

var loadDefault = sync.OnceValues(func() (*Provider, error) {
	return Load(bytes.NewReader(embeddedContent))
})

// Default returns the provider for the embedded content.
func Default() *Provider {
	p, err := loadDefault()
	if err != nil {
		// content.yaml ships with the binary; a decode failure is a build defect.
		panic(err)
	}
	return p
}

// Scenario returns the authored scenario for specialty matching difficulty,
// else the first scenario of the specialty, else the generic template.
func (p *Provider) Scenario(specialty, difficulty string) Scenario {
	list := p.content.Scenarios[specialty]
	for _, s := range list {
		if s.Difficulty == difficulty {
			return cloneScenario(s)
		}
	}
	if len(list) > 0 {
		return cloneScenario(list[0])
	}

	g := cloneScenario(p.content.Generic)
	fill := strings.NewReplacer("{{specialty}}", specialty, "{{difficulty}}", difficulty)
	g.Specialty = specialty
	g.Difficulty = difficulty
	g.Title = fill.Replace(g.Title)
	g.Description = fill.Replace(g.Description)
	g.ChiefComplaint = fill.Replace(g.ChiefComplaint)
	return g
}

// Scenarios returns every authored scenario.
func (p *Provider) Scenarios() []Scenario {
	var all []Scenario
	for _, list := range p.content.Scenarios {
		for _, s := range list {
			all = append(all, cloneScenario(s))
		}
	}
	return all
}

// DialogueLine returns a pseudo-random patient line.
func (p *Provider) DialogueLine() DialogueLine {
	p.mu.Lock()
	i := p.rnd.IntN(len(p.content.Dialogue))
	p.mu.Unlock()

	line := p.content.Dialogue[i]
	line.Suggestions = append([]string(nil), line.Suggestions...)
	return line
}

// Translate looks up term in the bundled dictionary. For en→de and de→en
// the lookup follows the direction; other pairs try both. A miss yields
// the Marker string and false.
func (p *Provider) Translate(term, source, target string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(term))
	src, tgt := strings.ToLower(source), strings.ToLower(target)

	var tables []map[string]string
	switch {
	case src == "en" && tgt == "de":
		tables = []map[string]string{p.enDE}
	case src == "de" && tgt == "en":
		tables = []map[string]string{p.deEN}
	default:
		tables = []map[string]string{p.enDE, p.deEN}
	}
	for _, table := range tables {
		if v, ok := table[key]; ok {
			return v, true
		}
	}
	return Marker(term), false
}

// Marker is the text shown for a term the dictionary does not know.
func Marker(term string) string {
	return "[Translation unavailable: " + term + "]"
}

func cloneScenario(s Scenario) Scenario {
	if s.VitalSigns != nil {
		v := *s.VitalSigns
		s.VitalSigns = &v
	}
	return s
}

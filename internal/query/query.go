// Package query turns a diagnosis into a semantic search query and a
// metadata filter.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// MaxTags is the number of question tags folded into the query text.
const MaxTags = 3

// Filter restricts search to chunks with matching metadata. Empty fields
// match anything.
type Filter struct {
	Difficulty  string `json:"difficulty,omitempty" mapstructure:"difficulty"`
	Style       string `json:"style,omitempty" mapstructure:"style"`
	Granularity string `json:"granularity,omitempty" mapstructure:"granularity"`
}

// IsEmpty reports whether the filter matches every chunk.
func (f Filter) IsEmpty() bool {
	return f.Difficulty == "" && f.Style == "" && f.Granularity == ""
}

// Matches reports whether m satisfies every non-empty field of f.
func (f Filter) Matches(m model.ChunkMetadata) bool {
	return (f.Difficulty == "" || f.Difficulty == m.Difficulty) &&
		(f.Style == "" || f.Style == m.Style) &&
		(f.Granularity == "" || f.Granularity == m.Granularity)
}

// Relax drops the most restrictive remaining field: difficulty first, then
// style, then granularity. It reports false when nothing is left to drop.
func (f Filter) Relax() (Filter, bool) {
	switch {
	case f.Difficulty != "":
		f.Difficulty = ""
	case f.Style != "":
		f.Style = ""
	case f.Granularity != "":
		f.Granularity = ""
	default:
		return f, false
	}
	return f, true
}

// Query is the composed search request.
type Query struct {
	Text   string `json:"text"`
	Filter Filter `json:"filter"`
}

// Config maps pillars and profiles to query phrases and filters.
type Config struct {
	PillarStyles   map[model.Pillar]string  `json:"pillar_styles" mapstructure:"pillar_styles"`
	ProfilePhrases map[model.Profile]string `json:"profile_phrases" mapstructure:"profile_phrases"`
	ProfileFilters map[model.Profile]Filter `json:"profile_filters" mapstructure:"profile_filters"`
}

// DefaultConfig returns the mapping used in production.
func DefaultConfig() Config {
	return Config{
		PillarStyles: map[model.Pillar]string{
			model.PillarConcept:        "whiteboard animation logic visualization",
			model.PillarImplementation: "live coding implementation tutorial",
			model.PillarComplexity:     "big-o time complexity analysis optimization",
			model.PillarDebugging:      "common mistakes debugging guide fix errors",
			model.PillarApplication:    "real world application system design interview question",
		},
		ProfilePhrases: map[model.Profile]string{
			model.ProfileStruggling:   "basic tutorial step by step for beginners",
			model.ProfileRushed:       "quick summary revision",
			model.ProfileHighAchiever: "advanced concepts techniques interview level",
		},
		ProfileFilters: map[model.Profile]Filter{
			model.ProfileStruggling:   {Difficulty: "Beginner", Style: "Conceptual"},
			model.ProfileRushed:       {Style: "One_Shot"},
			model.ProfileHighAchiever: {Difficulty: "Advanced", Style: "Interview_Prep"},
		},
	}
}

// Validate checks that every profile has a phrase, every known pillar has a
// style phrase and no entry is keyed by an unknown profile.
func (c Config) Validate() error {
	var errs []error
	for _, p := range model.Profiles {
		if strings.TrimSpace(c.ProfilePhrases[p]) == "" {
			errs = append(errs, fmt.Errorf("profile %q has no query phrase", p))
		}
	}
	for _, p := range model.KnownPillars {
		if strings.TrimSpace(c.PillarStyles[p]) == "" {
			errs = append(errs, fmt.Errorf("pillar %q has no style phrase", p))
		}
	}
	for p := range c.ProfilePhrases {
		if !p.IsValid() {
			errs = append(errs, fmt.Errorf("phrase for unknown profile %q", p))
		}
	}
	for p := range c.ProfileFilters {
		if !p.IsValid() {
			errs = append(errs, fmt.Errorf("filter for unknown profile %q", p))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("query config: %w", errors.Join(errs...))
	}
	return nil
}

// Composer builds queries from a validated Config.
type Composer struct {
	cfg Config
}

// NewComposer validates cfg and returns a Composer.
func NewComposer(cfg Config) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Composer{cfg: cfg}, nil
}

// Compose returns the query text and filter for a learner. The text is
// never empty: when every part is missing it falls back to the topic, then
// the pillar, then the profile phrase.
func (c *Composer) Compose(profile model.Profile, weakest model.Pillar, topic string, tags []string) Query {
	parts := make([]string, 0, MaxTags+4)
	n := 0
	for _, t := range tags {
		if n == MaxTags {
			break
		}
		if strings.TrimSpace(t) == "" {
			continue
		}
		parts = append(parts, t)
		n++
	}
	parts = append(parts, topic, string(weakest), c.cfg.PillarStyles[weakest], c.cfg.ProfilePhrases[profile])

	text := collapse(strings.Join(parts, " "))
	if text == "" {
		for _, alt := range []string{topic, string(weakest), c.cfg.ProfilePhrases[profile], "tutorial"} {
			if text = collapse(alt); text != "" {
				break
			}
		}
	}
	return Query{Text: text, Filter: c.cfg.ProfileFilters[profile]}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package admission

import (
	"fmt"
	"regexp"
	"strings"
)

// Ruleset is the static set of rules a prompt is admitted against.
// It is built once and never mutated, so a single value can be shared by
// every request.
type Ruleset struct {
	name     string
	phrases  []string
	keywords []string
	patterns []*regexp.Regexp
}

// Rules is the raw, uncompiled form of a Ruleset as it appears in a preset
// or a YAML file.
type Rules struct {
	Name     string   `yaml:"name"`
	Phrases  []string `yaml:"phrases"`
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
}

// Compile normalises phrases and keywords and compiles the patterns
// case-insensitively.
func (r Rules) Compile() (*Ruleset, error) {
	rs := &Ruleset{name: r.Name}

	for _, p := range r.Phrases {
		if p = normalise(p); p != "" {
			rs.phrases = append(rs.phrases, p)
		}
	}
	for _, k := range r.Keywords {
		if k = normalise(k); k != "" {
			rs.keywords = append(rs.keywords, k)
		}
	}
	for _, expr := range r.Patterns {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("ruleset %q: pattern %q: %w", r.Name, expr, err)
		}
		rs.patterns = append(rs.patterns, re)
	}

	if len(rs.phrases)+len(rs.keywords)+len(rs.patterns) == 0 {
		return nil, fmt.Errorf("ruleset %q has no rules", r.Name)
	}
	return rs, nil
}

// MustCompile is like Compile but panics on error. Only used for the
// built-in presets.
func (r Rules) MustCompile() *Ruleset {
	rs, err := r.Compile()
	if err != nil {
		panic(err)
	}
	return rs
}

func (rs *Ruleset) Name() string { return rs.name }

// Size returns the number of phrases, keywords and patterns.
func (rs *Ruleset) Size() (phrases, keywords, patterns int) {
	return len(rs.phrases), len(rs.keywords), len(rs.patterns)
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

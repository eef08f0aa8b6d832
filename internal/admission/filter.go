package admission

import "strings"

// Stage identifies which rule kind admitted a prompt.
type Stage string

const (
	StageNone    Stage = ""
	StagePhrase  Stage = "phrase"
	StageKeyword Stage = "keyword"
	StagePattern Stage = "pattern"
)

// Filter decides whether a prompt is in scope for a Ruleset. It never
// calls out to anything and holds no mutable state.
type Filter struct {
	rules *Ruleset
}

func NewFilter(rules *Ruleset) *Filter {
	return &Filter{rules: rules}
}

// Admit reports whether prompt matches any rule of the ruleset.
func (f *Filter) Admit(prompt string) bool {
	stage, _ := f.Match(prompt)
	return stage != StageNone
}

// Match runs the three stages in order and returns the first stage and
// rule that matched. Empty and whitespace-only prompts never match.
func (f *Filter) Match(prompt string) (Stage, string) {
	p := normalise(prompt)
	if p == "" {
		return StageNone, ""
	}

	for _, phrase := range f.rules.phrases {
		if p == phrase {
			return StagePhrase, phrase
		}
	}

	for _, kw := range f.rules.keywords {
		if strings.Contains(p, kw) {
			return StageKeyword, kw
		}
	}

	// patterns see the raw text, surrounding whitespace included
	for _, re := range f.rules.patterns {
		if re.MatchString(prompt) {
			return StagePattern, re.String()
		}
	}

	return StageNone, ""
}

func (f *Filter) Ruleset() *Ruleset { return f.rules }

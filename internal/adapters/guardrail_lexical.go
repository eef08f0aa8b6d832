package adapters

import (
	"context"

	"github.com/simone-trubian/baldr/gatekeeper/internal/admission"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
	"github.com/simone-trubian/baldr/gatekeeper/internal/obs"
)

// LexicalGuardrail admits prompts with an in-process admission filter.
// It never fails and never blocks.
type LexicalGuardrail struct {
	filter *admission.Filter
}

func NewLexicalGuardrail(rules *admission.Ruleset) *LexicalGuardrail {
	return &LexicalGuardrail{filter: admission.NewFilter(rules)}
}

func (g *LexicalGuardrail) Validate(ctx context.Context, prompt string) (domain.AdmissionDecision, error) {
	stage, rule := g.filter.Match(prompt)
	decision := domain.AdmissionDecision{
		Admitted: stage != admission.StageNone,
		Ruleset:  g.filter.Ruleset().Name(),
		Stage:    string(stage),
		Rule:     rule,
		Prompt:   prompt,
	}
	obs.RecordAdmission(ctx, decision.Ruleset, decision.Admitted, decision.Stage)
	return decision, nil
}

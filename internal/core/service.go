package core

import (
	"context"
	"fmt"

	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/ports"
)

// CompletionSettings are the fixed parts of every upstream request.
type CompletionSettings struct {
	Model        string
	SystemPrompt string
	Params       domain.GenerationParams
}

type GateService struct {
	guardrail ports.GuardrailPort
	llm       ports.LLMPort
	settings  CompletionSettings
}

func NewGateService(guardrail ports.GuardrailPort, llm ports.LLMPort, settings CompletionSettings) *GateService {
	return &GateService{
		guardrail: guardrail,
		llm:       llm,
		settings:  settings,
	}
}

// Execute admits the prompt and, if it is in scope, opens the upstream
// stream. Denials return domain.ErrOutOfScope without touching the LLM.
func (s *GateService) Execute(ctx context.Context, payload domain.PromptRequest) (ports.FragmentStream, error) {
	// 1. Guardrail Check (Synchronous)
	decision, err := s.guardrail.Validate(ctx, payload.Prompt)
	if err != nil {
		return nil, fmt.Errorf("guardrail error: %w", err)
	}
	if !decision.Admitted {
		return nil, fmt.Errorf("ruleset %s: %w", decision.Ruleset, domain.ErrOutOfScope)
	}

	// 2. LLM Generation
	req := domain.NewCompletionRequest(s.settings.Model, s.settings.SystemPrompt, payload.Prompt, s.settings.Params)
	stream, err := s.llm.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider error: %w", err)
	}

	return stream, nil
}

package ports

import (
	"context"

	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
)

// GuardrailPort defines the contract for the admission check that runs
// before any upstream call.
type GuardrailPort interface {
	Validate(ctx context.Context, prompt string) (domain.AdmissionDecision, error)
}

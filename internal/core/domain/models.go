package domain

// Message roles sent to the completion endpoint.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// PromptRequest represents the core input to the system.
type PromptRequest struct {
	// A missing field decodes to "", which the admission filter rejects.
	Prompt string `json:"prompt"`
}

// AdmissionDecision is the outcome of evaluating a prompt. Prompt is kept
// only so denials can be logged.
type AdmissionDecision struct {
	Admitted bool
	Ruleset  string
	// Stage is the rule kind that admitted the prompt, empty on denial.
	Stage  string
	Rule   string
	Prompt string
}

// Message is one role-tagged entry of a CompletionRequest.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams are the tunables sent with every completion request.
type GenerationParams struct {
	Temperature float64
	MaxTokens   int64
}

// CompletionRequest is the payload sent upstream. It is built fresh for
// every call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
	Stream      bool
}

// NewCompletionRequest places the fixed system instruction before the user
// prompt and always asks for a streamed response.
func NewCompletionRequest(model, system, prompt string, params GenerationParams) CompletionRequest {
	return CompletionRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stream:      true,
	}
}

// Status is the JSON body for every non-streaming response.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

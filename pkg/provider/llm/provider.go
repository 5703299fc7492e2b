// Package llm defines the Provider interface for Large Language Model backends.
//
// The interviewer only needs single-shot chat completions: a system prompt,
// a short user message built from the conversation so far, and a bounded
// reply. Implementations translate [CompletionRequest] into their SDK's
// request type.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a chat conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant.
	Role string

	// Content is the plain-text body.
	Content string
}

// CompletionRequest holds everything needed for one completion call.
type CompletionRequest struct {
	// SystemPrompt is prepended as a system message when non-empty.
	SystemPrompt string

	// Messages is the conversation, oldest first.
	Messages []Message

	// Temperature controls sampling randomness. Zero uses the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int

	// JSONMode asks the backend to constrain output to a JSON object, where
	// supported. Callers must still tolerate non-JSON replies.
	JSONMode bool
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the result of a completion call.
type CompletionResponse struct {
	// Content is the generated text.
	Content string

	// Usage reports token counts when the backend provides them.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req and blocks until the full response is available.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

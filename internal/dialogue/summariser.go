package dialogue

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/resilience"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/record"
)

// FallbackFeedback is returned when the final assessment cannot be produced.
const FallbackFeedback = "Thank you for the interview. Feedback generation encountered an error."

// Defaults for the final assessment.
const (
	SummaryTemperature = 0.2
	SummaryMaxTokens   = 500
)

// Transcript is everything the summariser needs about a finished session.
type Transcript struct {
	Profile      interview.Profile
	Elapsed      time.Duration
	Conversation []record.Exchange
}

// Summariser writes the final assessment of an interview.
type Summariser struct {
	llm    llm.Provider
	policy resilience.Policy
}

// NewSummariser returns a Summariser backed by p. The final assessment is
// attempted once unless a policy is supplied.
func NewSummariser(p llm.Provider, policy ...resilience.Policy) *Summariser {
	s := &Summariser{llm: p, policy: resilience.Policy{Attempts: 1, Name: "llm.summarise"}}
	if len(policy) > 0 {
		s.policy = policy[0]
	}
	return s
}

// Summarise returns the model's assessment of t, or [FallbackFeedback] when
// the model fails or returns nothing. The caller bounds the call with ctx.
func (s *Summariser) Summarise(ctx context.Context, t Transcript) string {
	conv := t.Conversation
	if conv == nil {
		conv = []record.Exchange{}
	}
	history, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		slog.Warn("summarise: marshal conversation", "err", err)
		return FallbackFeedback
	}

	req := llm.CompletionRequest{
		SystemPrompt: interview.FinalSystemPrompt(t.Profile),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: interview.FinalUserPrompt(t.Profile, t.Elapsed, len(t.Conversation), string(history)),
		}},
		Temperature: SummaryTemperature,
		MaxTokens:   SummaryMaxTokens,
	}
	resp, err := resilience.RetryValue(ctx, s.policy, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return s.llm.Complete(ctx, req)
	})
	if err != nil {
		slog.Warn("final feedback generation failed", "err", err)
		return FallbackFeedback
	}
	if text := strings.TrimSpace(resp.Content); text != "" {
		return text
	}
	return FallbackFeedback
}

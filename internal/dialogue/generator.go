// Package dialogue turns candidate answers into interviewer replies and
// produces the final assessment, both through an [llm.Provider].
//
// Neither [Generator.Generate] nor [Summariser.Summarise] returns an error:
// once retries are used up they fall back to fixed texts, so the interview
// can always continue.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrWong99/intervox/internal/resilience"
	"github.com/MrWong99/intervox/pkg/provider/llm"
)

// Fallback texts.
const (
	// UnstructuredEvaluation is the evaluation recorded when the model reply
	// was not JSON.
	UnstructuredEvaluation = "Response received"

	// FallbackEvaluation is recorded when the model could not be reached.
	FallbackEvaluation = "Let's continue with the next question."

	// FallbackQuestion is asked when the model could not be reached.
	FallbackQuestion = "Can you tell me about your experience with this topic?"
)

// Defaults for question generation.
const (
	DefaultTemperature  = 0.3
	DefaultMaxTokens    = 300
	DefaultHistoryTurns = 3
)

// Exchange is one question and the answer that followed it, used as context
// for the next question.
type Exchange struct {
	Question string
	Answer   string
}

// Reply is the interviewer's reaction to one answer.
type Reply struct {
	Evaluation   string
	NextQuestion string

	// Raw is the unparsed model output. Empty on fallback.
	Raw string

	// Fallback is true when the model failed and fixed texts were used.
	Fallback bool
}

// FallbackReply is returned when generation fails.
func FallbackReply() Reply {
	return Reply{Evaluation: FallbackEvaluation, NextQuestion: FallbackQuestion, Fallback: true}
}

// GeneratorOption configures a [Generator].
type GeneratorOption func(*Generator)

// WithPolicy sets the retry policy. Default: [resilience.DefaultPolicy].
func WithPolicy(p resilience.Policy) GeneratorOption {
	return func(g *Generator) { g.policy = p }
}

// WithHistoryTurns sets how many previous exchanges are sent as context.
// Default: 3.
func WithHistoryTurns(n int) GeneratorOption {
	return func(g *Generator) { g.historyTurns = n }
}

// WithJSONMode asks the backend to constrain replies to a JSON object.
func WithJSONMode(on bool) GeneratorOption {
	return func(g *Generator) { g.jsonMode = on }
}

// Generator asks the model for an evaluation and the next question.
type Generator struct {
	llm          llm.Provider
	systemPrompt string
	policy       resilience.Policy
	historyTurns int
	jsonMode     bool
}

// NewGenerator returns a Generator using systemPrompt for every call.
func NewGenerator(p llm.Provider, systemPrompt string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		llm:          p,
		systemPrompt: systemPrompt,
		policy:       resilience.DefaultPolicy,
		historyTurns: DefaultHistoryTurns,
	}
	for _, o := range opts {
		o(g)
	}
	if g.policy.Name == "" {
		g.policy.Name = "llm.generate"
	}
	return g
}

// Generate returns the reply to answer given the earlier exchanges, oldest
// first. Only the last few exchanges are sent.
func (g *Generator) Generate(ctx context.Context, answer string, history []Exchange) Reply {
	req := llm.CompletionRequest{
		SystemPrompt: g.systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: g.userPrompt(answer, history)}},
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		JSONMode:     g.jsonMode,
	}

	resp, err := resilience.RetryValue(ctx, g.policy, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return g.llm.Complete(ctx, req)
	})
	if err != nil {
		slog.Warn("question generation failed, using fallback", "err", err)
		return FallbackReply()
	}
	return Parse(resp.Content).Reply()
}

func (g *Generator) userPrompt(answer string, history []Exchange) string {
	if n := g.historyTurns; n >= 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, ex := range history {
		fmt.Fprintf(&sb, "Q%d: %s\n", i+1, ex.Question)
		fmt.Fprintf(&sb, "A%d: %s\n\n", i+1, ex.Answer)
	}
	fmt.Fprintf(&sb, "\nLatest candidate response: %s", answer)
	return sb.String()
}

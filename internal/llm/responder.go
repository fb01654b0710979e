package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/ustc-compiler/gitlab-scripts/internal/logging"
)

// Responder sends one system + user message pair to a chat model and
// returns the text of the first choice. It keeps no conversation state.
type Responder struct {
	model       llms.Model
	temperature float64
}

// NewResponder wraps model. A zero temperature leaves the provider default.
func NewResponder(model llms.Model, temperature float64) *Responder {
	return &Responder{model: model, temperature: temperature}
}

// Respond performs a single chat completion.
func (r *Responder) Respond(ctx context.Context, system, user string) (string, error) {
	logger := logging.FromContext(ctx)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	var opts []llms.CallOption
	if r.temperature > 0 {
		opts = append(opts, llms.WithTemperature(r.temperature))
	}

	start := time.Now()
	resp, err := r.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	logger.Debug().
		Dur("duration", time.Since(start)).
		Int("prompt_length", len(user)).
		Str("response_preview", logging.Preview(content, 80)).
		Msg("LLM response received")

	return content, nil
}

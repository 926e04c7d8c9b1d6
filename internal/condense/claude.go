package condense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const claudeMaxTokens = 8192

// ClaudeCondenser condenses text with the Anthropic API. The API key
// comes from ANTHROPIC_API_KEY.
type ClaudeCondenser struct {
	client anthropic.Client
	model  string
}

// NewClaudeCondenser accepts either a short alias (haiku, sonnet) or a
// full model ID. Empty selects haiku.
func NewClaudeCondenser(model string) *ClaudeCondenser {
	modelID := claudeModels[model]
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}
	return &ClaudeCondenser{
		client: anthropic.NewClient(),
		model:  modelID,
	}
}

func (c *ClaudeCondenser) Name() string {
	return "claude"
}

func (c *ClaudeCondenser) Condense(ctx context.Context, text string, ratio float64) (string, error) {
	prompt := Prompt(text, ratio)

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(c.model),
			MaxTokens:   claudeMaxTokens,
			Temperature: anthropic.Float(temperature),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			lastErr = fmt.Errorf("Claude API error (attempt %d/%d): %w", attempt, maxRetries, err)
			if !claudeRetryable(err) {
				return "", lastErr
			}
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= time.Duration(backoffMult)
			}
			continue
		}

		out := claudeText(message)
		if strings.TrimSpace(out) == "" {
			lastErr = fmt.Errorf("empty response from Claude (attempt %d/%d)", attempt, maxRetries)
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= time.Duration(backoffMult)
			}
			continue
		}
		return out, nil
	}
	return "", lastErr
}

func claudeText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

// claudeRetryable keeps retries to rate limits, overload, and
// server-side failures. Auth and request shape errors fail fast.
func claudeRetryable(err error) bool {
	if transientNet(err) {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504, 529:
			return true
		}
		return false
	}
	return false
}

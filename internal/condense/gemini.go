package condense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiCondenser condenses text with the Gemini API via the official
// SDK. The API key comes from the argument or GEMINI_API_KEY.
type GeminiCondenser struct {
	client *genai.Client
	model  string
}

func NewGeminiCondenser(ctx context.Context, apiKey, model string) (*GeminiCondenser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiCondenser{client: client, model: model}, nil
}

func (g *GeminiCondenser) Name() string {
	return "gemini"
}

func (g *GeminiCondenser) Condense(ctx context.Context, text string, ratio float64) (string, error) {
	prompt := Prompt(text, ratio)

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			lastErr = fmt.Errorf("Gemini API error (attempt %d/%d): %w", attempt, maxRetries, err)
			if !geminiRetryable(err) {
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

		out := geminiText(result)
		if strings.TrimSpace(out) == "" {
			lastErr = fmt.Errorf("empty response from Gemini (attempt %d/%d)", attempt, maxRetries)
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

func geminiText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func geminiRetryable(err error) bool {
	if transientNet(err) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return false
}

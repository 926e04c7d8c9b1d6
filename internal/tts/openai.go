package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	openAIDefaultVoice = "alloy"
	openAIDefaultModel = "tts-1"

	openAISpeechURL = "https://api.openai.com/v1/audio/speech"

	// openAIMaxChunkChars is the API's per-request input cap.
	openAIMaxChunkChars = 4096
)

var openAIModels = map[string]bool{
	"tts-1":           true,
	"tts-1-hd":        true,
	"gpt-4o-mini-tts": true,
}

type openAIRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// OpenAIProvider implements Provider using the OpenAI speech API. The
// API key comes from OPENAI_API_KEY.
type OpenAIProvider struct {
	voice      string
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIProvider(voice, model string) *OpenAIProvider {
	if voice == "" {
		voice = openAIDefaultVoice
	}
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAIProvider{
		voice:      voice,
		model:      model,
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		baseURL:    openAISpeechURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) MaxChunkChars() int { return openAIMaxChunkChars }

func (p *OpenAIProvider) DefaultVoice() string { return p.voice }

func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voice string) (AudioResult, error) {
	if voice == "" {
		voice = p.voice
	}
	bodyBytes, err := json.Marshal(openAIRequest{
		Model: p.model,
		Input: text,
		Voice: voice,
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests ||
		res.StatusCode >= http.StatusInternalServerError {
		errBody, _ := io.ReadAll(res.Body)
		return AudioResult{}, &RetryableError{
			StatusCode: res.StatusCode,
			Body:       string(errBody),
		}
	}

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return AudioResult{}, fmt.Errorf("OpenAI API error (status %d): %s", res.StatusCode, string(errBody))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read response: %w", err)
	}

	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *OpenAIProvider) Close() error { return nil }

// ValidOpenAIModel reports whether model is a known speech model.
func ValidOpenAIModel(model string) bool {
	return openAIModels[model]
}

func openAIAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "alloy", Name: "Alloy", Gender: "female", Description: "Neutral, balanced narrator", Default: true},
		{ID: "echo", Name: "Echo", Gender: "male", Description: "Calm, measured male voice"},
		{ID: "fable", Name: "Fable", Gender: "male", Description: "Expressive British storyteller"},
		{ID: "onyx", Name: "Onyx", Gender: "male", Description: "Deep, authoritative male voice"},
		{ID: "nova", Name: "Nova", Gender: "female", Description: "Bright, energetic female voice"},
		{ID: "shimmer", Name: "Shimmer", Gender: "female", Description: "Soft, warm female voice"},
	}
}

package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	geminiDefaultVoice = "Charon"

	// Model names differ between the AI Studio and Vertex surfaces of
	// the same TTS model.
	geminiStudioModel = "gemini-2.5-flash-preview-tts"
	geminiVertexModel = "gemini-2.5-flash-tts"

	geminiMaxChunkChars = 6000
	geminiDefaultRegion = "us-central1"

	geminiStudioURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	geminiVertexURL = "https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeminiProvider implements Provider against the Gemini TTS models. It
// speaks to AI Studio when GEMINI_API_KEY is set, otherwise to the
// Vertex endpoint using Application Default Credentials and
// GCP_PROJECT. Output is raw PCM, not MP3.
type GeminiProvider struct {
	voice      string
	model      string
	endpoint   string
	apiKey     string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

func NewGeminiProvider(ctx context.Context, voice, model string) (*GeminiProvider, error) {
	if voice == "" {
		voice = geminiDefaultVoice
	}

	p := &GeminiProvider{
		voice:      voice,
		httpClient: &http.Client{Timeout: 180 * time.Second},
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		p.apiKey = key
		p.model = model
		if p.model == "" {
			p.model = geminiStudioModel
		}
		p.endpoint = fmt.Sprintf(geminiStudioURL, p.model)
		return p, nil
	}

	project := os.Getenv("GCP_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("gemini TTS requires GEMINI_API_KEY or GCP_PROJECT for Vertex access")
	}
	region := os.Getenv("GCP_REGION")
	if region == "" {
		region = geminiDefaultRegion
	}
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("load application default credentials: %w", err)
	}
	p.tokens = ts
	p.model = model
	if p.model == "" {
		p.model = geminiVertexModel
	}
	p.endpoint = fmt.Sprintf(geminiVertexURL, region, project, region, p.model)
	return p, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) MaxChunkChars() int { return geminiMaxChunkChars }

func (p *GeminiProvider) DefaultVoice() string { return p.voice }

func (p *GeminiProvider) Synthesize(ctx context.Context, text, voice string) (AudioResult, error) {
	if voice == "" {
		voice = p.voice
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: geminiGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice},
				},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal Gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create Gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", p.apiKey)
		req.URL.RawQuery = q.Encode()
	} else {
		token, err := p.tokens.Token()
		if err != nil {
			return AudioResult{}, fmt.Errorf("fetch access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Gemini TTS request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read Gemini response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return AudioResult{}, &RetryableError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return AudioResult{}, fmt.Errorf("Gemini TTS returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return AudioResult{}, fmt.Errorf("parse Gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return AudioResult{}, fmt.Errorf("Gemini response contained no audio parts")
	}

	encoded := parsed.Candidates[0].Content.Parts[0].InlineData.Data
	if encoded == "" {
		return AudioResult{}, fmt.Errorf("Gemini response contained empty audio data")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return AudioResult{}, fmt.Errorf("decode Gemini audio: %w", err)
	}

	return AudioResult{Data: data, Format: FormatPCM}, nil
}

func (p *GeminiProvider) Close() error { return nil }

func geminiAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Charon", Name: "Charon", Gender: "male", Description: "Informative, steady male voice", Default: true},
		{ID: "Kore", Name: "Kore", Gender: "female", Description: "Firm, confident female voice"},
		{ID: "Puck", Name: "Puck", Gender: "male", Description: "Upbeat, energetic male voice"},
		{ID: "Zephyr", Name: "Zephyr", Gender: "female", Description: "Bright, cheerful female voice"},
		{ID: "Fenrir", Name: "Fenrir", Gender: "male", Description: "Excitable, dynamic male voice"},
		{ID: "Leda", Name: "Leda", Gender: "female", Description: "Youthful, light female voice"},
		{ID: "Aoede", Name: "Aoede", Gender: "female", Description: "Breezy, natural female voice"},
	}
}

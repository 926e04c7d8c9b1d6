package tts

import (
	"context"
	"fmt"
	"time"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatPCM AudioFormat = "pcm" // raw 16-bit little-endian, 24 kHz mono
	FormatWAV AudioFormat = "wav"
)

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Segment is one synthesized chunk. Index is the chunk's position in
// the source text; the assembler requires segments in ascending order.
type Segment struct {
	Index int
	Audio AudioResult
}

// Provider synthesizes speech from text.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, voice string) (AudioResult, error)
	// MaxChunkChars is the largest text one request may carry. Longer
	// inputs are split at word boundaries before synthesis.
	MaxChunkChars() int
	DefaultVoice() string
	Close() error
}

// SynthesisError reports a failed synthesis after retries. Chunk is
// the zero-based index of the chunk that failed.
type SynthesisError struct {
	Vendor string
	Chunk  int
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize via %s (chunk %d): %v", e.Vendor, e.Chunk, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// VoiceInfo describes an available voice for display in list-voices.
type VoiceInfo struct {
	ID          string
	Name        string
	Gender      string
	Description string
	Default     bool
}

// AvailableVoices returns the voice catalog for the named vendor.
func AvailableVoices(vendor string) ([]VoiceInfo, error) {
	switch vendor {
	case "openai":
		return openAIAvailableVoices(), nil
	case "elevenlabs":
		return elevenLabsAvailableVoices(), nil
	case "google":
		return googleAvailableVoices(), nil
	case "polly":
		return pollyAvailableVoices(), nil
	case "gemini":
		return geminiAvailableVoices(), nil
	default:
		return nil, fmt.Errorf("unknown TTS vendor %q", vendor)
	}
}

// Vendors lists the supported TTS vendor names.
func Vendors() []string {
	return []string{"openai", "elevenlabs", "google", "polly", "gemini"}
}

// Retry constants shared by all providers.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultBackoffMulti   = 2
	defaultMaxBackoff     = 10 * time.Second
)

// RetryableError signals that the operation can be retried.
type RetryableError struct {
	StatusCode int
	Body       string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// WithRetry executes fn with exponential backoff on RetryableError.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else if _, ok := err.(*RetryableError); !ok {
			return err
		} else {
			lastErr = err
		}

		if attempt < defaultMaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(defaultBackoffMulti)
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}

	return lastErr
}

// NewProvider creates a TTS provider by vendor name. voice overrides
// the vendor default voice; model overrides the vendor default model
// where the vendor has one.
func NewProvider(ctx context.Context, vendor, voice, model string) (Provider, error) {
	switch vendor {
	case "openai":
		return NewOpenAIProvider(voice, model), nil
	case "elevenlabs":
		return NewElevenLabsProvider(voice, model), nil
	case "google":
		return NewGoogleProvider(ctx, voice)
	case "polly":
		return NewPollyProvider(ctx, voice)
	case "gemini":
		return NewGeminiProvider(ctx, voice, model)
	default:
		return nil, fmt.Errorf("unknown TTS vendor %q: choose one of openai, elevenlabs, google, polly, gemini", vendor)
	}
}

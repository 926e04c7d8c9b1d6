package tts

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWithRetryFailsFastOnPermanentError(t *testing.T) {
	calls := 0
	permanent := fmt.Errorf("invalid voice")
	err := WithRetry(context.Background(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestWithRetryAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return &RetryableError{StatusCode: 503, Body: "busy"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestAvailableVoices(t *testing.T) {
	for _, vendor := range Vendors() {
		voices, err := AvailableVoices(vendor)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", vendor, err)
		}
		if len(voices) == 0 {
			t.Fatalf("%s: empty voice catalog", vendor)
		}
		defaults := 0
		for _, v := range voices {
			if v.ID == "" || v.Name == "" {
				t.Errorf("%s: voice with empty ID or name: %+v", vendor, v)
			}
			if v.Default {
				defaults++
			}
		}
		if defaults != 1 {
			t.Errorf("%s: expected exactly 1 default voice, got %d", vendor, defaults)
		}
	}

	if _, err := AvailableVoices("kokoro"); err == nil {
		t.Error("expected error for unknown vendor")
	}
}

func TestNewProviderUnknownVendor(t *testing.T) {
	if _, err := NewProvider(context.Background(), "kokoro", "", ""); err == nil {
		t.Fatal("expected error for unknown vendor")
	}
}

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(context.Background(), "openai", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()
	if p.Name() != "openai" {
		t.Errorf("expected name openai, got %q", p.Name())
	}
	if p.DefaultVoice() != "alloy" {
		t.Errorf("expected default voice alloy, got %q", p.DefaultVoice())
	}
	if p.MaxChunkChars() != openAIMaxChunkChars {
		t.Errorf("expected chunk budget %d, got %d", openAIMaxChunkChars, p.MaxChunkChars())
	}
}

func TestValidOpenAIModel(t *testing.T) {
	for _, m := range []string{"tts-1", "tts-1-hd", "gpt-4o-mini-tts"} {
		if !ValidOpenAIModel(m) {
			t.Errorf("expected %s to be valid", m)
		}
	}
	if ValidOpenAIModel("whisper-1") {
		t.Error("whisper-1 is not a speech model")
	}
}

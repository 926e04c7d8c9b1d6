package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAISynthesize(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("nova", "tts-1-hd")
	p.apiKey = "test-key"
	p.baseURL = srv.URL

	res, err := p.Synthesize(context.Background(), "Hello there.", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Data) != "mp3-bytes" {
		t.Errorf("unexpected audio data %q", res.Data)
	}
	if res.Format != FormatMP3 {
		t.Errorf("expected mp3, got %s", res.Format)
	}
	if got.Model != "tts-1-hd" || got.Voice != "nova" || got.Input != "Hello there." {
		t.Errorf("unexpected request payload: %+v", got)
	}
}

func TestOpenAISynthesizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("", "")
	p.apiKey = "test-key"
	p.baseURL = srv.URL

	_, err := p.Synthesize(context.Background(), "Hello.", "")
	var retryable *RetryableError
	if !errors.As(err, &retryable) {
		t.Fatalf("expected RetryableError for 503, got %v", err)
	}
	if retryable.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", retryable.StatusCode)
	}
}

func TestOpenAISynthesizeClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("", "")
	p.apiKey = "test-key"
	p.baseURL = srv.URL

	_, err := p.Synthesize(context.Background(), "Hello.", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		t.Fatal("400 must not be retryable")
	}
}

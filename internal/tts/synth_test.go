package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeProvider records every synthesis call and can be programmed to
// fail on a given chunk, either permanently or transiently.
type fakeProvider struct {
	maxChunk     int
	defaultVoice string

	chunks []string
	voices []string

	failChunk     int // chunk index that fails; -1 for none
	failPerm      bool
	transientLeft int // RetryableErrors to return before succeeding
}

func newFakeProvider(maxChunk int) *fakeProvider {
	return &fakeProvider{maxChunk: maxChunk, defaultVoice: "narrator", failChunk: -1}
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) MaxChunkChars() int   { return f.maxChunk }
func (f *fakeProvider) DefaultVoice() string { return f.defaultVoice }
func (f *fakeProvider) Close() error         { return nil }

func (f *fakeProvider) Synthesize(_ context.Context, text, voice string) (AudioResult, error) {
	idx := len(f.chunks)
	f.chunks = append(f.chunks, text)
	f.voices = append(f.voices, voice)

	if f.transientLeft > 0 {
		f.transientLeft--
		return AudioResult{}, &RetryableError{StatusCode: 503, Body: "try again"}
	}
	if f.failChunk >= 0 && idx == f.failChunk && f.failPerm {
		return AudioResult{}, fmt.Errorf("vendor rejected input")
	}
	return AudioResult{Data: []byte(fmt.Sprintf("audio-%d", idx)), Format: FormatMP3}, nil
}

func TestSynthesizeSingleChunk(t *testing.T) {
	p := newFakeProvider(1000)
	segs, err := Synthesize(context.Background(), p, "A short piece of text.", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Index != 0 {
		t.Errorf("expected index 0, got %d", segs[0].Index)
	}
	if segs[0].Audio.Format != FormatMP3 {
		t.Errorf("expected mp3 format, got %s", segs[0].Audio.Format)
	}
	if p.voices[0] != "narrator" {
		t.Errorf("expected default voice to be used, got %q", p.voices[0])
	}
}

func TestSynthesizeChunksInOrder(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Sentence number %02d fills out the paragraph. ", i)
	}
	text := sb.String()

	p := newFakeProvider(200)
	segs, err := Synthesize(context.Background(), p, text, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	for i, seg := range segs {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
	}

	// The chunks must cover the sentences in source order.
	joined := strings.Join(p.chunks, " ")
	last := -1
	for i := 0; i < 30; i++ {
		pos := strings.Index(joined, fmt.Sprintf("number %02d", i))
		if pos < 0 {
			t.Fatalf("sentence %d missing from synthesized chunks", i)
		}
		if pos < last {
			t.Fatalf("sentence %d out of order", i)
		}
		last = pos
	}
}

func TestSynthesizeFailureDiscardsAllSegments(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Sentence number %02d fills out the paragraph. ", i)
	}

	p := newFakeProvider(200)
	p.failChunk = 1
	p.failPerm = true

	segs, err := Synthesize(context.Background(), p, sb.String(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if segs != nil {
		t.Errorf("expected no segments on failure, got %d", len(segs))
	}
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %T", err)
	}
	if synthErr.Vendor != "fake" {
		t.Errorf("expected vendor fake, got %q", synthErr.Vendor)
	}
	if synthErr.Chunk != 1 {
		t.Errorf("expected failing chunk 1, got %d", synthErr.Chunk)
	}
}

func TestSynthesizeRetriesTransientFailure(t *testing.T) {
	p := newFakeProvider(1000)
	p.transientLeft = 1

	segs, err := Synthesize(context.Background(), p, "Some text to speak.", "")
	if err != nil {
		t.Fatalf("unexpected error after transient failure: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if len(p.chunks) != 2 {
		t.Errorf("expected 2 synthesis calls (1 failed + 1 retry), got %d", len(p.chunks))
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	p := newFakeProvider(1000)
	_, err := Synthesize(context.Background(), p, "   \n\n  ", "")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError for blank input, got %v", err)
	}
	if len(p.chunks) != 0 {
		t.Errorf("expected no synthesis calls for blank input, got %d", len(p.chunks))
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	p := newFakeProvider(1000)
	if _, err := Synthesize(context.Background(), p, "Short text.", "nova"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.voices[0] != "nova" {
		t.Errorf("expected override voice nova, got %q", p.voices[0])
	}
}

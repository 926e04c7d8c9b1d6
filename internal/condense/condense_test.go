package condense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeCondenser struct {
	calls   int
	failOn  int
	lastErr error
}

func (f *fakeCondenser) Name() string { return "fake" }

func (f *fakeCondenser) Condense(ctx context.Context, text string, ratio float64) (string, error) {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		if f.lastErr == nil {
			f.lastErr = errors.New("vendor down")
		}
		return "", f.lastErr
	}
	words := strings.Fields(text)
	return fmt.Sprintf("[%s..%s]", words[0], words[len(words)-1]), nil
}

func TestRunPassThrough(t *testing.T) {
	f := &fakeCondenser{}
	out, err := Run(context.Background(), f, "unchanged text", 1)
	if err != nil {
		t.Fatal(err)
	}
	if out != "unchanged text" {
		t.Errorf("ratio 1 changed text: %q", out)
	}
	if f.calls != 0 {
		t.Errorf("ratio 1 made %d vendor calls, want 0", f.calls)
	}

	out, err = Run(context.Background(), nil, "no condenser", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if out != "no condenser" {
		t.Errorf("nil condenser changed text: %q", out)
	}
}

func TestRunSingleChunk(t *testing.T) {
	f := &fakeCondenser{}
	out, err := Run(context.Background(), f, "alpha bravo charlie", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Errorf("calls = %d, want 1", f.calls)
	}
	if out != "[alpha..charlie]" {
		t.Errorf("out = %q", out)
	}
}

func TestRunChunkedPreservesOrder(t *testing.T) {
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, fmt.Sprintf("start%03d %s end%03d.", i, strings.Repeat("filler ", 80), i))
	}
	text := strings.Join(parts, "\n\n")
	if len(text) <= requestBudget {
		t.Fatalf("test input too small to chunk: %d", len(text))
	}

	f := &fakeCondenser{}
	out, err := Run(context.Background(), f, text, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if f.calls < 2 {
		t.Errorf("calls = %d, want chunked (>= 2)", f.calls)
	}

	first := strings.Index(out, "start000")
	last := strings.Index(out, "end039")
	if first < 0 || last < 0 {
		t.Fatalf("markers missing from output: %q", out)
	}
	if first > last {
		t.Error("chunk outputs stitched out of order")
	}
}

func TestRunVendorFailure(t *testing.T) {
	f := &fakeCondenser{failOn: 1}
	_, err := Run(context.Background(), f, "some text here", 0.5)
	var ce *CondenseError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CondenseError, got %v", err)
	}
	if ce.Vendor != "fake" {
		t.Errorf("vendor = %q", ce.Vendor)
	}
}

func TestRunInvalidRatio(t *testing.T) {
	f := &fakeCondenser{}
	for _, ratio := range []float64{0, -0.1, 1.5} {
		if _, err := Run(context.Background(), f, "text", ratio); err == nil {
			t.Errorf("ratio %v accepted", ratio)
		}
	}
	if f.calls != 0 {
		t.Errorf("invalid ratios reached the vendor %d times", f.calls)
	}
}

func TestRunEmptyInput(t *testing.T) {
	f := &fakeCondenser{}
	out, err := Run(context.Background(), f, "   ", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("out = %q", out)
	}
	if f.calls != 0 {
		t.Error("empty input reached the vendor")
	}
}

func TestPromptStatesTarget(t *testing.T) {
	p := Prompt("body", 0.2)
	if !strings.Contains(p, "20%") {
		t.Errorf("prompt missing target percentage: %q", p)
	}
	if !strings.Contains(p, "body") {
		t.Error("prompt missing source text")
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	long := strings.Repeat("sentence goes here. ", 1500)
	f := &fakeCondenser{}
	if _, err := Run(ctx, f, long, 0.5); err == nil {
		t.Error("cancelled context not observed on chunked run")
	}
}

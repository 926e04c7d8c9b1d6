package tts

import (
	"context"
	"fmt"

	"github.com/apresai/textcast/internal/textsplit"
)

// Synthesize turns text into ordered audio segments using p. Text is
// split under the provider's per-request budget at word boundaries;
// each chunk is synthesized with bounded retry. Any chunk failing
// after retries fails the whole call: partial audio never escapes.
func Synthesize(ctx context.Context, p Provider, text, voice string) ([]Segment, error) {
	if voice == "" {
		voice = p.DefaultVoice()
	}

	chunks := textsplit.Split(text, p.MaxChunkChars())
	if len(chunks) == 0 {
		return nil, &SynthesisError{Vendor: p.Name(), Err: fmt.Errorf("no text to synthesize")}
	}

	segments := make([]Segment, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var result AudioResult
		err := WithRetry(ctx, func() error {
			var synthErr error
			result, synthErr = p.Synthesize(ctx, chunk, voice)
			return synthErr
		})
		if err != nil {
			return nil, &SynthesisError{Vendor: p.Name(), Chunk: i, Err: err}
		}
		if len(result.Data) == 0 {
			return nil, &SynthesisError{Vendor: p.Name(), Chunk: i, Err: fmt.Errorf("vendor returned empty audio")}
		}

		segments = append(segments, Segment{Index: i, Audio: result})
	}
	return segments, nil
}

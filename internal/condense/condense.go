// Package condense shortens extracted text to a target fraction of its
// length using an LLM vendor, chunking inputs that exceed a single
// request budget.
package condense

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/apresai/textcast/internal/textsplit"
)

const (
	// requestBudget is the most input text sent in one vendor call.
	// Well under every supported model's context window so the
	// condensed output never competes with the input for tokens.
	requestBudget = 12000

	temperature    = 0.7
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	backoffMult    = 2
)

// Condenser condenses text to approximately ratio times its length.
// Implementations own their transport-level retries.
type Condenser interface {
	Name() string
	Condense(ctx context.Context, text string, ratio float64) (string, error)
}

// CondenseError reports a condensation failure after retries.
type CondenseError struct {
	Vendor string
	Err    error
}

func (e *CondenseError) Error() string {
	return fmt.Sprintf("condense via %s: %v", e.Vendor, e.Err)
}

func (e *CondenseError) Unwrap() error {
	return e.Err
}

// Run condenses text with c. A nil condenser or a ratio of 1 passes
// the text through untouched with no vendor call. Oversized text is
// split under the request budget, condensed chunk by chunk at the same
// ratio, and stitched back in order.
func Run(ctx context.Context, c Condenser, text string, ratio float64) (string, error) {
	if c == nil || ratio == 1 {
		return text, nil
	}
	if ratio <= 0 || ratio > 1 {
		return "", &CondenseError{Vendor: name(c), Err: fmt.Errorf("condense ratio %v outside (0,1]", ratio)}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return text, nil
	}

	chunks := textsplit.Split(text, requestBudget)
	if len(chunks) == 1 {
		out, err := c.Condense(ctx, chunks[0], ratio)
		if err != nil {
			return "", wrap(c, err)
		}
		return out, nil
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := c.Condense(ctx, chunk, ratio)
		if err != nil {
			return "", wrap(c, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.Join(parts, "\n\n"), nil
}

// Prompt is the instruction sent ahead of each text chunk.
func Prompt(text string, ratio float64) string {
	return fmt.Sprintf(
		"Condense the following text while maintaining the key information.\nThe result should be approximately %d%% of the original length:\n\n%s",
		int(ratio*100), text)
}

func name(c Condenser) string {
	if c == nil {
		return "none"
	}
	return c.Name()
}

func wrap(c Condenser, err error) error {
	var ce *CondenseError
	if errors.As(err, &ce) {
		return err
	}
	return &CondenseError{Vendor: name(c), Err: err}
}

// transientNet reports transport-level failures worth retrying
// regardless of vendor.
func transientNet(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

package condense

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextVendors lists the vendors NewCondenser accepts.
func TextVendors() []string {
	return []string{"claude", "gemini"}
}

// NewCondenser builds the condense vendor. An empty model picks the
// vendor default.
func NewCondenser(ctx context.Context, vendor, model string) (Condenser, error) {
	switch vendor {
	case "claude":
		return NewClaudeCondenser(model), nil
	case "gemini":
		return NewGeminiCondenser(ctx, os.Getenv("GEMINI_API_KEY"), model)
	default:
		return nil, fmt.Errorf("unknown text vendor %q: choose one of %s",
			vendor, strings.Join(TextVendors(), ", "))
	}
}

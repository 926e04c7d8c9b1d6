package extract

import (
	"fmt"
	"strings"
)

// defaultMinContentLength is the smallest extraction considered a real
// article. Challenge interstitials and consent walls rarely exceed it.
const defaultMinContentLength = 200

// blockPhrases are fragments that appear in bot-challenge and
// access-denied interstitials. Matched case-insensitively against the
// extracted text. Kept specific to challenge wording so articles that
// merely discuss bot detection do not trip it.
var blockPhrases = []string{
	"verify you are human",
	"verifying you are human",
	"checking your browser before accessing",
	"checking if the site connection is secure",
	"enable javascript and cookies to continue",
	"please complete the security check to access",
	"access to this page has been denied",
	"unusual traffic from your computer network",
	"performance & security by cloudflare",
	"attention required! | cloudflare",
	"error 1020",
}

// BlockDetector classifies extracted text as a bot challenge. The
// thresholds are tunable because sites vary in how aggressively they
// gate content.
type BlockDetector struct {
	MinContentLength int
	ExtraPhrases     []string
}

func NewBlockDetector(minContentLength int, extraPhrases []string) *BlockDetector {
	if minContentLength <= 0 {
		minContentLength = defaultMinContentLength
	}
	return &BlockDetector{
		MinContentLength: minContentLength,
		ExtraPhrases:     extraPhrases,
	}
}

// Detect reports whether text looks like challenge or denial content
// rather than an article. statusCode is the HTTP status of the direct
// fetch; 403 and 503 are the statuses challenge pages ship with.
func (d *BlockDetector) Detect(text string, statusCode int) (reason string, blocked bool) {
	lower := strings.ToLower(text)
	for _, phrase := range blockPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Sprintf("challenge phrase detected: %q", phrase), true
		}
	}
	for _, phrase := range d.ExtraPhrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return fmt.Sprintf("challenge phrase detected: %q", phrase), true
		}
	}
	if isChallengeStatus(statusCode) && len(text) < d.MinContentLength {
		return fmt.Sprintf("HTTP %d with %d chars of content", statusCode, len(text)), true
	}
	return "", false
}

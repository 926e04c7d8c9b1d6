package extract

import "fmt"

// FetchError reports a failed direct fetch or unusable extraction:
// transport failures, non-challenge HTTP errors, and content below the
// usable minimum.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RenderError reports a failed headless-browser fallback on a page the
// direct fetch could not extract either.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.URL, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// BlockedError represents content withheld behind a bot challenge. It
// is a classification, not a processing failure: blocked items are
// recorded and never retried automatically. Title carries whatever
// name could still be derived from the page for the catalog entry.
type BlockedError struct {
	URL    string
	Title  string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked content at %s: %s", e.URL, e.Reason)
}

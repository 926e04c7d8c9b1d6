package extract

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

type Kind string

const (
	KindURL      Kind = "url"
	KindText     Kind = "text"
	KindTextFile Kind = "textfile"
	KindPDF      Kind = "pdf"

	// maxInputSize is the maximum allowed size for input content (25 MB).
	maxInputSize = 25 * 1024 * 1024

	fetchTimeout = 30 * time.Second

	// Sites that serve challenge pages to obvious bots get a browser UA.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

func (k Kind) String() string {
	return string(k)
}

// Item is one unit of work: a URL, a literal text, or a local file.
// ID is the dedup identity used by the catalog: the normalized URL for
// url items, a content digest for everything else.
type Item struct {
	ID           string
	Kind         Kind
	Source       string
	DiscoveredAt time.Time
}

// Result is the extracted content of an Item. Pages that turn out to
// be bot challenges never produce a Result; Extract fails with
// BlockedError instead.
type Result struct {
	Title     string
	Text      string
	SourceURL string
	WordCount int
}

// NewURLItem builds an Item whose identity is the normalized URL.
func NewURLItem(rawURL string) (Item, error) {
	norm, err := NormalizeURL(rawURL)
	if err != nil {
		return Item{}, err
	}
	return Item{ID: norm, Kind: KindURL, Source: rawURL, DiscoveredAt: time.Now().UTC()}, nil
}

// NewTextItem builds an Item for literal text. Identity is a digest of
// the text, so resubmitting the same text dedups like a repeated URL.
func NewTextItem(text string) Item {
	return Item{ID: "text-" + contentID([]byte(text)), Kind: KindText, Source: text, DiscoveredAt: time.Now().UTC()}
}

// NewFileItem builds an Item for a local text or PDF file. Identity is
// a digest of the file contents: a moved copy dedups against the
// original, an edited file processes again.
func NewFileItem(path string) (Item, error) {
	if err := validateFile(path); err != nil {
		return Item{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, fmt.Errorf("could not read file %s: %w", path, err)
	}
	kind := KindTextFile
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		kind = KindPDF
	}
	return Item{ID: "file-" + contentID(data), Kind: kind, Source: path, DiscoveredAt: time.Now().UTC()}, nil
}

// NormalizeURL lowercases the scheme and host and drops the fragment.
// Path and query are significant and kept as-is.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q in %s", parsed.Scheme, rawURL)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return parsed.String(), nil
}

func contentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Extractor turns Items into Results. A nil Renderer disables the
// headless-browser fallback for JavaScript-heavy pages.
type Extractor struct {
	Client   *http.Client
	Renderer Renderer
	Detector *BlockDetector
}

func NewExtractor(renderer Renderer, detector *BlockDetector) *Extractor {
	if detector == nil {
		detector = NewBlockDetector(0, nil)
	}
	return &Extractor{
		Client:   &http.Client{Timeout: fetchTimeout},
		Renderer: renderer,
		Detector: detector,
	}
}

func (e *Extractor) Extract(ctx context.Context, item Item) (*Result, error) {
	switch item.Kind {
	case KindURL:
		return e.extractURL(ctx, item.Source)
	case KindText:
		return extractLiteral(item.Source)
	case KindTextFile:
		return extractTextFile(item.Source)
	case KindPDF:
		return extractPDF(item.Source)
	default:
		return nil, fmt.Errorf("unknown item kind %q", item.Kind)
	}
}

func (e *Extractor) extractURL(ctx context.Context, source string) (*Result, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, &FetchError{URL: source, Err: err}
	}

	body, status, err := e.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	text, title := readArticle(body, parsed)

	// Pages that build their content with JavaScript come back nearly
	// empty from a plain GET. Render and re-extract before judging the
	// content; block detection runs on whatever text the chain ends
	// with, so a rendered page is never misread as a challenge.
	var renderErr error
	if len(text) < e.Detector.MinContentLength && e.Renderer != nil {
		rendered, rerr := e.Renderer.Render(ctx, source)
		if rerr != nil {
			renderErr = rerr
		} else if rtext, rtitle := readArticle([]byte(rendered), parsed); len(rtext) > len(text) {
			text, title = rtext, rtitle
		}
	}

	if reason, blocked := e.Detector.Detect(text, status); blocked {
		return nil, &BlockedError{
			URL:    source,
			Title:  titleOrSlug(title, text, parsed),
			Reason: reason,
		}
	}

	if text == "" {
		if renderErr != nil {
			return nil, &RenderError{URL: source, Err: renderErr}
		}
		return nil, &FetchError{URL: source, StatusCode: status, Err: fmt.Errorf("no readable content extracted")}
	}
	if len(text) < e.Detector.MinContentLength {
		return nil, &FetchError{URL: source, StatusCode: status, Err: fmt.Errorf("content too short (%d chars)", len(text))}
	}

	return &Result{
		Title:     titleOrSlug(title, text, parsed),
		Text:      text,
		SourceURL: source,
		WordCount: wordCount(text),
	}, nil
}

// fetch GETs the page. Challenge statuses (403, 503) still return the
// body so the block detector can classify it; other non-2xx statuses
// are fetch failures.
func (e *Extractor) fetch(ctx context.Context, source string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, 0, &FetchError{URL: source, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, 0, &FetchError{URL: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInputSize))
	if err != nil {
		return nil, resp.StatusCode, &FetchError{URL: source, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, resp.StatusCode, nil
	}
	if isChallengeStatus(resp.StatusCode) {
		return body, resp.StatusCode, nil
	}
	return nil, resp.StatusCode, &FetchError{URL: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
}

func readArticle(body []byte, pageURL *url.URL) (text, title string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(article.TextContent), strings.TrimSpace(article.Title)
}

func extractLiteral(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("literal text input is empty")
	}
	return &Result{
		Title:     titleFromText(text, 80),
		Text:      text,
		WordCount: wordCount(text),
	}, nil
}

func extractTextFile(path string) (*Result, error) {
	if err := validateFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("file %s is empty", path)
	}
	return &Result{
		Title:     titleFromText(text, 80),
		Text:      text,
		WordCount: wordCount(text),
	}, nil
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}

func isChallengeStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusServiceUnavailable
}

func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inWord = false
		} else if !inWord {
			inWord = true
			count++
		}
	}
	return count
}

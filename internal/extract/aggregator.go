package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AggregatorConfig describes how to pull per-article links out of a
// known link-roundup site.
type AggregatorConfig struct {
	Name            string
	LinkSelector    string
	ExcludePatterns []*regexp.Regexp
}

// aggregatorConfigs keys are host suffixes. sreweekly.com is the one
// roundup this tool grew up on; entries here gain expansion without
// code changes elsewhere.
var aggregatorConfigs = map[string]AggregatorConfig{
	"sreweekly.com": {
		Name:         "SRE Weekly",
		LinkSelector: `a[target=_blank]`,
		ExcludePatterns: []*regexp.Regexp{
			regexp.MustCompile(`wp-content`),
			regexp.MustCompile(`sreweekly\.com`),
		},
	},
}

const defaultLinkSelector = `a[target=_blank]`

// IsAggregator reports whether rawURL points at a configured roundup
// site whose article links should be processed instead of the page.
func IsAggregator(rawURL string) bool {
	return aggregatorConfigFor(rawURL) != nil
}

func aggregatorConfigFor(rawURL string) *AggregatorConfig {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(parsed.Hostname())
	for domain, cfg := range aggregatorConfigs {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			c := cfg
			return &c
		}
	}
	return nil
}

// ExpandAggregator fetches a roundup page and returns the outbound
// article URLs it links to, in document order and deduplicated.
func ExpandAggregator(ctx context.Context, client *http.Client, pageURL string) ([]string, error) {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	cfg := aggregatorConfigFor(pageURL)
	selector := defaultLinkSelector
	var excludes []*regexp.Regexp
	if cfg != nil {
		selector = cfg.LinkSelector
		excludes = cfg.ExcludePatterns
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxInputSize))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator page %s: %w", pageURL, err)
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		link := resolved.String()
		for _, pat := range excludes {
			if pat.MatchString(link) {
				return
			}
		}
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links, nil
}

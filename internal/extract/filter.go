package extract

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// filteredDomains host non-article content (video, code, packages)
// that would produce garbage audio. URLs resolving here are dropped
// before any processing.
var filteredDomains = []string{
	"youtube.com",
	"youtu.be",
	"github.com",
	"raw.githubusercontent.com",
	"gist.github.com",
	"pypi.org",
	"npmjs.com",
}

const resolveTimeout = 10 * time.Second

// URLFilter drops URLs that resolve to non-article domains. Shortener
// and tracking links are followed first so the final destination is
// what gets judged.
type URLFilter struct {
	Client *http.Client
}

func NewURLFilter() *URLFilter {
	return &URLFilter{Client: &http.Client{Timeout: resolveTimeout}}
}

// IsFilteredDomain reports whether rawURL's host is one of the
// filtered domains or a subdomain of one.
func IsFilteredDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range filteredDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Resolve follows redirects and returns the final URL. HEAD is tried
// first; servers that reject it get a GET. Resolution failures return
// the original URL so a flaky HEAD endpoint never drops an article.
func (f *URLFilter) Resolve(ctx context.Context, rawURL string) string {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return rawURL
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := f.Client.Do(req)
		if err != nil {
			continue
		}
		final := resp.Request.URL.String()
		resp.Body.Close()
		if method == http.MethodHead && resp.StatusCode >= 400 {
			continue
		}
		return final
	}
	return rawURL
}

// Filter partitions urls into kept and dropped by final destination
// domain.
func (f *URLFilter) Filter(ctx context.Context, urls []string) (kept, dropped []string) {
	for _, u := range urls {
		if IsFilteredDomain(u) {
			dropped = append(dropped, u)
			continue
		}
		final := f.Resolve(ctx, u)
		if IsFilteredDomain(final) {
			dropped = append(dropped, u)
			continue
		}
		kept = append(kept, u)
	}
	return kept, dropped
}

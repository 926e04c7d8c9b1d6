package extract

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	nonWordRuns   = regexp.MustCompile(`\W+`)
	slugSeparator = regexp.MustCompile(`[-_]+`)
)

const maxTitleStem = 120

// SanitizeTitle turns a display title into a filesystem-safe filename
// stem: non-word runs collapse to single hyphens, lowercase, capped at
// 120 chars. Empty input yields "untitled".
func SanitizeTitle(title string) string {
	stem := nonWordRuns.ReplaceAllString(title, "-")
	stem = strings.Trim(stem, "-")
	stem = strings.ToLower(stem)
	if len(stem) > maxTitleStem {
		stem = stem[:maxTitleStem]
		stem = strings.TrimRight(stem, "-")
	}
	if stem == "" {
		return "untitled"
	}
	return stem
}

// titleOrSlug picks a display title: the extracted one, else the first
// text line, else words recovered from the URL's last path segment.
func titleOrSlug(title, text string, pageURL *url.URL) string {
	if title != "" {
		return title
	}
	if t := titleFromText(text, 80); t != "Untitled" {
		return t
	}
	if pageURL != nil {
		if slug := titleFromSlug(pageURL); slug != "" {
			return slug
		}
	}
	return "Untitled"
}

func titleFromText(text string, maxLen int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > maxLen {
		line = line[:maxLen] + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}

func titleFromSlug(pageURL *url.URL) string {
	path := strings.Trim(pageURL.Path, "/")
	if path == "" {
		return pageURL.Hostname()
	}
	segs := strings.Split(path, "/")
	last := segs[len(segs)-1]
	last = strings.TrimSuffix(last, ".html")
	last = strings.TrimSuffix(last, ".htm")
	return strings.TrimSpace(slugSeparator.ReplaceAllString(last, " "))
}

package extract

import (
	"net/url"
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"punctuation collapses", "Go: The Good Parts!", "go-the-good-parts"},
		{"already clean", "simple", "simple"},
		{"leading trailing junk", "  ...Weird Title...  ", "weird-title"},
		{"slashes and quotes", `a/b\c "quoted" d`, "a-b-c-quoted-d"},
		{"empty becomes untitled", "", "untitled"},
		{"only punctuation becomes untitled", "?!...", "untitled"},
		{"unicode folds to ascii skeleton", "Café Culture", "caf-culture"},
		{"underscores preserved as word chars", "snake_case_title", "snake_case_title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.title); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitleLength(t *testing.T) {
	long := strings.Repeat("word ", 60)
	got := SanitizeTitle(long)
	if len(got) > maxTitleStem {
		t.Errorf("stem length %d exceeds cap %d", len(got), maxTitleStem)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated stem ends with hyphen: %q", got)
	}
}

func TestTitleFromText(t *testing.T) {
	if got := titleFromText("First line\nSecond line", 80); got != "First line" {
		t.Errorf("got %q", got)
	}
	if got := titleFromText(strings.Repeat("x", 100), 80); got != strings.Repeat("x", 80)+"..." {
		t.Errorf("long first line not truncated: %q", got)
	}
	if got := titleFromText("", 80); got != "Untitled" {
		t.Errorf("empty text: got %q", got)
	}
}

func TestTitleOrSlug(t *testing.T) {
	u, _ := url.Parse("https://example.com/posts/why-go-is-nice.html")
	if got := titleOrSlug("", "", u); got != "why go is nice" {
		t.Errorf("slug fallback: got %q", got)
	}
	if got := titleOrSlug("Real Title", "ignored", u); got != "Real Title" {
		t.Errorf("extracted title not preferred: got %q", got)
	}
	if got := titleOrSlug("", "Leading line here\nmore", u); got != "Leading line here" {
		t.Errorf("text fallback: got %q", got)
	}
	root, _ := url.Parse("https://example.com/")
	if got := titleOrSlug("", "", root); got != "example.com" {
		t.Errorf("host fallback: got %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"https://Example.COM/Path?q=1#frag", "https://example.com/Path?q=1", false},
		{"http://example.com/a", "http://example.com/a", false},
		{"ftp://example.com/a", "", true},
		{"not a url at all", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeURL(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeURL(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

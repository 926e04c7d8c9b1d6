package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsFilteredDomain(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://github.com/user/repo", true},
		{"https://gist.github.com/user/123", true},
		{"https://pypi.org/project/requests/", true},
		{"https://www.npmjs.com/package/left-pad", true},
		{"https://example.com/article", false},
		{"https://mygithub.company.com/page", false},
		{"https://notyoutube.community/post", false},
	}
	for _, tt := range tests {
		if got := IsFilteredDomain(tt.url); got != tt.want {
			t.Errorf("IsFilteredDomain(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestResolveFollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "landed")
	}))
	defer final.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/dest", http.StatusFound)
	}))
	defer hop.Close()

	f := NewURLFilter()
	got := f.Resolve(context.Background(), hop.URL+"/short")
	want := final.URL + "/dest"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveFailureKeepsOriginal(t *testing.T) {
	f := NewURLFilter()
	orig := "http://127.0.0.1:1/unreachable"
	if got := f.Resolve(context.Background(), orig); got != orig {
		t.Errorf("Resolve on unreachable host = %q, want original", got)
	}
}

func TestFilterPartitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := NewURLFilter()
	kept, dropped := f.Filter(context.Background(), []string{
		srv.URL + "/article",
		"https://github.com/user/repo",
	})
	if len(kept) != 1 || kept[0] != srv.URL+"/article" {
		t.Errorf("kept = %v", kept)
	}
	if len(dropped) != 1 || dropped[0] != "https://github.com/user/repo" {
		t.Errorf("dropped = %v", dropped)
	}
}

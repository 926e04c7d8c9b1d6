package extract

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadListFile(t *testing.T) {
	content := strings.Join([]string{
		"# morning queue",
		"",
		"https://Example.com/first",
		"   https://example.com/second?page=2   ",
		"not a url at all",
		"ftp://example.com/wrong-scheme",
		"https://example.com/third#section",
	}, "\n")
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	items, warnings, err := ReadListFile(path)
	if err != nil {
		t.Fatalf("ReadListFile: %v", err)
	}
	wantIDs := []string{
		"https://example.com/first",
		"https://example.com/second?page=2",
		"https://example.com/third",
	}
	if len(items) != len(wantIDs) {
		t.Fatalf("items = %d, want %d", len(items), len(wantIDs))
	}
	for i, want := range wantIDs {
		if items[i].ID != want {
			t.Errorf("item %d ID = %q, want %q", i, items[i].ID, want)
		}
		if items[i].Kind != KindURL {
			t.Errorf("item %d kind = %s", i, items[i].Kind)
		}
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", warnings)
	}
	if !strings.Contains(warnings[0], "line 5") {
		t.Errorf("first warning %q should name line 5", warnings[0])
	}
	if !strings.Contains(warnings[1], "line 6") {
		t.Errorf("second warning %q should name line 6", warnings[1])
	}
}

func TestReadListFileMissing(t *testing.T) {
	_, _, err := ReadListFile(filepath.Join(t.TempDir(), "absent.txt"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

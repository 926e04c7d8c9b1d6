package extract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadListFile parses a newline-delimited URL list file. Blank lines
// and lines starting with # are ignored. Lines that do not parse as
// URLs are returned as warnings instead of failing the list, so one
// stray line cannot stall a whole watch cycle.
func ReadListFile(path string) (items []Item, warnings []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()
	return parseList(f)
}

func parseList(r io.Reader) ([]Item, []string, error) {
	var items []Item
	var warnings []string

	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		item, err := NewURLItem(line)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return items, warnings, fmt.Errorf("read url list: %w", err)
	}
	return items, warnings, nil
}

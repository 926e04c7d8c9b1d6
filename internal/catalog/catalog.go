package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultFilename is the ledger file kept inside the output directory.
const DefaultFilename = ".textcast-catalog.json"

// Status is the terminal outcome recorded for an item.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusBlocked   Status = "blocked"
)

// Entry records one processed item. ID is the item identity used for
// dedup (the normalized URL, or a content digest for literal text and
// files).
type Entry struct {
	ID          string    `json:"id"`
	SourceURL   string    `json:"source_url,omitempty"`
	Title       string    `json:"title,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// CatalogError reports a ledger read or write failure. A write failure
// is fatal to the run: without a durable ledger, dedup guarantees are
// gone.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Catalog is the durable dedup ledger, persisted as pretty JSON after
// every Record.
type Catalog struct {
	mu      sync.Mutex
	entries map[string]Entry
	path    string
}

// Open loads the ledger at path, or initializes an empty one when the
// file does not exist yet. A corrupt file is an error: silently
// starting fresh would reprocess everything.
func Open(path string) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]Entry),
		path:    path,
	}
	if err := c.load(); err != nil {
		return nil, &CatalogError{Op: "load", Err: err}
	}
	return c, nil
}

func (c *Catalog) load() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", c.path, err)
	}
	for _, e := range entries {
		c.entries[e.ID] = e
	}
	return nil
}

// Path returns the ledger file location.
func (c *Catalog) Path() string {
	return c.path
}

// Lookup returns the entry for id, if recorded.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// Record upserts entry and persists the ledger immediately. Last
// writer wins.
func (c *Catalog) Record(entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now().UTC()
	}
	c.entries[entry.ID] = entry

	if err := c.persist(); err != nil {
		return &CatalogError{Op: "persist", Err: err}
	}
	return nil
}

// Reset drops the entry for id regardless of status, making the item
// eligible for reprocessing. Returns whether an entry existed.
func (c *Catalog) Reset(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false, nil
	}
	delete(c.entries, id)

	if err := c.persist(); err != nil {
		return true, &CatalogError{Op: "persist", Err: err}
	}
	return true, nil
}

// ResetFailed drops failed and blocked entries so the next run retries
// them. With no ids every failed or blocked entry is dropped; otherwise
// only the named ones. Succeeded entries are never touched. Returns the
// number of entries dropped.
func (c *Catalog) ResetFailed(ids ...string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	eligible := func(e Entry) bool {
		return e.Status == StatusFailed || e.Status == StatusBlocked
	}

	dropped := 0
	if len(ids) == 0 {
		for id, e := range c.entries {
			if eligible(e) {
				delete(c.entries, id)
				dropped++
			}
		}
	} else {
		for _, id := range ids {
			if e, ok := c.entries[id]; ok && eligible(e) {
				delete(c.entries, id)
				dropped++
			}
		}
	}

	if dropped == 0 {
		return 0, nil
	}
	if err := c.persist(); err != nil {
		return dropped, &CatalogError{Op: "persist", Err: err}
	}
	return dropped, nil
}

// Entries returns an ID-sorted snapshot of the ledger.
func (c *Catalog) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Len returns the number of recorded entries.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Catalog) snapshotLocked() []Entry {
	entries := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// persist writes the ledger atomically: temp file in the same
// directory, then rename over the target.
func (c *Catalog) persist() error {
	data, err := json.MarshalIndent(c.snapshotLocked(), "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

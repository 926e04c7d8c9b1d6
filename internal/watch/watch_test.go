package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/extract"
)

type recordingRunner struct {
	mu      sync.Mutex
	batches [][]extract.Item
	ran     chan struct{}
	err     error
}

func (r *recordingRunner) run(_ context.Context, items []extract.Item) error {
	r.mu.Lock()
	r.batches = append(r.batches, items)
	err := r.err
	r.mu.Unlock()
	r.ran <- struct{}{}
	return err
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recordingRunner) last() []extract.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

type serviceHarness struct {
	listPath string
	cat      *catalog.Catalog
	runner   *recordingRunner
	done     chan error
	cancel   context.CancelFunc

	stopOnce sync.Once
	stopped  bool
	finalErr error
}

// startService launches a Service over a fresh temp dir. An empty
// listContent leaves the list file absent.
func startService(t *testing.T, listContent string, debounce time.Duration, runnerErr error) *serviceHarness {
	t.Helper()
	listPath := filepath.Join(t.TempDir(), "urls.txt")
	if listContent != "" {
		if err := os.WriteFile(listPath, []byte(listContent), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := catalog.Open(filepath.Join(t.TempDir(), catalog.DefaultFilename))
	if err != nil {
		t.Fatal(err)
	}

	h := &serviceHarness{
		listPath: listPath,
		cat:      cat,
		runner:   &recordingRunner{ran: make(chan struct{}, 16), err: runnerErr},
		done:     make(chan error, 1),
	}
	svc := &Service{
		ListPath: listPath,
		Catalog:  cat,
		Runner:   h.runner.run,
		Debounce: debounce,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- svc.Run(ctx) }()
	t.Cleanup(func() { h.stop(t) })
	return h
}

func (h *serviceHarness) waitRun(t *testing.T) []extract.Item {
	t.Helper()
	select {
	case <-h.runner.ran:
		return h.runner.last()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a batch run")
		return nil
	}
}

// stop cancels the service and returns Run's result. Safe to call more
// than once; the cleanup hook reuses it.
func (h *serviceHarness) stop(t *testing.T) error {
	t.Helper()
	h.stopOnce.Do(func() {
		h.cancel()
		select {
		case h.finalErr = <-h.done:
			h.stopped = true
		case <-time.After(5 * time.Second):
		}
	})
	if !h.stopped {
		t.Error("service did not stop within 5s")
	}
	return h.finalErr
}

func TestServiceScansExistingListOnStartup(t *testing.T) {
	h := startService(t, "https://example.com/a\nhttps://example.com/b\n", 50*time.Millisecond, nil)

	batch := h.waitRun(t)
	if len(batch) != 2 {
		t.Fatalf("startup batch = %d items, want 2", len(batch))
	}
	if err := h.stop(t); err != nil {
		t.Errorf("Run returned %v on cancellation", err)
	}
}

func TestServiceFiltersSucceededEntries(t *testing.T) {
	succeeded, err := extract.NewURLItem("https://example.com/done")
	if err != nil {
		t.Fatal(err)
	}
	h := startService(t, "", 50*time.Millisecond, nil)
	if err := h.cat.Record(catalog.Entry{ID: succeeded.ID, Status: catalog.StatusSucceeded}); err != nil {
		t.Fatal(err)
	}

	// Give the watcher time to attach before the list appears.
	time.Sleep(200 * time.Millisecond)
	list := "# queue\nhttps://example.com/done\nhttps://example.com/new\n"
	if err := os.WriteFile(h.listPath, []byte(list), 0644); err != nil {
		t.Fatal(err)
	}

	batch := h.waitRun(t)
	if len(batch) != 1 {
		t.Fatalf("batch = %d items, want 1 (succeeded entry filtered)", len(batch))
	}
	if batch[0].ID != "https://example.com/new" {
		t.Errorf("batch[0] = %s", batch[0].ID)
	}
}

func TestServiceDebouncesEditBursts(t *testing.T) {
	h := startService(t, "", 300*time.Millisecond, nil)
	time.Sleep(200 * time.Millisecond)

	var list string
	for i := 0; i < 5; i++ {
		list += fmt.Sprintf("https://example.com/article-%d\n", i)
		if err := os.WriteFile(h.listPath, []byte(list), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	batch := h.waitRun(t)
	if len(batch) != 5 {
		t.Errorf("batch = %d items, want all 5 after debounce", len(batch))
	}
	// The whole burst must have collapsed into a single scan.
	time.Sleep(700 * time.Millisecond)
	if got := h.runner.count(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestServiceRescanSkipsSucceeded(t *testing.T) {
	h := startService(t, "https://example.com/first\n", 50*time.Millisecond, nil)

	first := h.waitRun(t)
	if len(first) != 1 {
		t.Fatalf("first batch = %d items, want 1", len(first))
	}
	if err := h.cat.Record(catalog.Entry{ID: first[0].ID, Status: catalog.StatusSucceeded}); err != nil {
		t.Fatal(err)
	}

	list := "https://example.com/first\nhttps://example.com/second\n"
	if err := os.WriteFile(h.listPath, []byte(list), 0644); err != nil {
		t.Fatal(err)
	}

	second := h.waitRun(t)
	if len(second) != 1 {
		t.Fatalf("second batch = %d items, want 1", len(second))
	}
	if second[0].ID != "https://example.com/second" {
		t.Errorf("second batch item = %s", second[0].ID)
	}
}

func TestServiceRunnerErrorStopsService(t *testing.T) {
	fatal := errors.New("ledger write failed")
	h := startService(t, "https://example.com/fatal\n", 50*time.Millisecond, fatal)

	h.waitRun(t)
	if err := h.stop(t); !errors.Is(err, fatal) {
		t.Errorf("Run returned %v, want runner error", err)
	}
}

func TestServiceWaitsForMissingList(t *testing.T) {
	h := startService(t, "", 50*time.Millisecond, nil)

	// No list yet: the startup scan must neither run a batch nor stop
	// the service.
	time.Sleep(300 * time.Millisecond)
	if got := h.runner.count(); got != 0 {
		t.Fatalf("runs = %d before the list exists", got)
	}

	if err := os.WriteFile(h.listPath, []byte("https://example.com/late\n"), 0644); err != nil {
		t.Fatal(err)
	}
	batch := h.waitRun(t)
	if len(batch) != 1 || batch[0].ID != "https://example.com/late" {
		t.Errorf("batch = %+v", batch)
	}
}

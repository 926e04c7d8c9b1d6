// Package watch runs the long-lived service mode: it observes a URL
// list file and feeds changed contents to the pipeline one batch at a
// time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/extract"
)

const (
	// DefaultDebounce collapses an editor's burst of writes into one scan.
	DefaultDebounce = 500 * time.Millisecond

	debouncePoll = 100 * time.Millisecond

	restartInitialBackoff = 1 * time.Second
	restartBackoffMult    = 2
	restartMaxBackoff     = 30 * time.Second
	maxRestarts           = 6
)

// Runner processes one batch of items. Per-item failures must be
// absorbed by the runner; a non-nil error stops the service.
type Runner func(ctx context.Context, items []extract.Item) error

// Service watches a URL list file. Scans run on one goroutine, so
// batches never overlap; changes that land mid-batch queue exactly one
// follow-up scan.
type Service struct {
	ListPath string
	Catalog  *catalog.Catalog
	Runner   Runner
	Debounce time.Duration // 0 means DefaultDebounce
	Logger   *slog.Logger
}

// backendError marks notification-backend failures, the only class the
// service restarts on.
type backendError struct {
	err error
}

func (e *backendError) Error() string {
	return fmt.Sprintf("watch backend: %v", e.err)
}

func (e *backendError) Unwrap() error {
	return e.err
}

// Run watches until ctx is cancelled, which returns nil, or until a
// fatal error occurs. Backend failures reopen the watcher with bounded
// exponential backoff before giving up.
func (s *Service) Run(ctx context.Context) error {
	log := s.logger()
	backoff := restartInitialBackoff

	for restarts := 0; ; restarts++ {
		err := s.watch(ctx)
		if err == nil {
			return nil
		}
		var be *backendError
		if !errors.As(err, &be) {
			return err
		}
		if restarts >= maxRestarts {
			return fmt.Errorf("giving up after %d watcher restarts: %w", restarts, err)
		}
		log.Warn("watcher failed; restarting",
			"error", err, "backoff", backoff, "restart", restarts+1)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= restartBackoffMult
		if backoff > restartMaxBackoff {
			backoff = restartMaxBackoff
		}
	}
}

// watch opens the backend, runs one initial scan, then loops over
// events until ctx is done (nil) or something breaks.
func (s *Service) watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return &backendError{err}
	}
	defer fsw.Close()

	// Watch the parent directory: editors replace files via
	// rename+create, which silently detaches a direct file watch.
	if err := fsw.Add(filepath.Dir(s.ListPath)); err != nil {
		return &backendError{err}
	}
	base := filepath.Base(s.ListPath)

	log := s.logger()
	log.Info("watching url list", "file", s.ListPath, "debounce", s.debounce())

	// Initial scan picks up items listed while the service was down.
	if err := s.scan(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(debouncePoll)
	defer ticker.Stop()

	var due time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return &backendError{errors.New("event channel closed")}
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				log.Debug("url list changed", "op", ev.Op.String())
				due = time.Now().Add(s.debounce())
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return &backendError{errors.New("error channel closed")}
			}
			return &backendError{err}

		case <-ticker.C:
			if due.IsZero() || time.Now().Before(due) {
				continue
			}
			due = time.Time{}
			if err := s.scan(ctx); err != nil {
				return err
			}
		}
	}
}

// scan reads the list and hands everything not already succeeded to
// the runner. Failed and blocked entries are included; the pipeline
// parks them until an operator resets their catalog entries.
func (s *Service) scan(ctx context.Context) error {
	log := s.logger()

	items, warnings, err := extract.ReadListFile(s.ListPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("url list does not exist yet", "file", s.ListPath)
		} else {
			log.Warn("could not read url list", "file", s.ListPath, "error", err)
		}
		return nil
	}
	for _, w := range warnings {
		log.Warn("skipping url list line", "detail", w)
	}

	var batch []extract.Item
	for _, item := range items {
		if entry, ok := s.Catalog.Lookup(item.ID); ok && entry.Status == catalog.StatusSucceeded {
			continue
		}
		batch = append(batch, item)
	}
	if len(batch) == 0 {
		log.Info("url list scan found nothing to process", "listed", len(items))
		return nil
	}

	log.Info("processing url list batch", "listed", len(items), "batch", len(batch))
	return s.Runner(ctx, batch)
}

func (s *Service) debounce() time.Duration {
	if s.Debounce > 0 {
		return s.Debounce
	}
	return DefaultDebounce
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

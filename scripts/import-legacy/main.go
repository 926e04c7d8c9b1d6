package main

import (
	"bufio"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/extract"
)

// Seeds a catalog from the flat processed-URLs file the old shell
// pipeline kept. Imported entries are marked succeeded with no output
// path, so the watcher will not reprocess them.
func main() {
	var (
		listPath    = flag.String("list", "", "Legacy processed-URLs file, one URL per line")
		catalogPath = flag.String("catalog", "", "Catalog file to seed")
		dryRun      = flag.Bool("dry-run", false, "Parse and count but don't write")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *listPath == "" || *catalogPath == "" {
		slog.Error("Both -list and -catalog are required")
		os.Exit(1)
	}

	f, err := os.Open(*listPath)
	if err != nil {
		slog.Error("Failed to open legacy list", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	cat, err := catalog.Open(*catalogPath)
	if err != nil {
		slog.Error("Failed to open catalog", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		slog.Info("DRY RUN MODE - no writes will be performed")
	}

	slog.Info("Starting import", "list", *listPath, "catalog", *catalogPath)

	var scanned, imported, skipped int

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		scanned++

		item, err := extract.NewURLItem(line)
		if err != nil {
			slog.Warn("Skipping unparseable line", "line", line, "error", err)
			skipped++
			continue
		}
		if _, ok := cat.Lookup(item.ID); ok {
			skipped++
			continue
		}

		if !*dryRun {
			err := cat.Record(catalog.Entry{
				ID:        item.ID,
				SourceURL: item.Source,
				Status:    catalog.StatusSucceeded,
				Reason:    "imported from legacy list",
			})
			if err != nil {
				slog.Error("Record failed", "id", item.ID, "error", err)
				os.Exit(1)
			}
		}
		imported++

		if scanned%100 == 0 {
			slog.Info("Progress", "scanned", scanned, "imported", imported, "skipped", skipped)
		}
	}
	if err := sc.Err(); err != nil {
		slog.Error("Failed reading legacy list", "error", err)
		os.Exit(1)
	}

	slog.Info("Import complete",
		"scanned", scanned,
		"imported", imported,
		"skipped", skipped,
		"dry_run", *dryRun,
	)
}

package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apresai/textcast/internal/assembly"
	"github.com/apresai/textcast/internal/catalog"
)

// Rebuilds a lost catalog by scanning an output directory. The source
// of each file is unrecoverable, so the file stem stands in for both ID
// and title; rebuilt entries are succeeded with the file mtime as the
// processing time.
func main() {
	var (
		dir         = flag.String("directory", "", "Output directory to scan for audio files")
		catalogPath = flag.String("catalog", "", "Catalog file to rebuild (default: <directory>/"+catalog.DefaultFilename+")")
		dryRun      = flag.Bool("dry-run", false, "Scan and count but don't write")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *dir == "" {
		slog.Error("-directory is required")
		os.Exit(1)
	}
	if *catalogPath == "" {
		*catalogPath = filepath.Join(*dir, catalog.DefaultFilename)
	}

	files, err := os.ReadDir(*dir)
	if err != nil {
		slog.Error("Failed to read directory", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Open(*catalogPath)
	if err != nil {
		slog.Error("Failed to open catalog", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		slog.Info("DRY RUN MODE - no writes will be performed")
	}

	slog.Info("Starting rebuild", "directory", *dir, "catalog", *catalogPath)

	var scanned, rebuilt, skipped int

	for _, de := range files {
		if de.IsDir() || !isAudioFile(de.Name()) {
			continue
		}
		scanned++

		stem := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))
		if _, ok := cat.Lookup(stem); ok {
			skipped++
			continue
		}

		info, err := de.Info()
		if err != nil {
			slog.Warn("Skipping unreadable file", "name", de.Name(), "error", err)
			skipped++
			continue
		}

		if !*dryRun {
			err := cat.Record(catalog.Entry{
				ID:          stem,
				Title:       stem,
				OutputPath:  filepath.Join(*dir, de.Name()),
				Status:      catalog.StatusSucceeded,
				Reason:      "rebuilt from output directory",
				ProcessedAt: info.ModTime().UTC(),
			})
			if err != nil {
				slog.Error("Record failed", "name", de.Name(), "error", err)
				os.Exit(1)
			}
		}
		rebuilt++
	}

	slog.Info("Rebuild complete",
		"scanned", scanned,
		"rebuilt", rebuilt,
		"skipped", skipped,
		"dry_run", *dryRun,
	)
}

// isAudioFile matches the extensions the assembler produces, which are
// not identical to the format names (aac writes .m4a, pcm writes .wav).
func isAudioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, fname := range assembly.FormatNames() {
		f, err := assembly.ParseFormat(fname)
		if err != nil {
			continue
		}
		if ext == f.Extension() {
			return true
		}
	}
	return false
}

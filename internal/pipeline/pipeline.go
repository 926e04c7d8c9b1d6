package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apresai/textcast/internal/assembly"
	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/condense"
	"github.com/apresai/textcast/internal/extract"
	"github.com/apresai/textcast/internal/progress"
	"github.com/apresai/textcast/internal/textsplit"
	"github.com/apresai/textcast/internal/tts"
	"github.com/apresai/textcast/internal/upload"
)

// descriptionLength caps the text snippet sent as episode metadata.
const descriptionLength = 200

// Extractor is the content-extraction dependency of the pipeline.
// *extract.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, item extract.Item) (*extract.Result, error)
}

// RunConfig is the immutable per-run snapshot of pipeline dependencies
// and settings.
type RunConfig struct {
	Catalog   *catalog.Catalog
	Extractor Extractor
	Condenser condense.Condenser // nil disables condensing
	Provider  tts.Provider
	Assembler assembly.Assembler
	Uploader  upload.Uploader // nil disables upload

	OutputDir         string
	Format            assembly.Format
	Voice             string
	CondenseRatio     float64
	StripLength       int // 0 disables truncation before synthesis
	Force             bool
	DeleteAfterUpload bool

	Logger   *slog.Logger
	Progress progress.Callback
}

func (cfg *RunConfig) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

func (cfg *RunConfig) callback() progress.Callback {
	if cfg.Progress != nil {
		return cfg.Progress
	}
	return progress.NopCallback
}

type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Outcome pairs a processed item with its catalog entry and the error
// that stopped it, if any.
type Outcome struct {
	Item  extract.Item
	Entry catalog.Entry
	Err   error
}

// Process runs one item through extract, condense, synthesize,
// assemble and record. Blocked content is a terminal non-error
// outcome recorded before any condense or synthesis vendor is called.
// Catalog write failures are returned as-is and are fatal to the run.
func Process(ctx context.Context, item extract.Item, cfg RunConfig) (catalog.Entry, error) {
	log := cfg.logger().With("item", item.ID)
	emit := cfg.callback()
	state := newItemState()
	start := time.Now()

	var prior *catalog.Entry
	if existing, ok := cfg.Catalog.Lookup(item.ID); ok {
		if !cfg.Force {
			log.Info("skipping: already cataloged",
				"status", existing.Status, "output", existing.OutputPath, "reason", existing.Reason)
			emit(progress.Event{
				Stage:   progress.StageSkipped,
				Message: fmt.Sprintf("Skipping %s (%s)", item.ID, existing.Status),
				ItemID:  item.ID,
			})
			return existing, nil
		}
		prior = &existing
	}

	// Stage 1: extract
	emit(progress.NewEvent(progress.StageExtract, "Extracting content...", 0.05, start))
	res, err := cfg.Extractor.Extract(ctx, item)
	if err != nil {
		// A bot challenge is a classification, not a failure, but it
		// still ends the item here: nothing past this point may reach
		// a paid vendor.
		var blockErr *extract.BlockedError
		if errors.As(err, &blockErr) {
			if serr := state.advance(StateExtracted); serr != nil {
				return recordFailure(cfg, log, item, blockErr.Title, "extract", "state machine", serr)
			}
			if serr := state.advance(StateBlocked); serr != nil {
				return recordFailure(cfg, log, item, blockErr.Title, "extract", "state machine", serr)
			}
			log.Warn("content blocked; skipping paid processing", "reason", blockErr.Reason)
			entry := catalog.Entry{
				ID:        item.ID,
				SourceURL: blockErr.URL,
				Title:     blockErr.Title,
				Status:    catalog.StatusBlocked,
				Reason:    blockErr.Reason,
			}
			if rerr := cfg.Catalog.Record(entry); rerr != nil {
				return entry, rerr
			}
			emit(progress.Event{
				Stage:   progress.StageBlocked,
				Message: fmt.Sprintf("Blocked: %s (%s)", blockErr.Title, blockErr.Reason),
				ItemID:  item.ID,
			})
			return entry, nil
		}
		return recordFailure(cfg, log, item, "", "extract", "failed to extract content", err)
	}
	if err := state.advance(StateExtracted); err != nil {
		return recordFailure(cfg, log, item, "", "extract", "state machine", err)
	}
	log.Info("extracted", "title", res.Title, "words", res.WordCount)

	// Stage 2: condense
	text := res.Text
	ratio := cfg.CondenseRatio
	if cfg.Condenser == nil || ratio == 0 {
		ratio = 1
	}
	if cfg.Condenser != nil && ratio != 1 {
		emit(progress.NewEvent(progress.StageCondense, "Condensing text...", 0.2, start))
	}
	text, err = condense.Run(ctx, cfg.Condenser, text, ratio)
	if err != nil {
		return recordFailure(cfg, log, item, res.Title, "condense", "failed to condense text", err)
	}
	if err := state.advance(StateCondensed); err != nil {
		return recordFailure(cfg, log, item, res.Title, "condense", "state machine", err)
	}

	// Stage 3: strip
	if cfg.StripLength > 0 {
		text = textsplit.Truncate(text, cfg.StripLength)
		log.Debug("stripped text", "chars", cfg.StripLength)
	}

	// Stage 4: synthesize
	emit(progress.NewEvent(progress.StageSynthesize, "Synthesizing audio...", 0.4, start))
	segments, err := tts.Synthesize(ctx, cfg.Provider, text, cfg.Voice)
	if err != nil {
		return recordFailure(cfg, log, item, res.Title, "synthesize", "failed to synthesize audio", err)
	}
	if err := state.advance(StateSynthesized); err != nil {
		return recordFailure(cfg, log, item, res.Title, "synthesize", "state machine", err)
	}
	log.Info("synthesized", "segments", len(segments))

	// Stage 5: assemble. Reprocessing under force reuses the previous
	// output path instead of claiming a suffixed sibling.
	emit(progress.NewEvent(progress.StageAssemble, "Assembling audio...", 0.8, start))
	var outputPath string
	if prior != nil && prior.OutputPath != "" {
		outputPath = prior.OutputPath
	} else {
		outputPath, err = claimOutputPath(cfg.OutputDir, res.Title, cfg.Format)
		if err != nil {
			return recordFailure(cfg, log, item, res.Title, "assemble", "failed to claim output file", err)
		}
	}
	if err := cfg.Assembler.Assemble(ctx, segments, outputPath, cfg.Format); err != nil {
		if prior == nil {
			os.Remove(outputPath)
		}
		return recordFailure(cfg, log, item, res.Title, "assemble", "failed to assemble audio", err)
	}
	if err := state.advance(StateAssembled); err != nil {
		return recordFailure(cfg, log, item, res.Title, "assemble", "state machine", err)
	}

	// Stage 6: record
	entry := catalog.Entry{
		ID:         item.ID,
		SourceURL:  res.SourceURL,
		Title:      res.Title,
		OutputPath: outputPath,
		Status:     catalog.StatusSucceeded,
	}
	if err := cfg.Catalog.Record(entry); err != nil {
		return entry, err
	}
	if err := state.advance(StateRecorded); err != nil {
		return entry, &PipelineError{Stage: "record", Message: "state machine", Err: err}
	}
	elapsed := time.Since(start).Round(time.Millisecond)
	if !item.DiscoveredAt.IsZero() {
		// In serve mode discovery-to-done also covers debounce and
		// queue wait, which processing time alone hides.
		elapsed = time.Since(item.DiscoveredAt).Round(time.Millisecond)
	}
	log.Info("recorded", "output", outputPath, "took", elapsed)

	// Stage 7: upload, best-effort. Failure never demotes the entry.
	if cfg.Uploader != nil {
		emit(progress.NewEvent(progress.StageUpload, "Uploading audio...", 0.95, start))
		meta := upload.Meta{
			Title:       res.Title,
			SourceURL:   res.SourceURL,
			Author:      authorFrom(res.SourceURL),
			Description: textsplit.Truncate(text, descriptionLength),
		}
		if ref, upErr := cfg.Uploader.Upload(ctx, outputPath, meta); upErr != nil {
			log.Warn("upload failed; local file retained", "target", cfg.Uploader.Name(), "error", upErr)
		} else {
			log.Info("uploaded", "target", cfg.Uploader.Name(), "ref", ref)
			if cfg.DeleteAfterUpload {
				if rmErr := os.Remove(outputPath); rmErr != nil {
					log.Warn("could not delete local file after upload", "error", rmErr)
				}
			}
		}
	}

	completion := progress.NewEvent(progress.StageComplete, fmt.Sprintf("Processed %q", res.Title), 1, start)
	completion.ItemID = item.ID
	completion.OutputFile = outputPath
	if info, statErr := os.Stat(outputPath); statErr == nil {
		completion.SizeMB = float64(info.Size()) / (1024 * 1024)
		completion.Duration = assembly.ProbeDuration(ctx, outputPath)
	}
	emit(completion)

	return entry, nil
}

// ProcessBatch runs items strictly in order. Per-item failures are
// isolated; only context cancellation and catalog write failures stop
// the batch early. Duplicate IDs within the batch reuse the first
// occurrence's outcome.
func ProcessBatch(ctx context.Context, items []extract.Item, cfg RunConfig) []Outcome {
	// Under the watch service many batches share one log stream; the
	// run ID tells their lines apart.
	log := cfg.logger().With("run", newRunID())
	log.Info("starting batch", "items", len(items))
	outcomes := make([]Outcome, 0, len(items))
	seen := make(map[string]int)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", "processed", len(outcomes), "total", len(items))
			break
		}

		if first, dup := seen[item.ID]; dup {
			log.Info("duplicate item in batch; skipping", "id", item.ID)
			outcomes = append(outcomes, Outcome{Item: item, Entry: outcomes[first].Entry, Err: outcomes[first].Err})
			continue
		}
		seen[item.ID] = len(outcomes)

		itemCfg := cfg
		itemCfg.Logger = log
		itemCfg.Progress = batchCallback(cfg.callback(), i+1, len(items))

		entry, err := processSafely(ctx, item, itemCfg)
		outcomes = append(outcomes, Outcome{Item: item, Entry: entry, Err: err})
		if err != nil {
			log.Error("item failed", "id", item.ID, "error", err)
		}

		var catErr *catalog.CatalogError
		if errors.As(err, &catErr) {
			log.Error("catalog write failed; aborting batch", "error", err)
			break
		}
	}
	log.Info("batch finished", "processed", len(outcomes), "items", len(items))
	return outcomes
}

func newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// processSafely converts a panic inside Process into a failed outcome
// so one item cannot take down the batch or the watch service.
func processSafely(ctx context.Context, item extract.Item, cfg RunConfig) (entry catalog.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PipelineError{Stage: "internal", Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return Process(ctx, item, cfg)
}

func batchCallback(inner progress.Callback, item, total int) progress.Callback {
	return func(e progress.Event) {
		e.Item = item
		e.ItemTotal = total
		inner(e)
	}
}

// recordFailure catalogs the item as failed and returns the stage
// error. A catalog write failure outranks the stage failure because
// without a durable ledger the dedup guarantees are gone.
func recordFailure(cfg RunConfig, log *slog.Logger, item extract.Item, title, stage, message string, cause error) (catalog.Entry, error) {
	perr := &PipelineError{Stage: stage, Message: message, Err: cause}
	log.Error("stage failed", "stage", stage, "error", cause)

	sourceURL := ""
	if item.Kind == extract.KindURL {
		sourceURL = item.Source
	}
	entry := catalog.Entry{
		ID:        item.ID,
		SourceURL: sourceURL,
		Title:     title,
		Status:    catalog.StatusFailed,
		Reason:    perr.Error(),
	}
	if recErr := cfg.Catalog.Record(entry); recErr != nil {
		return entry, recErr
	}

	cfg.callback()(progress.Event{
		Stage:   progress.Stage(stage),
		Message: fmt.Sprintf("Failed: %s", item.ID),
		ItemID:  item.ID,
		Error:   perr,
	})
	return entry, perr
}

// claimOutputPath reserves a collision-free output file under dir via
// O_EXCL. Distinct items sharing a title get -2, -3, ... suffixes.
func claimOutputPath(dir, title string, format assembly.Format) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	stem := extract.SanitizeTitle(title)
	ext := format.Extension()
	for n := 1; n <= 100; n++ {
		name := stem + ext
		if n > 1 {
			name = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("claim output file: %w", err)
		}
	}
	return "", fmt.Errorf("no free filename for %q after 100 attempts", stem)
}

func authorFrom(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

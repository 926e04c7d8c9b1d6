package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/apresai/textcast/internal/assembly"
	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/condense"
	"github.com/apresai/textcast/internal/extract"
	"github.com/apresai/textcast/internal/observability"
	"github.com/apresai/textcast/internal/pipeline"
	"github.com/apresai/textcast/internal/progress"
	"github.com/apresai/textcast/internal/tts"
	"github.com/apresai/textcast/internal/upload"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process URLs or documents into audio files",
	RunE:  runProcess,
}

var (
	flagURL         string
	flagFileURLList string
	flagFileText    string
	flagText        string

	flagDirectory   string
	flagAudioFormat string
	flagCatalogPath string

	flagTTSVendor   string
	flagSpeechModel string
	flagVoice       string

	flagTextVendor    string
	flagTextModel     string
	flagCondense      bool
	flagCondenseRatio float64
	flagStrip         int
	flagMinContent    int
	flagBlockPhrases  []string
	flagRenderOff     bool

	flagForce   bool
	flagYes     bool
	flagVerbose bool
	flagLogJSON bool

	flagABSUrl         string
	flagABSLibrary     string
	flagABSFolder      string
	flagABSDeleteLocal bool
	flagPodServiceURL  string
)

func init() {
	f := processCmd.Flags()
	f.StringVarP(&flagURL, "url", "u", "", "Article URL to process (link-roundup pages expand to their outbound links)")
	f.StringVarP(&flagFileURLList, "file-url-list", "f", "", "File with one URL per line (# comments allowed)")
	f.StringVar(&flagFileText, "file-text", "", "Local text or PDF file to process")
	f.StringVarP(&flagText, "text", "t", "", "Literal text to process")

	f.StringVarP(&flagDirectory, "directory", "d", ".", "Output directory for audio files")
	f.StringVarP(&flagAudioFormat, "audio-format", "F", "mp3", "Output audio format: mp3, opus, aac, flac, pcm")
	f.StringVar(&flagCatalogPath, "catalog", "", "Catalog file path (default: <directory>/"+catalog.DefaultFilename+")")

	f.StringVarP(&flagTTSVendor, "tts-vendor", "T", "openai", "TTS vendor: openai, elevenlabs, google, polly, gemini")
	f.StringVar(&flagSpeechModel, "speech-model", "", "Speech model ID (vendor default when empty)")
	f.StringVar(&flagVoice, "voice", "", "Voice ID (vendor default when empty)")

	f.StringVar(&flagTextVendor, "text-vendor", "claude", "Condense vendor: claude, gemini")
	f.StringVar(&flagTextModel, "text-model", "", "Condense model ID (vendor default when empty)")
	f.BoolVar(&flagCondense, "condense", true, "Condense text before synthesis (--condense=false to disable)")
	f.Float64Var(&flagCondenseRatio, "condense-ratio", 0.2, "Target condensed length as a fraction of the original, in (0,1]")
	f.IntVar(&flagStrip, "strip", 0, "Keep only the first N characters before synthesis (0 disables, else 5-2000)")
	f.IntVar(&flagMinContent, "min-content-length", 200, "Minimum extracted text length before a page counts as content")
	f.StringSliceVar(&flagBlockPhrases, "block-phrase", nil, "Extra phrase that marks a page as a bot challenge (repeatable)")
	f.BoolVar(&flagRenderOff, "no-render", false, "Disable the headless-browser fallback for script-heavy pages")

	f.BoolVar(&flagForce, "force", false, "Reprocess items already recorded in the catalog")
	f.BoolVarP(&flagYes, "yes", "y", false, "Process all roundup links without prompting")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging instead of the progress display")
	f.BoolVar(&flagLogJSON, "log-json", false, "Emit JSON log lines")

	f.StringVar(&flagABSUrl, "abs-url", "", "Audiobookshelf server URL for upload")
	f.StringVar(&flagABSLibrary, "abs-library-id", "", "Audiobookshelf library ID")
	f.StringVar(&flagABSFolder, "abs-folder-id", "", "Audiobookshelf folder ID")
	f.BoolVar(&flagABSDeleteLocal, "abs-delete-local", false, "Delete the local file after a confirmed upload")
	f.StringVar(&flagPodServiceURL, "podservice-url", "", "podservice base URL for upload")
}

func runProcess(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := observability.InitLogger(level, flagLogJSON)
	slog.SetDefault(log)

	inputs := 0
	for _, v := range []string{flagURL, flagFileURLList, flagFileText, flagText} {
		if v != "" {
			inputs++
		}
	}
	if inputs != 1 {
		return fmt.Errorf("exactly one of --url, --file-url-list, --file-text or --text is required")
	}

	format, err := assembly.ParseFormat(flagAudioFormat)
	if err != nil {
		return err
	}
	if flagCondense && (flagCondenseRatio <= 0 || flagCondenseRatio > 1) {
		return fmt.Errorf("--condense-ratio %v outside (0,1]", flagCondenseRatio)
	}
	if flagStrip != 0 && (flagStrip < 5 || flagStrip > 2000) {
		return fmt.Errorf("--strip must be 0 or between 5 and 2000, got %d", flagStrip)
	}
	if err := validTTSVendor(flagTTSVendor); err != nil {
		return err
	}
	if err := checkAPIKeys(flagTTSVendor, flagCondense, flagTextVendor); err != nil {
		return err
	}
	if err := assembly.CheckTools(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, err := collectItems(ctx, log)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Info("nothing to process")
		return nil
	}

	cfg, closeDeps, err := buildRunConfig(ctx, runSettings{
		Directory:     flagDirectory,
		CatalogPath:   flagCatalogPath,
		Format:        format,
		TTSVendor:     flagTTSVendor,
		SpeechModel:   flagSpeechModel,
		Voice:         flagVoice,
		Condense:      flagCondense,
		TextVendor:    flagTextVendor,
		TextModel:     flagTextModel,
		CondenseRatio: flagCondenseRatio,
		Strip:         flagStrip,
		MinContent:    flagMinContent,
		BlockPhrases:  flagBlockPhrases,
		Render:        !flagRenderOff,
		Force:         flagForce,
		ABSUrl:        flagABSUrl,
		ABSLibrary:    flagABSLibrary,
		ABSFolder:     flagABSFolder,
		ABSDelete:     flagABSDeleteLocal,
		PodServiceURL: flagPodServiceURL,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	defer closeDeps()

	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stdout)
		defer r.Finish()
		cfg.Progress = r.Handle
	}

	outcomes := pipeline.ProcessBatch(ctx, items, cfg)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d item(s) failed; see the catalog for reasons", failed, len(items))
	}
	return nil
}

// runSettings carries the resolved knobs shared by the process and
// serve commands.
type runSettings struct {
	Directory     string
	CatalogPath   string
	Format        assembly.Format
	TTSVendor     string
	SpeechModel   string
	Voice         string
	Condense      bool
	TextVendor    string
	TextModel     string
	CondenseRatio float64
	Strip         int
	MinContent    int
	BlockPhrases  []string
	Render        bool
	Force         bool
	ABSUrl        string
	ABSLibrary    string
	ABSFolder     string
	ABSDelete     bool
	PodServiceURL string
	Logger        *slog.Logger
}

// buildRunConfig assembles the pipeline dependencies. The returned
// close function releases vendor clients.
func buildRunConfig(ctx context.Context, s runSettings) (pipeline.RunConfig, func(), error) {
	noop := func() {}

	catalogPath := s.CatalogPath
	if catalogPath == "" {
		catalogPath = filepath.Join(s.Directory, catalog.DefaultFilename)
	}
	if err := os.MkdirAll(filepath.Dir(catalogPath), 0755); err != nil {
		return pipeline.RunConfig{}, noop, fmt.Errorf("create catalog directory: %w", err)
	}
	cat, err := catalog.Open(catalogPath)
	if err != nil {
		return pipeline.RunConfig{}, noop, err
	}

	var renderer extract.Renderer
	if s.Render {
		renderer = extract.NewChromeRenderer(0)
	}
	extractor := extract.NewExtractor(renderer, extract.NewBlockDetector(s.MinContent, s.BlockPhrases))

	var condenser condense.Condenser
	ratio := 1.0
	if s.Condense {
		condenser, err = condense.NewCondenser(ctx, s.TextVendor, s.TextModel)
		if err != nil {
			return pipeline.RunConfig{}, noop, err
		}
		ratio = s.CondenseRatio
	}

	provider, err := tts.NewProvider(ctx, s.TTSVendor, s.Voice, s.SpeechModel)
	if err != nil {
		return pipeline.RunConfig{}, noop, err
	}

	uploader, err := buildUploader(s)
	if err != nil {
		provider.Close()
		return pipeline.RunConfig{}, noop, err
	}

	cfg := pipeline.RunConfig{
		Catalog:           cat,
		Extractor:         extractor,
		Condenser:         condenser,
		Provider:          provider,
		Assembler:         assembly.NewFFmpegAssembler(),
		Uploader:          uploader,
		OutputDir:         s.Directory,
		Format:            s.Format,
		Voice:             s.Voice,
		CondenseRatio:     ratio,
		StripLength:       s.Strip,
		Force:             s.Force,
		DeleteAfterUpload: s.ABSDelete,
		Logger:            s.Logger,
	}
	return cfg, func() { provider.Close() }, nil
}

func buildUploader(s runSettings) (upload.Uploader, error) {
	absConfigured := s.ABSUrl != "" || s.ABSLibrary != "" || s.ABSFolder != ""
	if absConfigured && s.PodServiceURL != "" {
		return nil, fmt.Errorf("choose one upload target: audiobookshelf or podservice")
	}
	if absConfigured {
		return upload.NewAudiobookshelf(s.ABSUrl, s.ABSLibrary, s.ABSFolder)
	}
	if s.PodServiceURL != "" {
		return upload.NewPodService(s.PodServiceURL)
	}
	return nil, nil
}

// collectItems resolves the chosen input flag into pipeline items.
func collectItems(ctx context.Context, log *slog.Logger) ([]extract.Item, error) {
	switch {
	case flagURL != "":
		return collectURLItems(ctx, log, flagURL)

	case flagFileURLList != "":
		items, warnings, err := extract.ReadListFile(flagFileURLList)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			log.Warn("skipping url list line", "detail", w)
		}
		return items, nil

	case flagFileText != "":
		item, err := extract.NewFileItem(flagFileText)
		if err != nil {
			return nil, err
		}
		return []extract.Item{item}, nil

	default:
		return []extract.Item{extract.NewTextItem(flagText)}, nil
	}
}

// collectURLItems expands link-roundup pages into their outbound
// article links, prompting for a selection on a TTY.
func collectURLItems(ctx context.Context, log *slog.Logger, rawURL string) ([]extract.Item, error) {
	if !extract.IsAggregator(rawURL) {
		item, err := extract.NewURLItem(rawURL)
		if err != nil {
			return nil, err
		}
		return []extract.Item{item}, nil
	}

	client := &http.Client{Timeout: 30 * time.Second}
	links, err := extract.ExpandAggregator(ctx, client, rawURL)
	if err != nil {
		return nil, fmt.Errorf("expand roundup page: %w", err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("no article links found on %s", rawURL)
	}

	kept, dropped := extract.NewURLFilter().Filter(ctx, links)
	if len(dropped) > 0 {
		log.Info("filtered roundup links", "dropped", len(dropped), "kept", len(kept))
	}

	selected := kept
	switch {
	case flagYes:
		log.Info("processing all roundup links", "count", len(kept))
	case isatty.IsTerminal(os.Stdout.Fd()):
		selected, err = pickLinks(rawURL, kept)
		if err != nil {
			return nil, err
		}
	default:
		log.Info("non-interactive run; processing all roundup links", "count", len(kept))
	}

	items := make([]extract.Item, 0, len(selected))
	for _, link := range selected {
		item, err := extract.NewURLItem(link)
		if err != nil {
			log.Warn("skipping roundup link", "url", link, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

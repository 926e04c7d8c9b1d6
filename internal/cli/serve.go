package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/textcast/internal/assembly"
	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/config"
	"github.com/apresai/textcast/internal/extract"
	"github.com/apresai/textcast/internal/observability"
	"github.com/apresai/textcast/internal/pipeline"
	"github.com/apresai/textcast/internal/watch"
)

var tracer = otel.Tracer("textcast")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch a URL list file and process new entries",
	Long: `Serve watches the configured URL list file and runs the pipeline on
entries that have not yet succeeded. Edits to the list are debounced so
an editor save burst triggers a single scan.`,
	RunE: runServe,
}

var flagConfig string

func init() {
	serveCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Config file path (YAML)")
	serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	log := observability.InitLogger(cfg.Log.SlogLevel(), cfg.Log.Format == "json")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tp, err := observability.InitTracer(ctx, "textcast", Version)
		if err != nil {
			log.Warn("failed to init tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					log.Error("tracer shutdown error", "error", err)
				}
			}()
		}
	}

	if err := checkAPIKeys(cfg.Processing.TTSVendor, cfg.Processing.Condense, cfg.Processing.TextVendor); err != nil {
		return err
	}
	if err := assembly.CheckTools(); err != nil {
		return err
	}

	format, err := assembly.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	runCfg, closeDeps, err := buildRunConfig(ctx, runSettings{
		Directory:     cfg.Output.Directory,
		CatalogPath:   cfg.CatalogPath(),
		Format:        format,
		TTSVendor:     cfg.Processing.TTSVendor,
		SpeechModel:   cfg.Processing.SpeechModel,
		Voice:         cfg.Processing.Voice,
		Condense:      cfg.Processing.Condense,
		TextVendor:    cfg.Processing.TextVendor,
		TextModel:     cfg.Processing.TextModel,
		CondenseRatio: cfg.Processing.CondenseRatio,
		Strip:         cfg.Processing.Strip,
		MinContent:    cfg.Processing.MinContentLength,
		BlockPhrases:  cfg.Processing.BlockPhrases,
		Render:        cfg.Processing.RenderFallback,
		ABSUrl:        cfg.Upload.Audiobookshelf.URL,
		ABSLibrary:    cfg.Upload.Audiobookshelf.LibraryID,
		ABSFolder:     cfg.Upload.Audiobookshelf.FolderID,
		ABSDelete:     cfg.Upload.Audiobookshelf.DeleteLocal,
		PodServiceURL: cfg.Upload.PodService.URL,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	defer closeDeps()

	svc := &watch.Service{
		ListPath: cfg.Watch.ListFile,
		Catalog:  runCfg.Catalog,
		Debounce: cfg.Watch.Debounce.Std(),
		Logger:   log,
		Runner: func(ctx context.Context, items []extract.Item) error {
			ctx, span := tracer.Start(ctx, "pipeline.batch",
				trace.WithAttributes(attribute.Int("batch.size", len(items))),
			)
			defer span.End()

			outcomes := pipeline.ProcessBatch(ctx, items, runCfg)
			for _, o := range outcomes {
				var catErr *catalog.CatalogError
				if errors.As(o.Err, &catErr) {
					return o.Err
				}
			}
			return nil
		},
	}

	log.Info("watching url list", "path", cfg.Watch.ListFile, "output", cfg.Output.Directory)
	return svc.Run(ctx)
}

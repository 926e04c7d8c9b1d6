// Package config loads and validates the YAML service configuration
// used by serve mode. One-shot runs take the same knobs as CLI flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apresai/textcast/internal/assembly"
	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/condense"
	"github.com/apresai/textcast/internal/tts"
)

// Duration accepts "500ms" style values in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all service-mode settings. Secrets never live here;
// API keys and tokens come from the environment.
type Config struct {
	Watch      WatchConfig      `yaml:"watch"`
	Output     OutputConfig     `yaml:"output"`
	Processing ProcessingConfig `yaml:"processing"`
	Upload     UploadConfig     `yaml:"upload"`
	Log        LogConfig        `yaml:"log"`
}

// WatchConfig points the service at the operator-edited URL list.
type WatchConfig struct {
	ListFile string   `yaml:"list_file"`
	Debounce Duration `yaml:"debounce"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"`
	Catalog   string `yaml:"catalog"` // empty means <directory>/<default name>
}

type ProcessingConfig struct {
	Condense         bool     `yaml:"condense"`
	CondenseRatio    float64  `yaml:"condense_ratio"`
	Strip            int      `yaml:"strip"`
	MinContentLength int      `yaml:"min_content_length"`
	BlockPhrases     []string `yaml:"block_phrases"`
	TextVendor       string   `yaml:"text_vendor"`
	TextModel        string   `yaml:"text_model"`
	TTSVendor        string   `yaml:"tts_vendor"`
	SpeechModel      string   `yaml:"speech_model"`
	Voice            string   `yaml:"voice"`
	RenderFallback   bool     `yaml:"render_fallback"`
}

type UploadConfig struct {
	Audiobookshelf AudiobookshelfConfig `yaml:"audiobookshelf"`
	PodService     PodServiceConfig     `yaml:"podservice"`
}

type AudiobookshelfConfig struct {
	URL         string `yaml:"url"`
	LibraryID   string `yaml:"library_id"`
	FolderID    string `yaml:"folder_id"`
	DeleteLocal bool   `yaml:"delete_local"`
}

type PodServiceConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when a key is absent from the
// YAML document.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			ListFile: "~/textcast/urls.txt",
			Debounce: Duration(500 * time.Millisecond),
		},
		Output: OutputConfig{
			Directory: "~/textcast/audio",
			Format:    "mp3",
		},
		Processing: ProcessingConfig{
			Condense:         true,
			CondenseRatio:    0.2,
			MinContentLength: 200,
			TextVendor:       "claude",
			TTSVendor:        "openai",
			RenderFallback:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path, overlays it on the defaults, expands ~ in paths and
// validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.Watch.ListFile = ExpandPath(cfg.Watch.ListFile)
	cfg.Output.Directory = ExpandPath(cfg.Output.Directory)
	cfg.Output.Catalog = ExpandPath(cfg.Output.Catalog)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every knob that would otherwise fail mid-batch.
func (c *Config) Validate() error {
	if c.Watch.ListFile == "" {
		return fmt.Errorf("watch.list_file is required")
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory is required")
	}
	if _, err := assembly.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}

	p := c.Processing
	if p.Condense {
		if p.CondenseRatio <= 0 || p.CondenseRatio > 1 {
			return fmt.Errorf("processing.condense_ratio %v outside (0,1]", p.CondenseRatio)
		}
		if !contains(condense.TextVendors(), p.TextVendor) {
			return fmt.Errorf("processing.text_vendor %q: choose one of %s",
				p.TextVendor, strings.Join(condense.TextVendors(), ", "))
		}
	}
	if p.Strip != 0 && (p.Strip < 5 || p.Strip > 2000) {
		return fmt.Errorf("processing.strip must be 0 or between 5 and 2000, got %d", p.Strip)
	}
	if p.MinContentLength < 0 {
		return fmt.Errorf("processing.min_content_length must not be negative")
	}
	if !contains(tts.Vendors(), p.TTSVendor) {
		return fmt.Errorf("processing.tts_vendor %q: choose one of %s",
			p.TTSVendor, strings.Join(tts.Vendors(), ", "))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: choose one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: choose text or json", c.Log.Format)
	}
	return nil
}

// CatalogPath resolves the ledger location, defaulting to the output
// directory.
func (c *Config) CatalogPath() string {
	if c.Output.Catalog != "" {
		return c.Output.Catalog
	}
	return filepath.Join(c.Output.Directory, catalog.DefaultFilename)
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

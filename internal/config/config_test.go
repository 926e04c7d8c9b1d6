package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textcast.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"watch:",
		"  list_file: /data/urls.txt",
		"output:",
		"  directory: /data/audio",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watch.ListFile != "/data/urls.txt" {
		t.Errorf("list_file = %s", cfg.Watch.ListFile)
	}
	if cfg.Watch.Debounce.Std() != 500*time.Millisecond {
		t.Errorf("debounce = %v, want default 500ms", cfg.Watch.Debounce.Std())
	}
	if cfg.Output.Format != "mp3" {
		t.Errorf("format = %s, want default mp3", cfg.Output.Format)
	}
	if !cfg.Processing.Condense || cfg.Processing.CondenseRatio != 0.2 {
		t.Errorf("condense defaults = %v/%v", cfg.Processing.Condense, cfg.Processing.CondenseRatio)
	}
	if cfg.Processing.TTSVendor != "openai" {
		t.Errorf("tts_vendor = %s", cfg.Processing.TTSVendor)
	}
	if !cfg.Processing.RenderFallback {
		t.Error("render_fallback default should be true")
	}
	if want := filepath.Join("/data/audio", ".textcast-catalog.json"); cfg.CatalogPath() != want {
		t.Errorf("catalog path = %s, want %s", cfg.CatalogPath(), want)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"watch:",
		"  list_file: /data/urls.txt",
		"  debounce: 2s",
		"output:",
		"  directory: /data/audio",
		"  format: opus",
		"  catalog: /var/lib/textcast/catalog.json",
		"processing:",
		"  condense: false",
		"  tts_vendor: polly",
		"  voice: Ruth",
		"  strip: 800",
		"  block_phrases:",
		"    - subscribe to continue reading",
		"upload:",
		"  audiobookshelf:",
		"    url: https://abs.local",
		"    library_id: lib1",
		"    folder_id: fold1",
		"    delete_local: true",
		"log:",
		"  level: debug",
		"  format: json",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watch.Debounce.Std() != 2*time.Second {
		t.Errorf("debounce = %v", cfg.Watch.Debounce.Std())
	}
	if cfg.Processing.Condense {
		t.Error("condense: false was ignored")
	}
	if cfg.Processing.TTSVendor != "polly" || cfg.Processing.Voice != "Ruth" {
		t.Errorf("tts = %s/%s", cfg.Processing.TTSVendor, cfg.Processing.Voice)
	}
	if cfg.Processing.Strip != 800 {
		t.Errorf("strip = %d", cfg.Processing.Strip)
	}
	if len(cfg.Processing.BlockPhrases) != 1 || cfg.Processing.BlockPhrases[0] != "subscribe to continue reading" {
		t.Errorf("block_phrases = %v", cfg.Processing.BlockPhrases)
	}
	if cfg.CatalogPath() != "/var/lib/textcast/catalog.json" {
		t.Errorf("catalog path = %s", cfg.CatalogPath())
	}
	if !cfg.Upload.Audiobookshelf.DeleteLocal {
		t.Error("delete_local not read")
	}
	if cfg.Log.SlogLevel().String() != "DEBUG" {
		t.Errorf("slog level = %s", cfg.Log.SlogLevel())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bad ratio",
			body: "watch: {list_file: /u}\noutput: {directory: /a}\nprocessing: {condense_ratio: 1.5}",
			want: "condense_ratio",
		},
		{
			name: "bad strip",
			body: "watch: {list_file: /u}\noutput: {directory: /a}\nprocessing: {strip: 3}",
			want: "strip",
		},
		{
			name: "bad format",
			body: "watch: {list_file: /u}\noutput: {directory: /a, format: ogg}",
			want: "format",
		},
		{
			name: "bad tts vendor",
			body: "watch: {list_file: /u}\noutput: {directory: /a}\nprocessing: {tts_vendor: kokoro}",
			want: "tts_vendor",
		},
		{
			name: "bad text vendor",
			body: "watch: {list_file: /u}\noutput: {directory: /a}\nprocessing: {text_vendor: gpt9}",
			want: "text_vendor",
		},
		{
			name: "bad debounce",
			body: "watch: {list_file: /u, debounce: nonsense}\noutput: {directory: /a}",
			want: "duration",
		},
		{
			name: "bad log level",
			body: "watch: {list_file: /u}\noutput: {directory: /a}\nlog: {level: chatty}",
			want: "log.level",
		},
		{
			name: "missing list file",
			body: "watch: {list_file: \"\"}\noutput: {directory: /a}",
			want: "list_file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandPath("~/textcast/urls.txt"); got != filepath.Join(home, "textcast", "urls.txt") {
		t.Errorf("ExpandPath = %s", got)
	}
	if got := ExpandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("absolute path changed: %s", got)
	}
	if got := ExpandPath("relative/path"); got != "relative/path" {
		t.Errorf("relative path changed: %s", got)
	}
}

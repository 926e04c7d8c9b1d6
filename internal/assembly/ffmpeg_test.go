package assembly

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apresai/textcast/internal/tts"
)

func mp3Segment(index int) tts.Segment {
	return tts.Segment{Index: index, Audio: tts.AudioResult{Data: []byte("audio"), Format: tts.FormatMP3}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "mp3", want: FormatMP3},
		{input: "MP3", want: FormatMP3},
		{input: " opus ", want: FormatOpus},
		{input: "aac", want: FormatAAC},
		{input: "flac", want: FormatFLAC},
		{input: "pcm", want: FormatPCM},
		{input: "ogg", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestFormatExtension(t *testing.T) {
	tests := map[Format]string{
		FormatMP3:  ".mp3",
		FormatOpus: ".opus",
		FormatAAC:  ".m4a",
		FormatFLAC: ".flac",
		FormatPCM:  ".wav",
	}
	for f, want := range tests {
		if got := f.Extension(); got != want {
			t.Errorf("%s.Extension() = %q, want %q", f, got, want)
		}
	}
}

func TestValidateSegments(t *testing.T) {
	valid := []tts.Segment{mp3Segment(0), mp3Segment(1), mp3Segment(2)}
	format, err := validateSegments(valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != tts.FormatMP3 {
		t.Errorf("expected mp3 source format, got %s", format)
	}

	tests := []struct {
		name     string
		segments []tts.Segment
	}{
		{name: "empty list", segments: nil},
		{name: "index gap", segments: []tts.Segment{mp3Segment(0), mp3Segment(2)}},
		{name: "does not start at zero", segments: []tts.Segment{mp3Segment(1)}},
		{name: "empty payload", segments: []tts.Segment{
			{Index: 0, Audio: tts.AudioResult{Format: tts.FormatMP3}},
		}},
		{name: "mixed formats", segments: []tts.Segment{
			mp3Segment(0),
			{Index: 1, Audio: tts.AudioResult{Data: []byte("raw"), Format: tts.FormatPCM}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateSegments(tt.segments)
			var asmErr *AssemblyError
			if !errors.As(err, &asmErr) {
				t.Fatalf("expected AssemblyError, got %v", err)
			}
		})
	}
}

func TestOutputArgsStreamCopy(t *testing.T) {
	args := outputArgs(tts.FormatMP3, FormatMP3, "out.mp3")
	want := []string{"-c", "copy", "-y", "out.mp3"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("mp3->mp3 args = %v, want %v", args, want)
	}

	args = outputArgs(tts.FormatWAV, FormatPCM, "out.wav")
	if args[0] != "-c" || args[1] != "copy" {
		t.Errorf("wav->pcm should stream copy, got %v", args)
	}
}

func TestOutputArgsTranscode(t *testing.T) {
	joined := strings.Join(outputArgs(tts.FormatMP3, FormatOpus, "out.opus"), " ")
	if !strings.Contains(joined, "-c:a libopus") {
		t.Errorf("opus target must use libopus, got %s", joined)
	}
	if !strings.Contains(joined, "-ar 48000") {
		t.Errorf("opus target must use 48 kHz, got %s", joined)
	}

	joined = strings.Join(outputArgs(tts.FormatPCM, FormatMP3, "out.mp3"), " ")
	if !strings.Contains(joined, "-c:a libmp3lame") {
		t.Errorf("mp3 target must use libmp3lame, got %s", joined)
	}
	if !strings.Contains(joined, "-q:a "+AudioQuality) {
		t.Errorf("mp3 target must carry LAME quality, got %s", joined)
	}
	if !strings.Contains(joined, "-ar "+AudioSampleRate) {
		t.Errorf("mp3 target must resample to %s, got %s", AudioSampleRate, joined)
	}

	joined = strings.Join(outputArgs(tts.FormatPCM, FormatFLAC, "out.flac"), " ")
	if strings.Contains(joined, "-b:a") {
		t.Errorf("flac target must not carry a bitrate, got %s", joined)
	}
}

func TestPCMInputArgs(t *testing.T) {
	joined := strings.Join(pcmInputArgs("combined.raw"), " ")
	if joined != "-f s16le -ar 24000 -ac 1 -i combined.raw" {
		t.Errorf("unexpected PCM input args: %s", joined)
	}
}

func TestAssembleRejectsInvalidSegments(t *testing.T) {
	a := NewFFmpegAssembler()
	out := filepath.Join(t.TempDir(), "out.mp3")

	err := a.Assemble(context.Background(), nil, out, FormatMP3)
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("expected AssemblyError for empty segments, got %v", err)
	}

	err = a.Assemble(context.Background(), []tts.Segment{mp3Segment(0)}, out, Format("ogg"))
	if !errors.As(err, &asmErr) {
		t.Fatalf("expected AssemblyError for bad target format, got %v", err)
	}
}

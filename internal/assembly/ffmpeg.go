package assembly

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/apresai/textcast/internal/tts"
)

// Audio quality constants for consistent output across all FFmpeg operations.
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
	AudioQuality    = "0" // LAME quality (0 = best)
	AudioResampler  = "aresample=resampler=soxr"

	// Vendor PCM streams arrive as 24 kHz 16-bit mono.
	pcmInputRate = "24000"
)

// AssemblyError reports a failed assembly step.
type AssemblyError struct {
	Message string
	Err     error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assembly: %s: %v", e.Message, e.Err)
	}
	return "assembly: " + e.Message
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

type Assembler interface {
	Assemble(ctx context.Context, segments []tts.Segment, outputPath string, target Format) error
}

type FFmpegAssembler struct{}

func NewFFmpegAssembler() *FFmpegAssembler {
	return &FFmpegAssembler{}
}

// Assemble joins ordered synthesis segments into one audio file at
// outputPath. Segments are concatenated back to back with no inserted
// silence, in a single FFmpeg invocation: stream copy when the source
// already matches the target container, otherwise one transcode.
func (a *FFmpegAssembler) Assemble(ctx context.Context, segments []tts.Segment, outputPath string, target Format) error {
	srcFormat, err := validateSegments(segments)
	if err != nil {
		return err
	}
	if target.codec() == "" {
		return &AssemblyError{Message: fmt.Sprintf("unsupported target format %q", target)}
	}

	tmpDir, err := os.MkdirTemp("", "textcast-assembly-*")
	if err != nil {
		return &AssemblyError{Message: "create temp dir", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	var args []string
	switch srcFormat {
	case tts.FormatPCM:
		// Raw PCM is headerless, so the segments can be joined by
		// byte concatenation before the one FFmpeg pass.
		rawPath := filepath.Join(tmpDir, "combined.raw")
		if err := writeCombinedRaw(segments, rawPath); err != nil {
			return &AssemblyError{Message: "write combined PCM", Err: err}
		}
		args = pcmInputArgs(rawPath)
	default:
		listPath, err := writeConcatList(segments, segmentExt(srcFormat), tmpDir)
		if err != nil {
			return &AssemblyError{Message: "build concat list", Err: err}
		}
		args = concatInputArgs(listPath)
	}
	args = append(args, outputArgs(srcFormat, target, outputPath)...)

	if err := runFFmpeg(ctx, args); err != nil {
		return &AssemblyError{Message: "ffmpeg concat", Err: err}
	}

	return verifyOutput(outputPath)
}

func validateSegments(segments []tts.Segment) (tts.AudioFormat, error) {
	if len(segments) == 0 {
		return "", &AssemblyError{Message: "no audio segments to assemble"}
	}
	format := segments[0].Audio.Format
	for i, seg := range segments {
		if seg.Index != i {
			return "", &AssemblyError{Message: fmt.Sprintf("segment at position %d has index %d, want %d", i, seg.Index, i)}
		}
		if len(seg.Audio.Data) == 0 {
			return "", &AssemblyError{Message: fmt.Sprintf("segment %d has no audio data", i)}
		}
		if seg.Audio.Format != format {
			return "", &AssemblyError{Message: fmt.Sprintf("segment %d format %s differs from %s", i, seg.Audio.Format, format)}
		}
	}
	return format, nil
}

func segmentExt(format tts.AudioFormat) string {
	if format == tts.FormatWAV {
		return ".wav"
	}
	return ".mp3"
}

func writeCombinedRaw(segments []tts.Segment, path string) error {
	var buf bytes.Buffer
	for _, seg := range segments {
		buf.Write(seg.Audio.Data)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeConcatList(segments []tts.Segment, ext, tmpDir string) (string, error) {
	var lines []string
	for _, seg := range segments {
		segPath := filepath.Join(tmpDir, fmt.Sprintf("segment-%03d%s", seg.Index, ext))
		if err := os.WriteFile(segPath, seg.Audio.Data, 0644); err != nil {
			return "", fmt.Errorf("write segment %d: %w", seg.Index, err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", segPath))
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(listPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}

func pcmInputArgs(rawPath string) []string {
	return []string{
		"-f", "s16le",
		"-ar", pcmInputRate,
		"-ac", "1",
		"-i", rawPath,
	}
}

func concatInputArgs(listPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}
}

func outputArgs(src tts.AudioFormat, target Format, outputPath string) []string {
	if copyEligible(src, target) {
		return []string{"-c", "copy", "-y", outputPath}
	}

	args := []string{
		"-af", AudioResampler,
		"-c:a", target.codec(),
	}
	switch target {
	case FormatMP3:
		args = append(args, "-b:a", AudioBitrate, "-q:a", AudioQuality)
	case FormatOpus, FormatAAC:
		args = append(args, "-b:a", AudioBitrate)
	}
	args = append(args,
		"-ar", target.sampleRate(),
		"-ac", AudioChannels,
		"-y",
		outputPath,
	)
	return args
}

// copyEligible reports whether the source streams can be placed in the
// target container without re-encoding.
func copyEligible(src tts.AudioFormat, target Format) bool {
	switch {
	case src == tts.FormatMP3 && target == FormatMP3:
		return true
	case src == tts.FormatWAV && target == FormatPCM:
		return true
	}
	return false
}

func runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, stderr.String())
	}
	return nil
}

func verifyOutput(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return &AssemblyError{Message: "output file not created", Err: err}
	}
	if info.Size() == 0 {
		return &AssemblyError{Message: "output file is empty"}
	}
	return nil
}

// CheckTools verifies the external audio tools are installed.
func CheckTools() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH (required for audio assembly)", bin)
		}
	}
	return nil
}

// ProbeDuration returns the audio duration as "M:SS" for logging, or
// "" when ffprobe cannot read the file.
func ProbeDuration(ctx context.Context, path string) string {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(out))
	var secs float64
	if _, err := fmt.Sscanf(s, "%f", &secs); err != nil {
		return ""
	}
	mins := int(secs) / 60
	remainSecs := int(secs) % 60
	return fmt.Sprintf("%d:%02d", mins, remainSecs)
}

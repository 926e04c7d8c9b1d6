package assembly

import (
	"fmt"
	"strings"
)

// Format is the target container for assembled audio.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatOpus Format = "opus"
	FormatAAC  Format = "aac"
	FormatFLAC Format = "flac"
	FormatPCM  Format = "pcm" // 16-bit PCM in a WAV container
)

// FormatNames lists the accepted --format values.
func FormatNames() []string {
	return []string{"mp3", "opus", "aac", "flac", "pcm"}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatMP3, FormatOpus, FormatAAC, FormatFLAC, FormatPCM:
		return f, nil
	}
	return "", fmt.Errorf("unsupported audio format %q: choose one of %s", s, strings.Join(FormatNames(), ", "))
}

// Extension returns the output file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMP3:
		return ".mp3"
	case FormatOpus:
		return ".opus"
	case FormatAAC:
		return ".m4a"
	case FormatFLAC:
		return ".flac"
	case FormatPCM:
		return ".wav"
	}
	return ""
}

func (f Format) codec() string {
	switch f {
	case FormatMP3:
		return "libmp3lame"
	case FormatOpus:
		return "libopus"
	case FormatAAC:
		return "aac"
	case FormatFLAC:
		return "flac"
	case FormatPCM:
		return "pcm_s16le"
	}
	return ""
}

// sampleRate returns the encoder output rate. Opus only accepts a
// fixed set of rates, 48 kHz being the canonical one.
func (f Format) sampleRate() string {
	if f == FormatOpus {
		return "48000"
	}
	return AudioSampleRate
}

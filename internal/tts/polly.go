package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

const (
	pollyDefaultVoice = "Matthew"

	// pollyMaxChunkChars stays under the 3000-character generative
	// engine limit with headroom for billing-safe retries.
	pollyMaxChunkChars = 2900

	pollySampleRate = "24000"
)

// pollyVoiceLang maps each supported generative voice to its language
// code. Polly rejects requests where the two disagree.
var pollyVoiceLang = map[string]types.LanguageCode{
	"Matthew":  types.LanguageCodeEnUs,
	"Ruth":     types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Amy":      types.LanguageCodeEnGb,
	"Olivia":   types.LanguageCodeEnAu,
	"Kajal":    types.LanguageCodeEnIn,
}

// PollyProvider implements Provider using Amazon Polly's generative
// engine. Credentials come from the default AWS chain.
type PollyProvider struct {
	voice  string
	client *polly.Client
}

func NewPollyProvider(ctx context.Context, voice string) (*PollyProvider, error) {
	if voice == "" {
		voice = pollyDefaultVoice
	}
	if _, ok := pollyVoiceLang[voice]; !ok {
		return nil, fmt.Errorf("unsupported Polly voice %q", voice)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return &PollyProvider{voice: voice, client: polly.NewFromConfig(awsCfg)}, nil
}

func (p *PollyProvider) Name() string { return "polly" }

func (p *PollyProvider) MaxChunkChars() int { return pollyMaxChunkChars }

func (p *PollyProvider) DefaultVoice() string { return p.voice }

func (p *PollyProvider) Synthesize(ctx context.Context, text, voice string) (AudioResult, error) {
	if voice == "" {
		voice = p.voice
	}
	lang, ok := pollyVoiceLang[voice]
	if !ok {
		return AudioResult{}, fmt.Errorf("unsupported Polly voice %q", voice)
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       types.EngineGenerative,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String(pollySampleRate),
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(voice),
		LanguageCode: lang,
	})
	if err != nil {
		if pollyThrottled(err) {
			return AudioResult{}, &RetryableError{StatusCode: 429, Body: err.Error()}
		}
		return AudioResult{}, fmt.Errorf("Polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read Polly audio stream: %w", err)
	}

	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *PollyProvider) Close() error { return nil }

func pollyThrottled(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "ThrottlingException", "ServiceUnavailableException":
		return true
	}
	return false
}

func pollyAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Matthew", Name: "Matthew", Gender: "male", Description: "Warm US English narrator", Default: true},
		{ID: "Ruth", Name: "Ruth", Gender: "female", Description: "Conversational US English voice"},
		{ID: "Stephen", Name: "Stephen", Gender: "male", Description: "Calm US English voice"},
		{ID: "Danielle", Name: "Danielle", Gender: "female", Description: "Expressive US English voice"},
		{ID: "Amy", Name: "Amy", Gender: "female", Description: "British English voice"},
		{ID: "Olivia", Name: "Olivia", Gender: "female", Description: "Australian English voice"},
		{ID: "Kajal", Name: "Kajal", Gender: "female", Description: "Indian English voice"},
	}
}

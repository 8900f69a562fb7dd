package edge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// StubSynthesizer implements Synthesizer and VoiceLister with deterministic
// output. It is intended for CI and offline runs where the Edge endpoints
// are unavailable.
type StubSynthesizer struct {
	log *slog.Logger
}

// NewStubSynthesizer returns a stub that generates audio bytes proportional
// to the input text length.
func NewStubSynthesizer(logger *slog.Logger) *StubSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubSynthesizer{log: logger}
}

var stubVoices = []Voice{
	{ShortName: "en-US-AriaNeural", Gender: "Female", Locale: "en-US", FriendlyName: "Microsoft Aria Online (Natural) - English (United States)"},
	{ShortName: "en-US-GuyNeural", Gender: "Male", Locale: "en-US", FriendlyName: "Microsoft Guy Online (Natural) - English (United States)"},
	{ShortName: "en-GB-SoniaNeural", Gender: "Female", Locale: "en-GB", FriendlyName: "Microsoft Sonia Online (Natural) - English (United Kingdom)"},
	{ShortName: "zh-CN-XiaoxiaoNeural", Gender: "Female", Locale: "zh-CN", FriendlyName: "Microsoft Xiaoxiao Online (Natural) - Chinese (Mainland)"},
}

// ListVoices returns a small fixed catalog.
func (s *StubSynthesizer) ListVoices(_ context.Context) ([]Voice, error) {
	out := make([]Voice, len(stubVoices))
	copy(out, stubVoices)
	return out, nil
}

// Synthesize returns a deterministic pseudo-MP3 payload: an ID3 marker
// followed by len(text)*48 zero bytes.
func (s *StubSynthesizer) Synthesize(_ context.Context, req Request) ([]byte, error) {
	if req.Voice == "" {
		return nil, fmt.Errorf("edge: voice is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("edge: text is required")
	}

	audio := make([]byte, 3+len(req.Text)*48)
	copy(audio, "ID3")

	s.log.Info("stub synthesis",
		"text_length", len(req.Text),
		"voice", req.Voice,
		"rate", FormatRate(req.Rate),
		"pitch", FormatPitch(req.Pitch),
		"bytes", len(audio),
	)
	return audio, nil
}

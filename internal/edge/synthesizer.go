package edge

import "context"

// Synthesizer abstracts the Edge TTS synthesis call so callers can be tested
// with a stub implementation.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// VoiceLister abstracts the voice catalog fetch.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Package speech turns one piece of text into one audio file on disk.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/edgesay/edgesay/internal/cache"
	"github.com/edgesay/edgesay/internal/edge"
	"github.com/edgesay/edgesay/internal/telemetry"
)

var (
	// ErrEmptyText is returned when the input text is blank or whitespace.
	ErrEmptyText = errors.New("speech: text is empty")

	// ErrNoVoice is returned when no voice was selected.
	ErrNoVoice = errors.New("speech: no voice selected")
)

// Request describes one synthesis into a file. Voice may be a display label
// ("en-US-AriaNeural - en-US (Female)") or a bare engine short name. When
// OutputDir and FileName are both set the file lands there; otherwise a
// uniquely named temp file with a .mp3 suffix is allocated and the caller
// owns its lifecycle.
type Request struct {
	Text      string
	Voice     string
	Rate      int
	Pitch     int
	OutputDir string
	FileName  string
}

// Generator validates requests, invokes the engine and persists the result.
// The audio is fully received before anything is written, so a failed call
// never leaves a partial file behind.
type Generator struct {
	engine  edge.Synthesizer
	cache   *cache.Cache // nil when caching is disabled
	metrics *telemetry.Recorder
	log     *slog.Logger
}

// NewGenerator returns a new Generator instance.
func NewGenerator(engine edge.Synthesizer, logger *slog.Logger, metrics *telemetry.Recorder, audioCache *cache.Cache) *Generator {
	if engine == nil {
		panic("speech: engine must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	return &Generator{
		engine:  engine,
		cache:   audioCache,
		metrics: metrics,
		log:     logger.With("component", "speech"),
	}
}

// Generate synthesizes req and writes exactly one audio file, returning its
// path. Engine failures are wrapped and surfaced without retry.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyText
	}
	voice := edge.ShortNameFromLabel(req.Voice)
	if voice == "" {
		return "", ErrNoVoice
	}

	var (
		audio    []byte
		cacheKey string
		hit      bool
	)
	if g.cache != nil {
		cacheKey = cache.Key(req.Text, voice, req.Rate, req.Pitch)
		audio, hit = g.cache.Get(cacheKey)
	}

	if !hit {
		start := time.Now()
		var err error
		audio, err = g.engine.Synthesize(ctx, edge.Request{
			Text:  req.Text,
			Voice: voice,
			Rate:  req.Rate,
			Pitch: req.Pitch,
		})
		g.metrics.Synthesis(voice, len(audio), time.Since(start), err)
		if err != nil {
			return "", fmt.Errorf("speech: synthesize: %w", err)
		}
		if g.cache != nil {
			if err := g.cache.Put(cacheKey, audio); err != nil {
				g.log.Warn("failed to store audio in cache", "error", err)
			}
		}
	} else {
		g.log.Debug("audio cache hit", "voice", voice, "text_length", len(req.Text))
	}

	path, err := g.destination(req)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("speech: write audio file: %w", err)
	}
	return path, nil
}

// destination resolves the output path, creating the output directory when
// one is requested.
func (g *Generator) destination(req Request) (string, error) {
	if req.OutputDir != "" && req.FileName != "" {
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return "", fmt.Errorf("speech: create output dir: %w", err)
		}
		return filepath.Join(req.OutputDir, req.FileName), nil
	}

	tmp, err := os.CreateTemp("", "edgesay-*.mp3")
	if err != nil {
		return "", fmt.Errorf("speech: allocate temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	return path, nil
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// FileNameForText derives a short .mp3 file name from the text itself:
// special characters removed, first 20 characters, spaces as underscores.
func FileNameForText(text string) string {
	cleaned := nonWord.ReplaceAllString(text, "")
	runes := []rune(cleaned)
	if len(runes) > 20 {
		runes = []rune(strings.TrimSpace(string(runes[:20])))
	} else {
		runes = []rune(strings.TrimSpace(string(runes)))
	}
	name := strings.ReplaceAll(string(runes), " ", "_")
	if name == "" {
		name = "audio"
	}
	return name + ".mp3"
}

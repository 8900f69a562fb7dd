package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Recorder centralises telemetry for the app. It emits structured logs via
// slog and keeps running counters for the info endpoint.
type Recorder struct {
	logger *slog.Logger

	synthOK    atomic.Uint64
	synthErr   atomic.Uint64
	audioBytes atomic.Uint64
}

// NewRecorder constructs a telemetry recorder using the provided slog.Logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// Logger returns the underlying slog.Logger for direct use.
func (r *Recorder) Logger() *slog.Logger {
	return r.logger
}

// Synthesis records the outcome of one synthesis call.
func (r *Recorder) Synthesis(voice string, bytes int, took time.Duration, err error) {
	if err != nil {
		r.synthErr.Add(1)
		r.logger.Warn("synthesis failed", "voice", voice, "took", took.String(), "error", err)
		return
	}
	r.synthOK.Add(1)
	r.audioBytes.Add(uint64(bytes))
	r.logger.Info("synthesis completed", "voice", voice, "bytes", bytes, "took", took.String())
}

// Counters reports totals since startup.
func (r *Recorder) Counters() (ok, failed, audioBytes uint64) {
	return r.synthOK.Load(), r.synthErr.Load(), r.audioBytes.Load()
}

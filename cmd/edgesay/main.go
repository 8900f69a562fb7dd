package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgesay/edgesay/internal/appinfo"
	"github.com/edgesay/edgesay/internal/batch"
	"github.com/edgesay/edgesay/internal/cache"
	"github.com/edgesay/edgesay/internal/config"
	"github.com/edgesay/edgesay/internal/edge"
	"github.com/edgesay/edgesay/internal/server"
	"github.com/edgesay/edgesay/internal/speech"
	"github.com/edgesay/edgesay/internal/telemetry"
)

type engine interface {
	edge.Synthesizer
	edge.VoiceLister
}

func main() {
	text := flag.String("text", "", "synthesize a single text into the output directory")
	jsonInput := flag.String("json", "", "batch: inline JSON task list")
	inputFile := flag.String("input", "", "batch: path to a JSON task list file")
	voice := flag.String("voice", "", "voice short name or display label (overrides EDGESAY_VOICE)")
	rate := flag.Int("rate", 0, "rate adjustment in percent, -50..50")
	pitch := flag.Int("pitch", 0, "pitch adjustment in Hz, -20..20")
	outDir := flag.String("out", "", "output directory (overrides EDGESAY_OUTPUT_DIR)")
	listen := flag.String("listen", "", "serve: listen address (overrides EDGESAY_LISTEN_ADDR)")
	listVoices := flag.Bool("list-voices", false, "print the voice catalog and exit")
	serve := flag.Bool("serve", false, "run the HTTP API server")
	stub := flag.Bool("stub", false, "use the deterministic stub engine (no network)")
	flag.Parse()

	// .env is optional; absence is not an error.
	godotenv.Load()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlags(&cfg, *voice, *outDir, *listen, *rate, *pitch, *stub)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting",
		"app", appinfo.Info.Name,
		"version", appinfo.Version(),
		"voice", cfg.Voice,
		"rate", cfg.Rate,
		"pitch", cfg.Pitch,
		"output_dir", cfg.OutputDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var eng engine
	if cfg.UseStubSynthesizer {
		eng = edge.NewStubSynthesizer(logger)
		logger.Info("using STUB engine — audio is deterministic, NOT from the Edge service")
	} else {
		client := edge.NewClient()
		client.SetUserAgent(appinfo.Info.UserAgent())
		eng = client
	}

	var audioCache *cache.Cache
	if cfg.CacheMaxSizeMB > 0 && cfg.CacheDir != "" {
		audioCache, err = cache.New(cfg.CacheDir, int64(cfg.CacheMaxSizeMB)*1024*1024, logger)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without", "error", err)
		} else {
			logger.Info("audio cache initialized", "dir", cfg.CacheDir, "max_size_mb", cfg.CacheMaxSizeMB)
		}
	}

	metrics := telemetry.NewRecorder(logger)
	gen := speech.NewGenerator(eng, logger, metrics, audioCache)

	switch {
	case *listVoices:
		err = runListVoices(ctx, eng)
	case *text != "":
		err = runSingle(ctx, gen, cfg, *text)
	case *jsonInput != "" || *inputFile != "":
		input := *jsonInput
		if input == "" {
			data, readErr := os.ReadFile(*inputFile)
			if readErr != nil {
				logger.Error("failed to read input file", "path", *inputFile, "error", readErr)
				os.Exit(1)
			}
			input = string(data)
		}
		err = runBatch(ctx, gen, cfg, logger, input)
	case *serve:
		err = runServe(ctx, eng, gen, metrics, cfg, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// applyFlags lets explicitly passed flags override environment configuration.
// flag.Visit only reports flags that were set, so an explicit zero wins over
// the environment while an untouched flag does not.
func applyFlags(cfg *config.Config, voice, out, listen string, rate, pitch int, stub bool) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "voice":
			cfg.Voice = voice
		case "out":
			cfg.OutputDir = out
		case "listen":
			cfg.ListenAddr = listen
		case "rate":
			cfg.Rate = rate
		case "pitch":
			cfg.Pitch = pitch
		case "stub":
			cfg.UseStubSynthesizer = stub
		}
	})
}

func runListVoices(ctx context.Context, lister edge.VoiceLister) error {
	catalog, err := edge.LoadCatalog(ctx, lister)
	if err != nil {
		return err
	}
	for _, label := range catalog.Labels() {
		fmt.Println(label)
	}
	return nil
}

func runSingle(ctx context.Context, gen *speech.Generator, cfg config.Config, text string) error {
	path, err := gen.Generate(ctx, speech.Request{
		Text:      text,
		Voice:     cfg.Voice,
		Rate:      cfg.Rate,
		Pitch:     cfg.Pitch,
		OutputDir: cfg.OutputDir,
		FileName:  speech.FileNameForText(text),
	})
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runBatch(ctx context.Context, gen *speech.Generator, cfg config.Config, logger *slog.Logger, input string) error {
	runner := batch.NewRunner(gen, batch.Defaults{
		Voice:     cfg.Voice,
		Rate:      cfg.Rate,
		Pitch:     cfg.Pitch,
		OutputDir: cfg.OutputDir,
	}, logger)

	printed := 0
	var last batch.Event
	for ev := range runner.Run(ctx, input) {
		if ev.Err != "" {
			return errors.New(ev.Err)
		}
		for ; printed < len(ev.Results); printed++ {
			fmt.Println(ev.Results[printed])
		}
		fmt.Printf("%d/%d\n", ev.Current, ev.Total)
		last = ev
	}

	fmt.Printf("generated %d of %d files in %s\n", len(last.Files), last.Total, cfg.OutputDir)
	return nil
}

func runServe(ctx context.Context, eng engine, gen *speech.Generator, metrics *telemetry.Recorder, cfg config.Config, logger *slog.Logger) error {
	// Bind the port first so readiness checks can connect while the voice
	// catalog loads.
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}
	defer lis.Close()
	logger.Info("listener bound", "addr", lis.Addr().String())

	catalog, err := edge.LoadCatalog(ctx, eng)
	if err != nil {
		return err
	}
	logger.Info("voice catalog loaded", "voices", catalog.Len())

	srv := server.New(cfg, logger, catalog, gen, metrics)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("HTTP server started", "addr", lis.Addr().String())

	select {
	case err := <-serverErr:
		return fmt.Errorf("server terminated: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown requested, stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful stop timed out, closing", "error", err)
	}
	logger.Info("stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

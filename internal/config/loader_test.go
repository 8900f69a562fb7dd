package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Loader{Environment: map[string]string{}}.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, DefaultOutputDir)
	}
	if cfg.Voice != DefaultVoice {
		t.Errorf("Voice = %q, want %q", cfg.Voice, DefaultVoice)
	}
	if cfg.Rate != 0 || cfg.Pitch != 0 {
		t.Errorf("Rate/Pitch = %d/%d, want 0/0", cfg.Rate, cfg.Pitch)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Loader{Environment: map[string]string{
		"EDGESAY_OUTPUT_DIR": "/tmp/clips",
		"EDGESAY_VOICE":      "en-GB-SoniaNeural",
		"EDGESAY_RATE":       "25",
		"EDGESAY_PITCH":      "-10",
		"EDGESAY_LOG_LEVEL":  "debug",
		"EDGESAY_USE_STUB":   "true",
	}}.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "/tmp/clips" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Voice != "en-GB-SoniaNeural" {
		t.Errorf("Voice = %q", cfg.Voice)
	}
	if cfg.Rate != 25 || cfg.Pitch != -10 {
		t.Errorf("Rate/Pitch = %d/%d, want 25/-10", cfg.Rate, cfg.Pitch)
	}
	if !cfg.UseStubSynthesizer {
		t.Error("UseStubSynthesizer = false, want true")
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"rate_too_high", map[string]string{"EDGESAY_RATE": "51"}},
		{"rate_too_low", map[string]string{"EDGESAY_RATE": "-51"}},
		{"pitch_too_high", map[string]string{"EDGESAY_PITCH": "21"}},
		{"pitch_too_low", map[string]string{"EDGESAY_PITCH": "-21"}},
		{"negative_cache", map[string]string{"EDGESAY_CACHE_MAX_SIZE_MB": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Loader{Environment: tt.env}).Load(); err == nil {
				t.Errorf("expected error for %v", tt.env)
			}
		})
	}
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	_, err := Loader{Environment: map[string]string{"EDGESAY_RATE": "fast"}}.Load()
	if err == nil {
		t.Fatal("expected error for non-integer rate")
	}
}

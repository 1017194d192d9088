package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OSCILLA_PLAYBACK_HZ",
		"OSCILLA_FIXED_STEP_MS",
		"OSCILLA_SCRUB_JUMP_PERIODS",
		"OSCILLA_LOG_LEVEL",
		"OSCILLA_LOG_PATH",
		"OSCILLA_LOG_MAX_SIZE_MB",
		"OSCILLA_LOG_MAX_BACKUPS",
		"OSCILLA_LOG_MAX_AGE_DAYS",
		"OSCILLA_LOG_COMPRESS",
		"OSCILLA_SWAP_LOG_VERBOSE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.PlaybackHz != DefaultPlaybackHz {
		t.Fatalf("expected default playback hz %d, got %d", DefaultPlaybackHz, cfg.PlaybackHz)
	}
	if cfg.FixedStepMs != DefaultFixedStepMs {
		t.Fatalf("expected default fixed step %v, got %v", DefaultFixedStepMs, cfg.FixedStepMs)
	}
	if cfg.ScrubJumpPeriods != DefaultScrubJumpPeriods {
		t.Fatalf("expected default scrub jump periods %v, got %v", DefaultScrubJumpPeriods, cfg.ScrubJumpPeriods)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("expected default log path %q, got %q", DefaultLogPath, cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Fatalf("expected default log max size %d, got %d", DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != DefaultLogMaxBackups {
		t.Fatalf("expected default log max backups %d, got %d", DefaultLogMaxBackups, cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != DefaultLogMaxAgeDays {
		t.Fatalf("expected default log max age %d, got %d", DefaultLogMaxAgeDays, cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress != DefaultLogCompress {
		t.Fatalf("expected default log compress %t, got %t", DefaultLogCompress, cfg.Logging.Compress)
	}
	if cfg.SwapLogVerbose != DefaultSwapLogVerbose {
		t.Fatalf("expected default swap log verbosity %t, got %t", DefaultSwapLogVerbose, cfg.SwapLogVerbose)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OSCILLA_PLAYBACK_HZ", "120")
	t.Setenv("OSCILLA_FIXED_STEP_MS", "8.333")
	t.Setenv("OSCILLA_SCRUB_JUMP_PERIODS", "2.5")
	t.Setenv("OSCILLA_LOG_LEVEL", "debug")
	t.Setenv("OSCILLA_LOG_PATH", "/tmp/oscilla-test.log")
	t.Setenv("OSCILLA_LOG_MAX_SIZE_MB", "5")
	t.Setenv("OSCILLA_LOG_MAX_BACKUPS", "2")
	t.Setenv("OSCILLA_LOG_MAX_AGE_DAYS", "1")
	t.Setenv("OSCILLA_LOG_COMPRESS", "false")
	t.Setenv("OSCILLA_SWAP_LOG_VERBOSE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.PlaybackHz != 120 {
		t.Fatalf("expected playback hz 120, got %d", cfg.PlaybackHz)
	}
	if cfg.FixedStepMs != 8.333 {
		t.Fatalf("expected fixed step 8.333, got %v", cfg.FixedStepMs)
	}
	if cfg.ScrubJumpPeriods != 2.5 {
		t.Fatalf("expected scrub jump periods 2.5, got %v", cfg.ScrubJumpPeriods)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Path != "/tmp/oscilla-test.log" {
		t.Fatalf("expected overridden log path, got %q", cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != 5 || cfg.Logging.MaxBackups != 2 || cfg.Logging.MaxAgeDays != 1 {
		t.Fatalf("expected overridden rotation settings, got %+v", cfg.Logging)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected log compression disabled")
	}
	if cfg.SwapLogVerbose {
		t.Fatalf("expected swap log verbosity disabled")
	}
}

func TestLoadAccumulatesValidationErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("OSCILLA_PLAYBACK_HZ", "not-a-number")
	t.Setenv("OSCILLA_FIXED_STEP_MS", "-4")
	t.Setenv("OSCILLA_LOG_COMPRESS", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"OSCILLA_PLAYBACK_HZ", "OSCILLA_FIXED_STEP_MS", "OSCILLA_LOG_COMPRESS"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected error to name %s, got %q", want, msg)
		}
	}
}

func TestLoadRejectsNonPositivePlaybackHz(t *testing.T) {
	clearEnv(t)
	t.Setenv("OSCILLA_PLAYBACK_HZ", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected zero playback hz to be rejected")
	}
}

func TestLoadRejectsNegativeRotationSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("OSCILLA_LOG_MAX_BACKUPS", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected negative max backups to be rejected")
	}
}

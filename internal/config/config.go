package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultPlaybackHz is the host tick rate the demo harness drives the
	// adapter at when no override is supplied.
	DefaultPlaybackHz = 60

	// DefaultFixedStepMs is the approximate frame delta the Time Resolver's
	// debugging-only fixed-step fallback uses when enabled. Never used on
	// the authoritative real-delta path.
	DefaultFixedStepMs = 16.666667

	// DefaultScrubJumpPeriods bounds how many cyclic periods a single
	// tAbs step may advance before the Time Resolver treats it as a scrub
	// jump rather than normal forward playback.
	DefaultScrubJumpPeriods = 1.0

	// DefaultLogLevel controls verbosity for runtime logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "oscilla-runtime.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultSwapLogVerbose controls whether hot-swap results (cells
	// preserved/dropped) are logged at info level (true) or debug level.
	DefaultSwapLogVerbose = true
)

// Config captures the adapter's runtime tunables. Every field governs the
// in-process Runtime Adapter — there is no network surface to configure.
type Config struct {
	PlaybackHz       int
	FixedStepMs      float64
	ScrubJumpPeriods float64
	Logging          LoggingConfig
	SwapLogVerbose   bool
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads adapter configuration from environment variables, applying
// sane defaults and accumulating descriptive errors for invalid
// overrides.
func Load() (*Config, error) {
	cfg := &Config{
		PlaybackHz:       DefaultPlaybackHz,
		FixedStepMs:      DefaultFixedStepMs,
		ScrubJumpPeriods: DefaultScrubJumpPeriods,
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("OSCILLA_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("OSCILLA_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
		SwapLogVerbose: DefaultSwapLogVerbose,
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_PLAYBACK_HZ")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("OSCILLA_PLAYBACK_HZ must be a positive integer, got %q", raw))
		} else {
			cfg.PlaybackHz = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_FIXED_STEP_MS")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("OSCILLA_FIXED_STEP_MS must be a positive number, got %q", raw))
		} else {
			cfg.FixedStepMs = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_SCRUB_JUMP_PERIODS")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("OSCILLA_SCRUB_JUMP_PERIODS must be a positive number, got %q", raw))
		} else {
			cfg.ScrubJumpPeriods = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("OSCILLA_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("OSCILLA_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("OSCILLA_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("OSCILLA_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OSCILLA_SWAP_LOG_VERBOSE")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("OSCILLA_SWAP_LOG_VERBOSE must be a boolean value, got %q", raw))
		} else {
			cfg.SwapLogVerbose = value
		}
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

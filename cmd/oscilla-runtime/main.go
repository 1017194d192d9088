// Command oscilla-runtime is a minimal host harness: it builds one compiled
// demo program (program.go — standing in for the block-graph compiler's
// output), drives the Runtime Adapter at a configured tick rate, and once
// every PlaybackHz ticks logs a render summary plus the debug probe's
// accumulator value.
// After a fixed number of ticks it performs one hot-swap to a program with
// a larger instance count, demonstrating state preservation without losing
// the running clock.
package main

import (
	"time"

	"github.com/brandon-fryslie/oscilla-runtime/internal/adapter"
	"github.com/brandon-fryslie/oscilla-runtime/internal/config"
	"github.com/brandon-fryslie/oscilla-runtime/internal/logging"
	"github.com/brandon-fryslie/oscilla-runtime/internal/timeresolve"
)

const demoPeriodMs = 2000.0

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatal("config load failed", logging.Error(err))
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		logging.L().Fatal("logger init failed", logging.Error(err))
	}
	defer log.Sync()

	regs := demoRegistries()
	prog := buildDemoProgram(demoPeriodMs, 3)
	pool := demoConstPool()

	rt, err := adapter.New(prog, pool, regs, cfg, log)
	if err != nil {
		log.Fatal("adapter init failed", logging.Error(err))
	}

	tickInterval := time.Second / time.Duration(cfg.PlaybackHz)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	start := time.Now()
	tick := 0
	const swapAtTick = 150
	const stopAtTick = 300

	for range ticker.C {
		tick++
		tAbsMs := float64(time.Since(start).Milliseconds())

		frame, err := rt.Signal(tAbsMs, timeresolve.ModePlayback, adapter.ViewportCtx{Width: 1920, Height: 1080, DPR: 1})
		if err != nil {
			log.Error("frame failed", logging.Error(err))
			continue
		}

		if tick%cfg.PlaybackHz == 0 {
			fields := []logging.Field{
				logging.Int("tick", tick),
				logging.Int("passes", len(frame.Passes)),
				logging.Int("instances2d", frame.Perf.Instances2D),
			}
			if summary, ok := rt.Probes().Read("accumulator"); ok {
				fields = append(fields, logging.Float64("accumulator", summary.Numeric))
			}
			log.Info("frame", fields...)
		}

		if tick == swapAtTick {
			newProg := buildDemoProgram(demoPeriodMs, 8)
			if _, err := rt.SwapProgram(newProg, demoConstPool(), regs); err != nil {
				log.Error("swap failed", logging.Error(err))
			}
		}

		if tick >= stopAtTick {
			break
		}
	}
}

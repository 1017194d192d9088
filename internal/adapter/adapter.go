// Package adapter is the runtime's host-facing surface: Signal drives one
// frame and returns the RenderFrame, SwapProgram replaces the compiled
// program out-of-frame, and Event is a stub held for symmetry with host
// event pipelines that are not yet wired in. One struct owns the mutable
// state; the hot path and the control path share a mutex and never
// interleave.
package adapter

import (
	"fmt"
	"sync"

	"github.com/brandon-fryslie/oscilla-runtime/internal/assemble"
	"github.com/brandon-fryslie/oscilla-runtime/internal/config"
	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/executor"
	"github.com/brandon-fryslie/oscilla-runtime/internal/hotswap"
	"github.com/brandon-fryslie/oscilla-runtime/internal/logging"
	"github.com/brandon-fryslie/oscilla-runtime/internal/probe"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/timeresolve"
)

// ViewportCtx carries the host-supplied viewport description attached to
// every Signal call.
type ViewportCtx struct {
	Width  int
	Height int
	DPR    float64
}

// Adapter owns exactly one runtime state at a time and exposes it only
// through Signal and SwapProgram, serialized by mu so a swap can never
// interleave with a frame.
type Adapter struct {
	mu      sync.Mutex
	session *hotswap.Session
	log     *logging.Logger
	cfg     *config.Config
}

// New builds an Adapter around an already-allocated program session. prog
// must have been compiled and regs wired by the caller; the compiler
// itself is an external collaborator.
func New(prog *program.Program, pool *constpool.Pool, regs executor.Registries, cfg *config.Config, log *logging.Logger) (*Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("adapter: config must not be nil")
	}
	if log == nil {
		log = logging.NewTestLogger()
	}
	rt, err := executor.Allocate(prog, pool, regs)
	if err != nil {
		return nil, fmt.Errorf("adapter: allocating initial program: %w", err)
	}
	ex := executor.NewExecutor(prog, regs)
	ex.Resolver.ScrubJumpPeriods = cfg.ScrubJumpPeriods
	return &Adapter{
		session: &hotswap.Session{
			Program:  prog,
			Pool:     pool,
			Executor: ex,
			Runtime:  rt,
		},
		log: log,
		cfg: cfg,
	}, nil
}

// Signal is the adapter's hot path: it executes one frame at tAbsMs and
// returns the assembled RenderFrame. mode selects playback vs. scrub; the
// viewport is accepted for interface symmetry with the host contract but is
// not otherwise consulted (a compiled program's CameraEval step carries its
// own viewport slots, written by the host before calling Signal).
func (a *Adapter) Signal(tAbsMs float64, mode timeresolve.Mode, _ ViewportCtx) (assemble.RenderFrame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	frame, err := a.session.Executor.ExecuteFrame(a.session.Program, a.session.Runtime, tAbsMs, mode)
	if err != nil {
		a.log.Error("frame execution failed",
			logging.Int64("frame_counter", int64(a.session.Runtime.FrameCounter)),
			logging.Error(err))
		return assemble.RenderFrame{}, err
	}
	return frame, nil
}

// SwapProgram replaces the running program between frames. It must never
// interleave with a Signal call, which the shared mutex guarantees even if
// the host violates the documented one-adapter-one-thread contract.
func (a *Adapter) SwapProgram(newProg *program.Program, newPool *constpool.Pool, regs executor.Registries) (hotswap.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := a.log.With(logging.String(logging.SwapTraceField, logging.NewSwapTraceID()))
	newSession, result, err := hotswap.Swap(a.session, newProg, newPool, regs)
	if err != nil {
		log.Error("hot-swap failed, retaining previous program", logging.Error(err))
		return hotswap.Result{}, err
	}
	newSession.Executor.Resolver.ScrubJumpPeriods = a.cfg.ScrubJumpPeriods
	a.session = newSession

	fields := []logging.Field{
		logging.Int("cells_preserved", result.CellsPreserved),
		logging.Int("cells_dropped", result.CellsDropped),
	}
	if a.cfg.SwapLogVerbose {
		log.Info("hot-swap complete", fields...)
	} else {
		log.Debug("hot-swap complete", fields...)
	}
	return result, nil
}

// Event is a stub for symmetry with host event pipelines that are not yet
// part of the core; it accepts any host event and reports nothing.
func (a *Adapter) Event(_ any) ([]any, error) {
	return nil, nil
}

// Probes exposes the current session's debug probe store read-only.
func (a *Adapter) Probes() *probe.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Runtime.Probes
}

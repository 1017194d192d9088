// Package hotswap replaces a running program with a freshly compiled one
// while preserving whatever state the new program's stable keys still
// address, falling back to the previous program untouched if the new one
// fails to allocate. The replacement is built fully before the original is
// retired, so a failed build never leaves the session half-updated.
package hotswap

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/executor"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/statebuffer"
)

// Session bundles a compiled program with its executor and runtime —
// everything a swap replaces as one unit.
type Session struct {
	Program  *program.Program
	Pool     *constpool.Pool
	Executor *executor.Executor
	Runtime  *executor.Runtime
}

// Result reports what a swap did, for host logging/metrics.
type Result struct {
	// CellsPreserved counts old-layout cells whose values were copied into
	// the new layout.
	CellsPreserved int
	// CellsDropped counts old-layout cells whose values did not carry over.
	CellsDropped int
}

// Swap allocates a new Session for (newProg, newPool, regs), copies every
// state cell whose (key, storage, size) still matches from the old
// session's State Buffer, preserves the Time State and frame counters, and
// invalidates the new runtime's Frame Cache so nothing reuses a stale
// memoized value against new expression ids.
//
// If allocation of the new session fails, old is returned unchanged — a
// failed recompile never tears down a running program.
func Swap(old *Session, newProg *program.Program, newPool *constpool.Pool, regs executor.Registries) (*Session, Result, error) {
	newRuntime, err := executor.Allocate(newProg, newPool, regs)
	if err != nil {
		return old, Result{}, fmt.Errorf("hotswap: new program failed to allocate, keeping prior program: %w", err)
	}
	newExec := executor.NewExecutor(newProg, regs)

	var result Result
	if old != nil && old.Runtime != nil {
		for key := range newRuntime.State.Cells() {
			ok, err := statebuffer.CopyCellFrom(newRuntime.State, old.Runtime.State, key)
			if err != nil {
				return old, result, fmt.Errorf("hotswap: copying state cell %+v: %w", key, err)
			}
			if ok {
				result.CellsPreserved++
			}
		}
		result.CellsDropped = len(old.Runtime.State.Cells()) - result.CellsPreserved
		newRuntime.Time = old.Runtime.Time
		newRuntime.FrameCounter = old.Runtime.FrameCounter
		newRuntime.Cache.AdoptFrameID(old.Runtime.Cache.FrameID())
	}

	// The new program's expression ids don't correspond to the old frame
	// cache's stamped entries; force every signal/field to recompute on the
	// next frame rather than risk serving a stale value under a reused id.
	newRuntime.Cache.Invalidate()

	return &Session{Program: newProg, Pool: newPool, Executor: newExec, Runtime: newRuntime}, result, nil
}

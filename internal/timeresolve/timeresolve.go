// Package timeresolve derives (tModel, phase, progress, wrap, scrub) from
// an absolute host clock reading, for finite, cyclic and infinite time
// models.
package timeresolve

import (
	"math"

	"github.com/brandon-fryslie/oscilla-runtime/internal/eventstore"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/valuestore"
)

// Mode is the host-supplied playback hint.
type Mode int

const (
	ModePlayback Mode = iota
	ModeScrub
)

// State is the persistent time state: survives frame boundaries and
// hot-swap.
type State struct {
	PrevTAbsMs  float64
	WrapCount   int
	LastDeltaMs float64
	initialized bool
}

// Result is the pure output of one resolution.
type Result struct {
	TModelMs    float64
	Phase01     *float64
	Progress01  *float64
	WrapFired   bool
	WrapPayload eventstore.Payload
	IsScrub     bool
	DeltaMs     float64
}

// Compute derives a Result from the model, the prior persistent state, the
// new absolute time sample and the host mode hint. It does not mutate
// state; callers apply the update via State.Advance.
//
// Compute uses the real deltaMs unless fixedStepMs > 0, in which case the
// fixed step replaces it after the first sample. Resolver passes a non-zero
// fixedStepMs only when UseFixedStepFallback is set, which is off by
// default.
//
// scrubJumpPeriods is the large-jump threshold as a multiple of the cyclic
// period; values <= 0 mean one period.
func Compute(model program.TimeModel, state State, tAbsMs float64, mode Mode, fixedStepMs, scrubJumpPeriods float64) Result {
	var deltaMs float64
	if state.initialized {
		deltaMs = tAbsMs - state.PrevTAbsMs
	}
	if fixedStepMs > 0 && state.initialized {
		// Debugging affordance only: substitute the fixed step for the
		// real delta. The authoritative path never takes this branch.
		deltaMs = fixedStepMs
	}

	res := Result{DeltaMs: deltaMs}

	// Scrub applies to every model: the mode hint and backward time are
	// model-independent; the large-jump rule only has a period to compare
	// against when the model is cyclic.
	jumpPeriod := 0.0
	if model.Kind == program.TimeCyclic {
		jumpPeriod = model.PeriodMs
	}
	res.IsScrub = isScrub(mode, deltaMs, jumpPeriod, scrubJumpPeriods, state.initialized)

	switch model.Kind {
	case program.TimeFinite:
		res.TModelMs = clamp(tAbsMs, 0, model.DurationMs)
		progress := 0.0
		if model.DurationMs > 0 {
			progress = res.TModelMs / model.DurationMs
		}
		res.Progress01 = &progress

	case program.TimeCyclic:
		period := model.PeriodMs
		var tModel, phase float64
		switch model.Mode {
		case program.CyclicLoop:
			if period > 0 {
				tModel = math.Mod(tAbsMs, period)
				if tModel < 0 {
					tModel += period
				}
				phase = tModel / period
			}
		case program.CyclicPingpong:
			if period > 0 {
				twoP := 2 * period
				m := math.Mod(tAbsMs, twoP)
				if m < 0 {
					m += twoP
				}
				if m <= period {
					tModel = m
				} else {
					tModel = twoP - m
				}
				phase = tModel / period
			}
		case program.CyclicOnce:
			tModel = clamp(tAbsMs, 0, period)
			if period > 0 {
				phase = tModel / period
			}
		}
		res.TModelMs = tModel
		res.Phase01 = &phase

		if state.initialized && period > 0 && !res.IsScrub {
			curFloor := math.Floor(tAbsMs / period)
			prevFloor := math.Floor(state.PrevTAbsMs / period)
			if curFloor > prevFloor {
				res.WrapFired = true
				res.WrapPayload = eventstore.Payload{
					"phase":   phase,
					"count":   state.WrapCount + 1,
					"deltaMs": deltaMs,
				}
			}
		}

	case program.TimeInfinite:
		res.TModelMs = tAbsMs
	}

	return res
}

func isScrub(mode Mode, deltaMs, period, jumpPeriods float64, initialized bool) bool {
	if mode == ModeScrub {
		return true
	}
	if !initialized {
		return false
	}
	if deltaMs < 0 {
		return true
	}
	if jumpPeriods <= 0 {
		jumpPeriods = 1
	}
	if period > 0 && math.Abs(deltaMs) > jumpPeriods*period {
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Advance applies a computed Result to the persistent state: updates
// prevTAbs, lastDeltaMs and (if a wrap fired) wrapCount. Called once per
// frame after Compute.
func (s *State) Advance(tAbsMs float64, res Result) {
	s.PrevTAbsMs = tAbsMs
	s.LastDeltaMs = res.DeltaMs
	s.initialized = true
	if res.WrapFired {
		s.WrapCount++
	}
}

// Resolver wires Compute/Advance into the Value Store and Event Store,
// writing the compiler-designated time slots and triggering the wrap
// event.
type Resolver struct {
	Model       program.TimeModel
	Slots       program.TimeSlots
	WrapSlot    int
	HasWrapSlot bool

	// UseFixedStepFallback, when set, substitutes a fixed per-frame delta
	// for the real one. Debugging affordance only; leave unset.
	UseFixedStepFallback bool
	FixedStepMs          float64

	// ScrubJumpPeriods is the large-jump scrub threshold as a multiple of
	// the cyclic period. Zero means one period.
	ScrubJumpPeriods float64
}

// Resolve writes tModel/phase/progress to their designated slots, triggers
// the wrap event if one fired and is not suppressed, and returns the
// Result for callers that want it (e.g. debug probes).
func (r *Resolver) Resolve(vs *valuestore.Store, es *eventstore.Store, state *State, tAbsMs float64, mode Mode) (Result, error) {
	fixedStep := 0.0
	if r.UseFixedStepFallback {
		fixedStep = r.FixedStepMs
	}
	res := Compute(r.Model, *state, tAbsMs, mode, fixedStep, r.ScrubJumpPeriods)

	if err := vs.Write(r.Slots.TModelMs, valuestore.F64Value(res.TModelMs)); err != nil {
		return res, err
	}
	if r.Slots.Phase01 != nil && res.Phase01 != nil {
		if err := vs.Write(*r.Slots.Phase01, valuestore.F64Value(*res.Phase01)); err != nil {
			return res, err
		}
	}
	if r.Slots.Progress01 != nil && res.Progress01 != nil {
		if err := vs.Write(*r.Slots.Progress01, valuestore.F64Value(*res.Progress01)); err != nil {
			return res, err
		}
	}

	if res.WrapFired && r.HasWrapSlot {
		es.Trigger(r.WrapSlot, res.WrapPayload)
	}

	state.Advance(tAbsMs, res)
	return res, nil
}

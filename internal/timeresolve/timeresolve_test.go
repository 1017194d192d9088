package timeresolve

import (
	"math"
	"testing"

	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
)

// With periodMs=1000 and cyclic-loop, the tAbs sequence 0, 950, 1010,
// 1500, 2100 wraps exactly on frames 3 and 5 with counts 1 and 2 and
// phases ~0.01 / ~0.1.
func TestCyclicWrapCount(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeCyclic, Mode: program.CyclicLoop, PeriodMs: 1000}
	var state State
	samples := []float64{0, 950, 1010, 1500, 2100}
	wantWrap := map[int]bool{3: true, 5: true}
	wantCount := map[int]int{3: 1, 5: 2}
	wantPhase := map[int]float64{3: 0.01, 5: 0.1}

	for i, t_ := range samples {
		frame := i + 1
		res := Compute(model, state, t_, ModePlayback, 0, 0)
		if res.WrapFired != wantWrap[frame] {
			t.Fatalf("frame %d: wrap=%v want %v", frame, res.WrapFired, wantWrap[frame])
		}
		if res.WrapFired {
			count, _ := res.WrapPayload["count"].(int)
			if count != wantCount[frame] {
				t.Fatalf("frame %d: wrap count=%d want %d", frame, count, wantCount[frame])
			}
			phase, _ := res.WrapPayload["phase"].(float64)
			if math.Abs(phase-wantPhase[frame]) > 1e-9 {
				t.Fatalf("frame %d: wrap phase=%v want %v", frame, phase, wantPhase[frame])
			}
		}
		state.Advance(t_, res)
	}
}

// A forward step across a boundary wraps once; a backward jump is
// scrub-suppressed even though tModel/phase still publish normally.
func TestScrubSuppression(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeCyclic, Mode: program.CyclicLoop, PeriodMs: 1000}

	var state State
	res := Compute(model, state, 900, ModePlayback, 0, 0)
	state.Advance(900, res)
	res = Compute(model, state, 1100, ModePlayback, 0, 0)
	if !res.WrapFired {
		t.Fatalf("expected wrap to fire on forward crossing, got none")
	}
	if count, _ := res.WrapPayload["count"].(int); count != 1 {
		t.Fatalf("expected wrap count 1, got %v", count)
	}
	state.Advance(1100, res)

	var state2 State
	res = Compute(model, state2, 1100, ModePlayback, 0, 0)
	state2.Advance(1100, res)
	res = Compute(model, state2, 300, ModePlayback, 0, 0)
	if res.DeltaMs != -800 {
		t.Fatalf("expected deltaMs=-800, got %v", res.DeltaMs)
	}
	if !res.IsScrub {
		t.Fatalf("expected isScrub=true for backward jump")
	}
	if res.WrapFired {
		t.Fatalf("expected wrap suppressed during scrub")
	}
	if res.Phase01 == nil || math.Abs(*res.Phase01-0.3) > 1e-9 {
		t.Fatalf("expected phase=0.3, got %v", res.Phase01)
	}
}

// Degenerate models: zero duration pins progress at 0, zero period pins
// phase at 0.
func TestFiniteZeroDurationAlwaysZeroProgress(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeFinite, DurationMs: 0}
	res := Compute(model, State{}, 500, ModePlayback, 0, 0)
	if res.Progress01 == nil || *res.Progress01 != 0 {
		t.Fatalf("expected progress=0, got %v", res.Progress01)
	}
}

func TestCyclicZeroPeriodAlwaysZeroPhase(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeCyclic, Mode: program.CyclicLoop, PeriodMs: 0}
	res := Compute(model, State{}, 500, ModePlayback, 0, 0)
	if res.Phase01 == nil || *res.Phase01 != 0 {
		t.Fatalf("expected phase=0, got %v", res.Phase01)
	}
}

func TestInfiniteModelPassesTAbsThrough(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeInfinite}
	res := Compute(model, State{}, 12345, ModePlayback, 0, 0)
	if res.TModelMs != 12345 {
		t.Fatalf("expected tModel=tAbs, got %v", res.TModelMs)
	}
}

func TestScrubModeHintSuppressesWrapEvenOnForwardCrossing(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeCyclic, Mode: program.CyclicLoop, PeriodMs: 1000}
	var state State
	res := Compute(model, state, 900, ModePlayback, 0, 0)
	state.Advance(900, res)
	res = Compute(model, state, 1100, ModeScrub, 0, 0)
	if !res.IsScrub || res.WrapFired {
		t.Fatalf("expected scrub hint to suppress wrap, got isScrub=%v wrap=%v", res.IsScrub, res.WrapFired)
	}
}

func TestLargeForwardJumpBeyondPeriodIsScrubSuppressed(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeCyclic, Mode: program.CyclicLoop, PeriodMs: 1000}
	var state State
	res := Compute(model, state, 0, ModePlayback, 0, 0)
	state.Advance(0, res)
	res = Compute(model, state, 2500, ModePlayback, 0, 0)
	if !res.IsScrub {
		t.Fatalf("expected large jump beyond period to be scrub-suppressed")
	}
	if res.WrapFired {
		t.Fatalf("expected no wrap during large-jump scrub")
	}
}

// The large-jump threshold scales with the configured number of periods: a
// jump that scrubs at the default one-period bound plays back normally when
// the bound is widened.
func TestScrubJumpThresholdScalesWithConfiguredPeriods(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeCyclic, Mode: program.CyclicLoop, PeriodMs: 1000}

	var state State
	res := Compute(model, state, 0, ModePlayback, 0, 3)
	state.Advance(0, res)
	res = Compute(model, state, 2500, ModePlayback, 0, 3)
	if res.IsScrub {
		t.Fatalf("expected 2.5-period jump to stay playback under a 3-period bound")
	}
	if !res.WrapFired {
		t.Fatalf("expected wrap to fire on an in-bound forward crossing")
	}

	var state2 State
	res = Compute(model, state2, 0, ModePlayback, 0, 3)
	state2.Advance(0, res)
	res = Compute(model, state2, 3500, ModePlayback, 0, 3)
	if !res.IsScrub || res.WrapFired {
		t.Fatalf("expected 3.5-period jump to scrub under a 3-period bound, got isScrub=%v wrap=%v", res.IsScrub, res.WrapFired)
	}
}

// The scrub hint and backward time flag scrub on non-cyclic models too,
// even though those models have no period for the large-jump rule.
func TestScrubAppliesToNonCyclicModels(t *testing.T) {
	model := program.TimeModel{Kind: program.TimeInfinite}

	res := Compute(model, State{}, 100, ModeScrub, 0, 0)
	if !res.IsScrub {
		t.Fatalf("expected scrub hint to flag scrub for infinite model")
	}

	var state State
	res = Compute(model, state, 500, ModePlayback, 0, 0)
	state.Advance(500, res)
	res = Compute(model, state, 100, ModePlayback, 0, 0)
	if !res.IsScrub {
		t.Fatalf("expected backward time to flag scrub for infinite model")
	}
}

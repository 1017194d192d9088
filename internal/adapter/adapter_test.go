package adapter

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-runtime/internal/config"
	"github.com/brandon-fryslie/oscilla-runtime/internal/executor"
	"github.com/brandon-fryslie/oscilla-runtime/internal/logging"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/timeresolve"
)

const (
	slotTAbs = iota
	slotTModel
	slotAccum
	slotFrame
)

var accumKey = program.StableKey{NodeID: "test.accum", Role: "value"}

func hostProgram() *program.Program {
	return &program.Program{
		TimeModel: program.TimeModel{Kind: program.TimeInfinite},
		TimeSlots: program.TimeSlots{TAbsMs: slotTAbs, TModelMs: slotTModel},
		Slots: []program.SlotMeta{
			{Slot: slotTAbs, Storage: program.StorageF64, Offset: 0},
			{Slot: slotTModel, Storage: program.StorageF64, Offset: 1},
			{Slot: slotAccum, Storage: program.StorageF64, Offset: 2},
			{Slot: slotFrame, Storage: program.StorageObject, Offset: 0},
		},
		StateCells: []program.StateCellMeta{
			{Key: accumKey, Storage: program.StorageF64, Size: 1},
		},
		Output: program.OutputSpec{RenderTreeSlot: slotFrame},
		Schedule: program.Schedule{
			Steps: []program.Step{
				{Kind: program.StepTimeDerive},
				{Kind: program.StepNodeEval, NodeEval: &program.NodeEvalSpec{
					OpCode:      "integrate",
					InputSlots:  []int{slotTModel},
					OutputSlots: []int{slotAccum},
					StateKey:    &accumKey,
				}},
				{Kind: program.StepRenderAssemble, RenderAssemble: &program.AssembleSpec{
					OutputSlot: slotFrame,
				}},
			},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		PlaybackHz:       config.DefaultPlaybackHz,
		FixedStepMs:      config.DefaultFixedStepMs,
		ScrubJumpPeriods: config.DefaultScrubJumpPeriods,
	}
}

func TestSignalProducesVersionedRenderFrame(t *testing.T) {
	regs := executor.Registries{NodeOps: executor.DefaultNodeOps()}
	a, err := New(hostProgram(), nil, regs, testConfig(), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	frame, err := a.Signal(16, timeresolve.ModePlayback, ViewportCtx{Width: 640, Height: 480, DPR: 1})
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	if frame.Version != 1 {
		t.Fatalf("expected render frame version 1, got %d", frame.Version)
	}
}

// TestSwapProgramPreservesStateAcrossFrames drives the whole surface:
// frames accumulate state, a swap to an equivalent program keeps it, and
// subsequent frames keep accumulating from the preserved value.
func TestSwapProgramPreservesStateAcrossFrames(t *testing.T) {
	regs := executor.Registries{NodeOps: executor.DefaultNodeOps()}
	a, err := New(hostProgram(), nil, regs, testConfig(), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	if _, err := a.Signal(0, timeresolve.ModePlayback, ViewportCtx{}); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if _, err := a.Signal(100, timeresolve.ModePlayback, ViewportCtx{}); err != nil {
		t.Fatalf("frame 2: %v", err)
	}
	before, err := a.session.Runtime.State.ReadF64(accumKey, 0)
	if err != nil {
		t.Fatalf("read accum: %v", err)
	}
	if before == 0 {
		t.Fatalf("expected accumulator to advance before swap")
	}

	result, err := a.SwapProgram(hostProgram(), nil, regs)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.CellsPreserved != 1 {
		t.Fatalf("expected 1 preserved cell, got %+v", result)
	}
	after, err := a.session.Runtime.State.ReadF64(accumKey, 0)
	if err != nil || after != before {
		t.Fatalf("expected accumulator preserved across swap, got %v want %v (err %v)", after, before, err)
	}

	if _, err := a.Signal(200, timeresolve.ModePlayback, ViewportCtx{}); err != nil {
		t.Fatalf("frame after swap: %v", err)
	}
	final, _ := a.session.Runtime.State.ReadF64(accumKey, 0)
	if final <= after {
		t.Fatalf("expected accumulation to continue after swap, got %v then %v", after, final)
	}
}

// TestSwapProgramFailureRetainsOldSession checks that when the new program
// fails to allocate, the old session keeps serving frames.
func TestSwapProgramFailureRetainsOldSession(t *testing.T) {
	regs := executor.Registries{NodeOps: executor.DefaultNodeOps()}
	a, err := New(hostProgram(), nil, regs, testConfig(), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	oldSession := a.session

	bad := hostProgram()
	badConst := 99 // out of range for a nil const pool
	bad.StateCells[0].InitialConstID = &badConst
	if _, err := a.SwapProgram(bad, nil, regs); err == nil {
		t.Fatalf("expected swap to fail for unallocatable program")
	}
	if a.session != oldSession {
		t.Fatalf("expected old session retained after failed swap")
	}
	if _, err := a.Signal(50, timeresolve.ModePlayback, ViewportCtx{}); err != nil {
		t.Fatalf("frame after failed swap: %v", err)
	}
}

func TestEventStubReturnsEmpty(t *testing.T) {
	regs := executor.Registries{NodeOps: executor.DefaultNodeOps()}
	a, err := New(hostProgram(), nil, regs, testConfig(), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	out, err := a.Event("host-event")
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty event stub result, got %v err %v", out, err)
	}
}

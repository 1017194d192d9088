package valuestore

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
)

func fixtureSlots() []program.SlotMeta {
	return []program.SlotMeta{
		{Slot: 0, Storage: program.StorageF64, Offset: 0},
		{Slot: 1, Storage: program.StorageF64, Offset: 1},
		{Slot: 2, Storage: program.StorageI32, Offset: 0},
		{Slot: 3, Storage: program.StorageObject, Offset: 0},
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	s := New(fixtureSlots())
	if err := s.Write(0, F64Value(3.5)); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := s.Read(0)
	if err != nil || v.F64 != 3.5 {
		t.Fatalf("read: got %+v err %v", v, err)
	}
}

// A second write to the same slot within one frame is a fatal error, and
// the value from the first write is left unchanged.
func TestDoubleWriteInSameFrameFails(t *testing.T) {
	s := New(fixtureSlots())
	if err := s.Write(0, F64Value(1)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := s.Write(0, F64Value(2)); err == nil {
		t.Fatalf("expected double-write to fail")
	}
	v, _ := s.Read(0)
	if v.F64 != 1 {
		t.Fatalf("value after failed double-write should be unchanged, got %v", v.F64)
	}
}

// ClearFrame resets only the write-tracker; stored values persist so carry
// reads remain valid, and the slot becomes writable again next frame.
func TestClearFrameAllowsRewriteAndPreservesValue(t *testing.T) {
	s := New(fixtureSlots())
	_ = s.Write(1, F64Value(7))
	s.ClearFrame()
	if s.WrittenThisFrame(1) {
		t.Fatalf("write tracker should reset on ClearFrame")
	}
	v, _ := s.Read(1)
	if v.F64 != 7 {
		t.Fatalf("stored value should survive ClearFrame, got %v", v.F64)
	}
	if err := s.Write(1, F64Value(9)); err != nil {
		t.Fatalf("rewrite after clear should succeed: %v", err)
	}
}

func TestReadUnwrittenSlotReturnsZeroValue(t *testing.T) {
	s := New(fixtureSlots())
	v, err := s.Read(0)
	if err != nil || v.F64 != 0 {
		t.Fatalf("unwritten f64 slot should read as zero, got %+v err %v", v, err)
	}
}

func TestReadOrWriteOfUnknownSlotIsFatal(t *testing.T) {
	s := New(fixtureSlots())
	if _, err := s.Read(99); err == nil {
		t.Fatalf("expected fault reading unknown slot")
	}
	if err := s.Write(99, F64Value(1)); err == nil {
		t.Fatalf("expected fault writing unknown slot")
	}
}

func TestWriteStorageClassMismatchIsFatal(t *testing.T) {
	s := New(fixtureSlots())
	if err := s.Write(0, I32Value(1)); err == nil {
		t.Fatalf("expected storage class mismatch fault")
	}
}

// Initial slot values are pre-frame installations, not per-frame writes,
// so a step may still write the same slot once within the first frame.
func TestInstallInitialIsExemptFromSingleWriterTracker(t *testing.T) {
	s := New(fixtureSlots())
	if err := s.InstallInitial(map[int]any{2: int32(5)}); err != nil {
		t.Fatalf("install initial: %v", err)
	}
	if s.WrittenThisFrame(2) {
		t.Fatalf("initial install must not count as a per-frame write")
	}
	v, _ := s.Read(2)
	if v.I32 != 5 {
		t.Fatalf("initial value not installed, got %v", v.I32)
	}
	if err := s.Write(2, I32Value(6)); err != nil {
		t.Fatalf("first per-frame write after initial install should succeed: %v", err)
	}
	v, _ = s.Read(2)
	if v.I32 != 6 {
		t.Fatalf("per-frame write should override initial value, got %v", v.I32)
	}
}

func TestInstallInitialSurvivesClearFrame(t *testing.T) {
	s := New(fixtureSlots())
	_ = s.InstallInitial(map[int]any{3: "batch-descriptor"})
	s.ClearFrame()
	v, _ := s.Read(3)
	if v.Obj != "batch-descriptor" {
		t.Fatalf("initial object value should survive ClearFrame untouched, got %v", v.Obj)
	}
}

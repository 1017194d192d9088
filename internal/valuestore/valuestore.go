// Package valuestore is the per-frame slot storage: one write per slot per
// frame, banked by storage class to avoid boxing numbers.
package valuestore

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
)

// Value is a tagged union over the storage classes a slot may hold. Only
// the field matching Storage is meaningful.
type Value struct {
	Storage program.StorageClass
	F64     float64
	F32     float32
	I32     int32
	U32     uint32
	Obj     any
}

func F64Value(v float64) Value { return Value{Storage: program.StorageF64, F64: v} }
func F32Value(v float32) Value { return Value{Storage: program.StorageF32, F32: v} }
func I32Value(v int32) Value   { return Value{Storage: program.StorageI32, I32: v} }
func U32Value(v uint32) Value  { return Value{Storage: program.StorageU32, U32: v} }
func ObjValue(v any) Value     { return Value{Storage: program.StorageObject, Obj: v} }

// Fault reports a programming error in the compiled program: a malformed
// schedule, not a recoverable runtime condition. These are surfaced, never
// silenced.
type Fault struct {
	Slot    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("value store: slot %d: %s", f.Slot, f.Message)
}

// Store is the Value Store: banked storage keyed by slot, with a
// per-frame write tracker enforcing the single-writer rule (I2).
type Store struct {
	meta map[int]program.SlotMeta

	f64 []float64
	f32 []float32
	i32 []int32
	u32 []uint32
	obj []any

	written map[int]struct{}
}

// New allocates a store sized from the program's slot metadata. Bank
// offsets are taken from the metadata, so the backing slices are sized to
// the largest offset declared for each class.
func New(slots []program.SlotMeta) *Store {
	s := &Store{
		meta:    make(map[int]program.SlotMeta, len(slots)),
		written: make(map[int]struct{}),
	}
	var f64n, f32n, i32n, u32n, objn int
	for _, m := range slots {
		s.meta[m.Slot] = m
		switch m.Storage {
		case program.StorageF64:
			f64n = max(f64n, m.Offset+1)
		case program.StorageF32:
			f32n = max(f32n, m.Offset+1)
		case program.StorageI32:
			i32n = max(i32n, m.Offset+1)
		case program.StorageU32:
			u32n = max(u32n, m.Offset+1)
		case program.StorageObject:
			objn = max(objn, m.Offset+1)
		}
	}
	s.f64 = make([]float64, f64n)
	s.f32 = make([]float32, f32n)
	s.i32 = make([]int32, i32n)
	s.u32 = make([]uint32, u32n)
	s.obj = make([]any, objn)
	return s
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// InstallInitial writes the compiler's initial slot values at program load.
// These are pre-frame installations: they never count against the per-frame
// single-writer tracker and survive every subsequent ClearFrame untouched
// because nothing ever rewrites them unless a step does.
func (s *Store) InstallInitial(values map[int]any) error {
	for slot, raw := range values {
		meta, ok := s.meta[slot]
		if !ok {
			return &Fault{Slot: slot, Message: "initial value for slot absent from metadata"}
		}
		v, err := coerce(meta, raw)
		if err != nil {
			return &Fault{Slot: slot, Message: err.Error()}
		}
		if err := s.storeLocked(meta, v); err != nil {
			return err
		}
	}
	return nil
}

func coerce(meta program.SlotMeta, raw any) (Value, error) {
	switch meta.Storage {
	case program.StorageF64:
		f, ok := raw.(float64)
		if !ok {
			return Value{}, fmt.Errorf("expected float64 initial value")
		}
		return F64Value(f), nil
	case program.StorageF32:
		f, ok := raw.(float32)
		if !ok {
			return Value{}, fmt.Errorf("expected float32 initial value")
		}
		return F32Value(f), nil
	case program.StorageI32:
		i, ok := raw.(int32)
		if !ok {
			return Value{}, fmt.Errorf("expected int32 initial value")
		}
		return I32Value(i), nil
	case program.StorageU32:
		u, ok := raw.(uint32)
		if !ok {
			return Value{}, fmt.Errorf("expected uint32 initial value")
		}
		return U32Value(u), nil
	default:
		return ObjValue(raw), nil
	}
}

// Read returns the slot's current value. Per invariant I3: if the slot was
// never written this frame (or ever), the stored value is whatever is
// already resident in the bank — the initial value installed at load, the
// last carried value from a prior frame, or the zero value of the bank.
func (s *Store) Read(slot int) (Value, error) {
	meta, ok := s.meta[slot]
	if !ok {
		return Value{}, &Fault{Slot: slot, Message: "read of slot absent from metadata"}
	}
	switch meta.Storage {
	case program.StorageF64:
		return F64Value(s.f64[meta.Offset]), nil
	case program.StorageF32:
		return F32Value(s.f32[meta.Offset]), nil
	case program.StorageI32:
		return I32Value(s.i32[meta.Offset]), nil
	case program.StorageU32:
		return U32Value(s.u32[meta.Offset]), nil
	default:
		return ObjValue(s.obj[meta.Offset]), nil
	}
}

// Write installs v into slot, enforcing the single-writer-per-frame rule
// and the storage-class match.
func (s *Store) Write(slot int, v Value) error {
	meta, ok := s.meta[slot]
	if !ok {
		return &Fault{Slot: slot, Message: "write of slot absent from metadata"}
	}
	if meta.Storage != v.Storage {
		return &Fault{Slot: slot, Message: fmt.Sprintf("storage class mismatch: slot is %s, wrote %s", meta.Storage, v.Storage)}
	}
	if _, dup := s.written[slot]; dup {
		return &Fault{Slot: slot, Message: "double write in the same frame"}
	}
	if err := s.storeLocked(meta, v); err != nil {
		return err
	}
	s.written[slot] = struct{}{}
	return nil
}

func (s *Store) storeLocked(meta program.SlotMeta, v Value) error {
	switch meta.Storage {
	case program.StorageF64:
		s.f64[meta.Offset] = v.F64
	case program.StorageF32:
		s.f32[meta.Offset] = v.F32
	case program.StorageI32:
		s.i32[meta.Offset] = v.I32
	case program.StorageU32:
		s.u32[meta.Offset] = v.U32
	case program.StorageObject:
		s.obj[meta.Offset] = v.Obj
	default:
		return &Fault{Slot: meta.Slot, Message: "unknown storage class"}
	}
	return nil
}

// ClearFrame resets only the write-tracker; stored values persist so that
// initial/carry reads remain valid.
func (s *Store) ClearFrame() {
	clear(s.written)
}

// WrittenThisFrame reports whether slot has already been written in the
// current frame, for callers that want to check before writing.
func (s *Store) WrittenThisFrame(slot int) bool {
	_, ok := s.written[slot]
	return ok
}

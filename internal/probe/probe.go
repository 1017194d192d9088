// Package probe is the read-only debug probe side channel: named probes
// map to (slot | expression) ids; a read returns the current cached value
// plus a typed summary. JSON summaries are rendered through
// structpb/protojson rather than a hand-rolled shape.
package probe

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Mode selects how a debugProbe step records values.
type Mode int

const (
	ModeValue Mode = iota
	ModeDiff
	ModeHistogram
)

// SummaryKind discriminates the Summary tagged union.
type SummaryKind int

const (
	SummaryNumeric SummaryKind = iota
	SummaryPhase
	SummaryVector
	SummaryHandle
)

// Summary is the value-plus-description a probe read returns.
type Summary struct {
	Kind    SummaryKind
	Numeric float64
	Phase   float64
	Vector  []float64
	Handle  string
}

// Numeric builds a numeric summary.
func Numeric(v float64) Summary { return Summary{Kind: SummaryNumeric, Numeric: v} }

// Phase builds a phase-in-[0,1] summary.
func Phase(v float64) Summary { return Summary{Kind: SummaryPhase, Phase: v} }

// Vector builds a vector summary.
func Vector(v []float64) Summary {
	return Summary{Kind: SummaryVector, Vector: append([]float64(nil), v...)}
}

// Handle builds a handle-descriptor summary.
func Handle(desc string) Summary { return Summary{Kind: SummaryHandle, Handle: desc} }

type entry struct {
	mode    Mode
	current Summary
	prev    Summary
	hasPrev bool
	buckets map[int]int // histogram mode: bucket index -> count
}

// Store is the Debug Probe store: named probes, recorded by the executor's
// debugProbe steps and read by hosts/tests.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs an empty probe store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Record stores the latest value for a named probe under the given mode.
// For ModeHistogram, value is bucketed into an integer bucket via
// histogramBucket before counting.
func (s *Store) Record(name string, mode Mode, value Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		e = &entry{buckets: make(map[int]int)}
		s.entries[name] = e
	}
	e.mode = mode
	switch mode {
	case ModeValue:
		e.current = value
	case ModeDiff:
		if e.hasPrev {
			e.current = diff(e.prev, value)
		} else {
			e.current = value
		}
		e.prev = value
		e.hasPrev = true
	case ModeHistogram:
		bucket := histogramBucket(value)
		e.buckets[bucket]++
		e.current = value
	}
}

func diff(prev, cur Summary) Summary {
	if prev.Kind != cur.Kind {
		return cur
	}
	switch cur.Kind {
	case SummaryNumeric:
		return Numeric(cur.Numeric - prev.Numeric)
	case SummaryPhase:
		return Phase(cur.Phase - prev.Phase)
	case SummaryVector:
		out := make([]float64, len(cur.Vector))
		for i := range out {
			if i < len(prev.Vector) {
				out[i] = cur.Vector[i] - prev.Vector[i]
			} else {
				out[i] = cur.Vector[i]
			}
		}
		return Vector(out)
	default:
		return cur
	}
}

func histogramBucket(s Summary) int {
	switch s.Kind {
	case SummaryNumeric:
		return int(s.Numeric)
	case SummaryPhase:
		return int(s.Phase * 100)
	default:
		return 0
	}
}

// Read returns the current recorded summary for a named probe.
func (s *Store) Read(name string) (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return Summary{}, false
	}
	return e.current, true
}

// Histogram returns the bucket counts recorded for a histogram-mode probe.
func (s *Store) Histogram(name string) map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return nil
	}
	out := make(map[int]int, len(e.buckets))
	for k, v := range e.buckets {
		out[k] = v
	}
	return out
}

// JSON renders a probe's current summary as protobuf JSON, via structpb —
// useful for host tooling that wants a stable wire representation without
// the core depending on any renderer/editor-specific format.
func (s *Store) JSON(name string) ([]byte, error) {
	summary, ok := s.Read(name)
	if !ok {
		return nil, fmt.Errorf("probe: unknown probe %q", name)
	}
	fields := map[string]any{}
	switch summary.Kind {
	case SummaryNumeric:
		fields["kind"] = "numeric"
		fields["value"] = summary.Numeric
	case SummaryPhase:
		fields["kind"] = "phase"
		fields["value"] = summary.Phase
	case SummaryVector:
		vec := make([]any, len(summary.Vector))
		for i, v := range summary.Vector {
			vec[i] = v
		}
		fields["kind"] = "vector"
		fields["value"] = vec
	case SummaryHandle:
		fields["kind"] = "handle"
		fields["value"] = summary.Handle
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(st)
}

// Package fieldmat turns a lazily describable per-element function D → T
// into an explicit typed buffer of N elements, consulting the Frame
// Cache's buffer map first and building on a miss via either a recipe
// (const, broadcast-of-signal, per-element random, transform, source tag)
// or a lens (ease, slew, quantize, scale, warp, clamp, deadzone, mapRange,
// polarity, broadcast, perElementOffset).
package fieldmat

import (
	"fmt"
	"math"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/framecache"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/signaleval"
	"github.com/brandon-fryslie/oscilla-runtime/internal/statebuffer"
)

// RecipeKind selects how a field node's base per-element value is produced.
type RecipeKind int

const (
	RecipeConst RecipeKind = iota
	RecipeBroadcastSignal
	RecipeRandom
	RecipeTransform
	RecipeSourceTag
)

// LensKind selects a per-frame or per-element transform applied after the
// recipe produces a base value.
type LensKind int

const (
	LensNone LensKind = iota
	LensEase
	LensSlew
	LensQuantize
	LensScale
	LensWarp
	LensClamp
	LensDeadzone
	LensMapRange
	LensPolarity
	LensBroadcast
	LensPerElementOffset
)

// Lens carries the parameters for every lens kind; only the fields
// relevant to Kind are read.
type Lens struct {
	Kind          LensKind
	Ease          signaleval.EaseKind
	SlewKey       program.StableKey // state cell holding {prevValue, prevTimeMs}
	SlewRatePerMs float64
	QuantizeSteps int
	Scale         float64
	WarpPower     float64
	ClampLo       float64
	ClampHi       float64
	DeadzoneAbs   float64
	MapInLo       float64
	MapInHi       float64
	MapOutLo      float64
	MapOutHi      float64
	Polarity      float64
	Offset        float64
}

// Node is a field expression: a recipe producing a base per-element value,
// optionally followed by a lens.
type Node struct {
	ID        int
	Recipe    RecipeKind
	ConstID   int                                          // RecipeConst
	SignalID  float64                                      // RecipeBroadcastSignal: already-evaluated signal value for this frame
	Seed      uint64                                       // RecipeRandom
	SourceTag string                                       // RecipeSourceTag
	Transform func(elementIndex int, base float64) float64 // RecipeTransform
	Lens      *Lens
}

// Env bundles the state a materialization pass needs.
type Env struct {
	ConstPool  *constpool.Pool
	State      *statebuffer.Buffer
	SourceTags map[string][]float64
	NowMs      float64
	DeltaMs    float64
	IsScrub    bool
}

// Buffer is a materialized typed element buffer.
type Buffer struct {
	Format program.BufferFormat
	Count  int
	F32    []float32
	U8     []uint8
	U16    []uint16
}

// Materializer produces and caches typed buffers for field nodes.
type Materializer struct {
	cache *framecache.Cache
}

// New constructs a materializer backed by the given frame cache.
func New(cache *framecache.Cache) *Materializer {
	return &Materializer{cache: cache}
}

// Materialize returns the buffer for node over a domain of the given
// count, in the requested format, consulting the Frame Cache's buffer map
// first.
func (m *Materializer) Materialize(node Node, domainSlot, count int, format program.BufferFormat, env Env) (*Buffer, error) {
	if count == 0 {
		return &Buffer{Format: format, Count: 0}, nil
	}

	key := framecache.BufferKey{FieldExprID: node.ID, DomainSlot: domainSlot, Format: format}
	if handle, ok := m.cache.Buffer(key); ok {
		if buf, ok := handle.Data.(*Buffer); ok {
			return buf, nil
		}
	}

	values := make([]float64, count)
	for i := 0; i < count; i++ {
		base, err := m.recipeValue(node, i, env)
		if err != nil {
			return nil, err
		}
		values[i] = base
	}

	if node.Lens != nil {
		if err := m.applyLens(*node.Lens, values, env); err != nil {
			return nil, err
		}
	}

	buf := toBuffer(format, values)
	m.cache.StoreBuffer(key, framecache.FieldHandle{Key: key, Count: count, Data: buf})
	return buf, nil
}

func (m *Materializer) recipeValue(node Node, i int, env Env) (float64, error) {
	switch node.Recipe {
	case RecipeConst:
		return env.ConstPool.F64(node.ConstID)
	case RecipeBroadcastSignal:
		return node.SignalID, nil
	case RecipeRandom:
		return seededUnit(node.Seed, i), nil
	case RecipeTransform:
		if node.Transform == nil {
			return 0, fmt.Errorf("fieldmat: transform recipe missing function for node %d", node.ID)
		}
		return node.Transform(i, 0), nil
	case RecipeSourceTag:
		values, ok := env.SourceTags[node.SourceTag]
		if !ok {
			return 0, nil
		}
		if i >= len(values) {
			return 0, nil
		}
		return values[i], nil
	}
	return 0, fmt.Errorf("fieldmat: unknown recipe kind %d for node %d", node.Recipe, node.ID)
}

// seededUnit derives a deterministic pseudo-random value in [0,1) from a
// seed and element index using splitmix64-style mixing, so the same
// (seed, i) always yields the same value across runs.
func seededUnit(seed uint64, i int) float64 {
	x := seed + uint64(i)*0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return float64(x>>11) / float64(1<<53)
}

func (m *Materializer) applyLens(lens Lens, values []float64, env Env) error {
	switch lens.Kind {
	case LensNone:
		return nil
	case LensEase:
		for i, v := range values {
			values[i] = signaleval.Ease(lens.Ease, v)
		}
	case LensSlew:
		return m.applySlew(lens, values, env)
	case LensQuantize:
		for i, v := range values {
			values[i] = signaleval.Quantize(v, lens.QuantizeSteps)
		}
	case LensScale:
		for i, v := range values {
			values[i] = v * lens.Scale
		}
	case LensWarp:
		power := lens.WarpPower
		if power == 0 {
			power = 1
		}
		for i, v := range values {
			sign := 1.0
			if v < 0 {
				sign = -1
			}
			values[i] = sign * math.Pow(math.Abs(v), power)
		}
	case LensClamp:
		for i, v := range values {
			values[i] = signaleval.Clamp(v, lens.ClampLo, lens.ClampHi)
		}
	case LensDeadzone:
		for i, v := range values {
			if math.Abs(v) < lens.DeadzoneAbs {
				values[i] = 0
			}
		}
	case LensMapRange:
		inSpan := lens.MapInHi - lens.MapInLo
		for i, v := range values {
			t := 0.0
			if inSpan != 0 {
				t = (v - lens.MapInLo) / inSpan
			}
			values[i] = lens.MapOutLo + t*(lens.MapOutHi-lens.MapOutLo)
		}
	case LensPolarity:
		p := lens.Polarity
		if p == 0 {
			p = 1
		}
		for i, v := range values {
			values[i] = v * p
		}
	case LensBroadcast:
		if len(values) == 0 {
			return nil
		}
		first := values[0]
		for i := range values {
			values[i] = first
		}
	case LensPerElementOffset:
		for i, v := range values {
			values[i] = v + lens.Offset*float64(i)
		}
	default:
		return fmt.Errorf("fieldmat: unknown lens kind %d", lens.Kind)
	}
	return nil
}

// applySlew maintains a persistent {prevValue, prevTimeMs} pair per element
// in the State Buffer, ramping each value toward its target at a bounded
// rate. Backward time or a large jump resets it to the target rather than
// ramping.
func (m *Materializer) applySlew(lens Lens, values []float64, env Env) error {
	reset := env.DeltaMs < 0 || env.IsScrub
	for i, target := range values {
		key := lens.SlewKey
		key.Role = fmt.Sprintf("%s#%d.value", key.Role, i)
		timeKey := lens.SlewKey
		timeKey.Role = fmt.Sprintf("%s#%d.time", timeKey.Role, i)

		prevVal, err := env.State.ReadF64(key, 0)
		if err != nil {
			// Cell not provisioned for this element; fall back to target
			// without slewing rather than failing the whole frame.
			continue
		}
		prevTime, _ := env.State.ReadF64(timeKey, 0)

		if reset || prevTime == 0 {
			values[i] = target
		} else {
			maxStep := lens.SlewRatePerMs * env.DeltaMs
			if maxStep < 0 {
				maxStep = -maxStep
			}
			delta := target - prevVal
			if delta > maxStep {
				delta = maxStep
			} else if delta < -maxStep {
				delta = -maxStep
			}
			values[i] = prevVal + delta
		}

		if err := env.State.WriteF64(key, 0, values[i]); err != nil {
			return err
		}
		if err := env.State.WriteF64(timeKey, 0, env.NowMs); err != nil {
			return err
		}
	}
	return nil
}

func toBuffer(format program.BufferFormat, values []float64) *Buffer {
	buf := &Buffer{Format: format, Count: len(values)}
	switch format.ElementType {
	case "u8":
		buf.U8 = make([]uint8, len(values)*format.Components)
		for i, v := range values {
			u := toU8(v)
			for c := 0; c < format.Components; c++ {
				buf.U8[i*format.Components+c] = u
			}
		}
	case "u16":
		buf.U16 = make([]uint16, len(values)*format.Components)
		for i, v := range values {
			u := uint16(signaleval.Clamp(v, 0, 65535))
			for c := 0; c < format.Components; c++ {
				buf.U16[i*format.Components+c] = u
			}
		}
	default: // "f32" and unrecognized formats default to float32
		buf.F32 = make([]float32, len(values)*format.Components)
		for i, v := range values {
			f := float32(v)
			for c := 0; c < format.Components; c++ {
				buf.F32[i*format.Components+c] = f
			}
		}
	}
	return buf
}

func toU8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

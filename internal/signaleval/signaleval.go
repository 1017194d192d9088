// Package signaleval recursively evaluates an acyclic signal expression
// graph, memoizing each node's value through the Frame Cache. Expression
// kinds form a closed sum type; evaluation dispatches per variant.
package signaleval

import (
	"fmt"
	"math"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/framecache"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/valuestore"
)

// Kind enumerates the signal expression variants.
type Kind int

const (
	KindConst Kind = iota
	KindTimeSource
	KindSlotRead
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindNeg
	KindLT
	KindLE
	KindGT
	KindGE
	KindEQ
	KindClamp
	KindLerp
	KindSmoothstep
	KindQuantize
	KindEase
	KindSin
	KindCos
	KindAbs
	KindMin
	KindMax
)

// TimeField selects which resolved time value a KindTimeSource node reads.
type TimeField int

const (
	TimeFieldTAbs TimeField = iota
	TimeFieldTModel
	TimeFieldPhase01
	TimeFieldProgress01
)

// EaseKind selects the easing curve for a KindEase node.
type EaseKind int

const (
	EaseLinear EaseKind = iota
	EaseInQuad
	EaseOutQuad
	EaseInOutQuad
)

// Expr is one node in the signal expression graph. Only the fields
// relevant to Kind are meaningful; the compiler guarantees the graph is
// acyclic.
type Expr struct {
	ID        int
	Kind      Kind
	ConstID   int       // KindConst
	Slot      int       // KindSlotRead
	TimeField TimeField // KindTimeSource
	Ease      EaseKind  // KindEase
	Steps     int       // KindQuantize
	Operands  []int     // operand expression ids, in positional order
}

// TimeValues carries the already-resolved time values for the current
// frame, as written by the Time Resolver.
type TimeValues struct {
	TAbsMs     float64
	TModelMs   float64
	Phase01    float64
	Progress01 float64
}

// Env bundles everything evaluation needs to read.
type Env struct {
	Cache     *framecache.Cache
	ConstPool *constpool.Pool
	Slots     *valuestore.Store
	Time      TimeValues
}

// Evaluator evaluates signal expressions by id against a fixed table.
type Evaluator struct {
	exprs map[int]Expr
}

// New indexes the expression table by id.
func New(exprs []Expr) *Evaluator {
	m := make(map[int]Expr, len(exprs))
	for _, e := range exprs {
		m[e.ID] = e
	}
	return &Evaluator{exprs: m}
}

// Eval returns the value of expression id under env, consulting and
// populating the Frame Cache.
func (ev *Evaluator) Eval(id int, env Env) (float64, error) {
	if env.Cache.SignalHit(id) {
		return env.Cache.SignalValue(id), nil
	}
	expr, ok := ev.exprs[id]
	if !ok {
		return 0, fmt.Errorf("signal evaluator: unknown expression id %d", id)
	}

	value, err := ev.dispatch(expr, env)
	if err != nil {
		return 0, err
	}
	env.Cache.StoreSignal(id, value)
	return value, nil
}

func (ev *Evaluator) operand(expr Expr, i int, env Env) (float64, error) {
	if i >= len(expr.Operands) {
		return 0, fmt.Errorf("signal evaluator: expression %d missing operand %d", expr.ID, i)
	}
	return ev.Eval(expr.Operands[i], env)
}

func (ev *Evaluator) dispatch(expr Expr, env Env) (float64, error) {
	switch expr.Kind {
	case KindConst:
		return env.ConstPool.F64(expr.ConstID)

	case KindTimeSource:
		switch expr.TimeField {
		case TimeFieldTAbs:
			return env.Time.TAbsMs, nil
		case TimeFieldTModel:
			return env.Time.TModelMs, nil
		case TimeFieldPhase01:
			return env.Time.Phase01, nil
		case TimeFieldProgress01:
			return env.Time.Progress01, nil
		}
		return 0, fmt.Errorf("signal evaluator: unknown time field %d", expr.TimeField)

	case KindSlotRead:
		v, err := env.Slots.Read(expr.Slot)
		if err != nil {
			return 0, err
		}
		return asFloat(v), nil

	case KindAdd:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		return a + b, nil

	case KindSub:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		return a - b, nil

	case KindMul:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		return a * b, nil

	case KindDiv:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		// Division by zero yields IEEE ±Inf/NaN and is not trapped.
		return a / b, nil

	case KindNeg:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		return -a, nil

	case KindLT, KindLE, KindGT, KindGE, KindEQ:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		// Comparisons on NaN follow IEEE semantics: Go's float comparisons
		// already return false whenever either operand is NaN.
		var result bool
		switch expr.Kind {
		case KindLT:
			result = a < b
		case KindLE:
			result = a <= b
		case KindGT:
			result = a > b
		case KindGE:
			result = a >= b
		case KindEQ:
			result = a == b
		}
		if result {
			return 1, nil
		}
		return 0, nil

	case KindClamp:
		x, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		lo, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		hi, err := ev.operand(expr, 2, env)
		if err != nil {
			return 0, err
		}
		return Clamp(x, lo, hi), nil

	case KindLerp:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		t, err := ev.operand(expr, 2, env)
		if err != nil {
			return 0, err
		}
		return a + (b-a)*t, nil

	case KindSmoothstep:
		edge0, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		edge1, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		x, err := ev.operand(expr, 2, env)
		if err != nil {
			return 0, err
		}
		return Smoothstep(edge0, edge1, x), nil

	case KindQuantize:
		x, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		return Quantize(x, expr.Steps), nil

	case KindEase:
		x, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		return Ease(expr.Ease, x), nil

	case KindSin:
		x, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		return math.Sin(x), nil

	case KindCos:
		x, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		return math.Cos(x), nil

	case KindAbs:
		x, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		return math.Abs(x), nil

	case KindMin:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		return math.Min(a, b), nil

	case KindMax:
		a, err := ev.operand(expr, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := ev.operand(expr, 1, env)
		if err != nil {
			return 0, err
		}
		return math.Max(a, b), nil
	}
	return 0, fmt.Errorf("signal evaluator: unhandled expression kind %d", expr.Kind)
}

func asFloat(v valuestore.Value) float64 {
	switch v.Storage {
	case program.StorageF64:
		return v.F64
	case program.StorageF32:
		return float64(v.F32)
	case program.StorageI32:
		return float64(v.I32)
	case program.StorageU32:
		return float64(v.U32)
	default:
		return 0
	}
}

// Clamp restricts x to [lo, hi]. Idempotent: Clamp(Clamp(x)) == Clamp(x).
func Clamp(x, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Smoothstep evaluates the classic cubic smoothstep, clamping x to [0,1]
// relative to the edges first (easing inputs outside [0,1] are clamped).
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Quantize snaps x to the nearest multiple of 1/steps. Step counts <= 0
// are normalized to 1. Idempotent: the first application already lands
// exactly on a 1/steps multiple.
func Quantize(x float64, steps int) float64 {
	if steps <= 0 {
		steps = 1
	}
	n := float64(steps)
	return math.Round(x*n) / n
}

// Ease applies the named easing curve, clamping its input to [0,1] first.
func Ease(kind EaseKind, x float64) float64 {
	t := Clamp(x, 0, 1)
	switch kind {
	case EaseInQuad:
		return t * t
	case EaseOutQuad:
		return t * (2 - t)
	case EaseInOutQuad:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	default:
		return t
	}
}

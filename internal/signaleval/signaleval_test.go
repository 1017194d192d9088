package signaleval

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/framecache"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
)

func newCache(n int) *framecache.Cache {
	return framecache.New(program.ExprTables{SignalCount: n, FieldCount: 0})
}

// A cached signal's value equals direct evaluation, and a second Eval call
// within the same frame is a cache hit rather than a recompute.
func TestEvalMemoizesAcrossCallsWithinFrame(t *testing.T) {
	exprs := []Expr{
		{ID: 0, Kind: KindConst, ConstID: 0},
		{ID: 1, Kind: KindAdd, Operands: []int{0, 0}},
	}
	ev := New(exprs)
	pool := constpool.New(nil, []float64{21}, nil, nil)
	cache := newCache(2)
	env := Env{Cache: cache, ConstPool: pool}

	v, err := ev.Eval(1, env)
	if err != nil || v != 42 {
		t.Fatalf("eval: got %v err %v", v, err)
	}
	if !cache.SignalHit(1) {
		t.Fatalf("expected cache hit after first eval")
	}
	v2, err := ev.Eval(1, env)
	if err != nil || v2 != v {
		t.Fatalf("second eval should return identical cached value, got %v err %v", v2, err)
	}
}

// Incrementing to a new frame without re-evaluating leaves the prior
// cache entry stale.
func TestEvalMissesAfterNewFrame(t *testing.T) {
	exprs := []Expr{{ID: 3, Kind: KindConst, ConstID: 0}}
	ev := New(exprs)
	pool := constpool.New(nil, []float64{5}, nil, nil)
	cache := newCache(4)
	env := Env{Cache: cache, ConstPool: pool}

	if _, err := ev.Eval(3, env); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !cache.SignalHit(3) {
		t.Fatalf("expected hit on frame 1")
	}
	cache.NewFrame()
	if cache.SignalHit(3) {
		t.Fatalf("expected miss on frame 2 before re-eval")
	}
}

// Invalidate resets stamps without touching the frame id.
func TestEvalInvalidateResetsStampsNotFrameID(t *testing.T) {
	cache := newCache(1)
	cache.StoreSignal(0, 1)
	before := cache.FrameID()
	cache.Invalidate()
	if cache.SignalHit(0) {
		t.Fatalf("expected miss after invalidate")
	}
	if cache.FrameID() != before {
		t.Fatalf("invalidate must not change frameId, got %d want %d", cache.FrameID(), before)
	}
}

func TestDivisionByZeroIsNotTrapped(t *testing.T) {
	exprs := []Expr{
		{ID: 0, Kind: KindConst, ConstID: 0},
		{ID: 1, Kind: KindConst, ConstID: 1},
		{ID: 2, Kind: KindDiv, Operands: []int{0, 1}},
	}
	ev := New(exprs)
	pool := constpool.New(nil, []float64{1, 0}, nil, nil)
	env := Env{Cache: newCache(3), ConstPool: pool}
	v, err := ev.Eval(2, env)
	if err != nil {
		t.Fatalf("div by zero should not error: %v", err)
	}
	if !isInf(v) {
		t.Fatalf("expected +Inf, got %v", v)
	}
}

func isInf(f float64) bool {
	return f > 1e300 || f < -1e300
}

func TestQuantizeIdempotentAndNonPositiveStepsNormalizedToOne(t *testing.T) {
	if got := Quantize(0.37, 0); got != Quantize(0.37, 1) {
		t.Fatalf("steps<=0 should normalize to 1: got %v vs %v", got, Quantize(0.37, 1))
	}
	q := Quantize(0.37, 4)
	if Quantize(q, 4) != q {
		t.Fatalf("quantize not idempotent: %v -> %v", q, Quantize(q, 4))
	}
}

func TestClampIdempotent(t *testing.T) {
	c := Clamp(5, 0, 1)
	if Clamp(c, 0, 1) != c {
		t.Fatalf("clamp not idempotent: %v -> %v", c, Clamp(c, 0, 1))
	}
}

func TestEasingInputsOutsideZeroOneAreClampedFirst(t *testing.T) {
	below := Ease(EaseInOutQuad, -5)
	above := Ease(EaseInOutQuad, 5)
	if below != Ease(EaseInOutQuad, 0) || above != Ease(EaseInOutQuad, 1) {
		t.Fatalf("expected out-of-range ease inputs clamped to [0,1] boundary results")
	}
}

package bus

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
)

// sum/average/min/max/last/product each match their arithmetic definition
// over only the enabled publishers.
func TestCombineModesMatchDefinitions(t *testing.T) {
	publishers := []Publisher{
		{ID: "p1", SortKey: 0, Enabled: true, Value: 10},
		{ID: "p2", SortKey: 1, Enabled: false, Value: 20},
		{ID: "p3", SortKey: 2, Enabled: true, Value: 30},
	}

	cases := []struct {
		mode CombineMode
		want float64
	}{
		{CombineSum, 40},
		{CombineAverage, 20},
		{CombineMin, 10},
		{CombineMax, 30},
		{CombineLast, 30},
		{CombineProduct, 300},
	}

	for _, c := range cases {
		got, err := Combine(c.mode, publishers, SilentZero, 0, nil)
		if err != nil {
			t.Fatalf("mode %d: %v", c.mode, err)
		}
		if got != c.want {
			t.Fatalf("mode %d: got %v want %v", c.mode, got, c.want)
		}
	}
}

func TestCombineSilentValueWhenNoPublisherContributes(t *testing.T) {
	disabled := []Publisher{{ID: "p1", Enabled: false, Value: 99}}

	got, err := Combine(CombineSum, disabled, SilentZero, 0, nil)
	if err != nil || got != 0 {
		t.Fatalf("silent zero: got %v err %v", got, err)
	}

	got, err = Combine(CombineSum, disabled, SilentOne, 0, nil)
	if err != nil || got != 1 {
		t.Fatalf("silent one: got %v err %v", got, err)
	}

	pool := constpool.New(nil, []float64{42.5}, nil, nil)
	got, err = Combine(CombineSum, disabled, SilentConst, 0, pool)
	if err != nil || got != 42.5 {
		t.Fatalf("silent const: got %v err %v", got, err)
	}
}

func TestCombineOrdersBySortKeyThenID(t *testing.T) {
	publishers := []Publisher{
		{ID: "b", SortKey: 0, Enabled: true, Value: 1},
		{ID: "a", SortKey: 0, Enabled: true, Value: 2},
	}
	ordered := enabledSorted(publishers)
	if ordered[0].ID != "a" || ordered[1].ID != "b" {
		t.Fatalf("expected tie-break by id, got %+v", ordered)
	}
}

// Merge is a time-stable-sorted concatenation of publisher lists.
func TestCombineEventsMerge(t *testing.T) {
	pubs := []EventPublisher{
		{ID: "a", Events: []EventOccurrence{{TimeMs: 10}, {TimeMs: 30}}},
		{ID: "b", Events: []EventOccurrence{{TimeMs: 20}}},
	}
	merged, err := CombineEvents(EventCombineMerge, pubs)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := []float64{10, 20, 30}
	if len(merged) != len(want) {
		t.Fatalf("got %d events want %d", len(merged), len(want))
	}
	for i, w := range want {
		if merged[i].TimeMs != w {
			t.Fatalf("index %d: got %v want %v", i, merged[i].TimeMs, w)
		}
	}
}

func TestCombineEventsFirstLastAndEmptySilent(t *testing.T) {
	pubs := []EventPublisher{
		{ID: "a", Events: []EventOccurrence{{TimeMs: 1}}},
		{ID: "b", Events: []EventOccurrence{{TimeMs: 2}}},
	}
	first, err := CombineEvents(EventCombineFirst, pubs)
	if err != nil || len(first) != 1 || first[0].TimeMs != 1 {
		t.Fatalf("first: got %+v err %v", first, err)
	}
	last, err := CombineEvents(EventCombineLast, pubs)
	if err != nil || len(last) != 1 || last[0].TimeMs != 2 {
		t.Fatalf("last: got %+v err %v", last, err)
	}
	empty, err := CombineEvents(EventCombineMerge, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty merge should be silent: got %+v err %v", empty, err)
	}
}

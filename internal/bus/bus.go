// Package bus combines multiple publisher slots into one bus value, for
// both continuous signals and discrete event streams. Aggregation happens
// once per frame, in sortKey order, with a configurable silent default
// when no enabled publisher contributes.
package bus

import (
	"fmt"
	"sort"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
)

// CombineMode selects how enabled continuous publishers are aggregated.
type CombineMode int

const (
	CombineSum CombineMode = iota
	CombineAverage
	CombineMin
	CombineMax
	CombineLast
	CombineProduct
)

// EventCombineMode selects how discrete event stream publishers are
// aggregated.
type EventCombineMode int

const (
	EventCombineMerge EventCombineMode = iota
	EventCombineFirst
	EventCombineLast
)

// SilentKind selects the bus's output when no enabled publisher
// contributes.
type SilentKind int

const (
	SilentZero SilentKind = iota
	SilentOne
	SilentConst
)

// Publisher is one continuous-signal contributor to a bus.
type Publisher struct {
	ID      string
	SortKey int
	Enabled bool
	Value   float64
}

// Combine aggregates enabled publishers, sorted by SortKey (ties broken by
// publisher id), per the mode. If no publisher contributes, the silent
// value is returned instead.
func Combine(mode CombineMode, publishers []Publisher, silent SilentKind, silentConstID int, pool *constpool.Pool) (float64, error) {
	ordered := enabledSorted(publishers)
	if len(ordered) == 0 {
		return silentValue(silent, silentConstID, pool)
	}

	switch mode {
	case CombineSum:
		sum := 0.0
		for _, p := range ordered {
			sum += p.Value
		}
		return sum, nil
	case CombineAverage:
		sum := 0.0
		for _, p := range ordered {
			sum += p.Value
		}
		return sum / float64(len(ordered)), nil
	case CombineMin:
		m := ordered[0].Value
		for _, p := range ordered[1:] {
			if p.Value < m {
				m = p.Value
			}
		}
		return m, nil
	case CombineMax:
		m := ordered[0].Value
		for _, p := range ordered[1:] {
			if p.Value > m {
				m = p.Value
			}
		}
		return m, nil
	case CombineLast:
		return ordered[len(ordered)-1].Value, nil
	case CombineProduct:
		prod := 1.0
		for _, p := range ordered {
			prod *= p.Value
		}
		return prod, nil
	}
	return 0, fmt.Errorf("bus: unknown combine mode %d", mode)
}

func enabledSorted(publishers []Publisher) []Publisher {
	out := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func silentValue(kind SilentKind, constID int, pool *constpool.Pool) (float64, error) {
	switch kind {
	case SilentZero:
		return 0, nil
	case SilentOne:
		return 1, nil
	case SilentConst:
		return pool.F64(constID)
	}
	return 0, fmt.Errorf("bus: unknown silent kind %d", kind)
}

// EventOccurrence is one (time, payload) entry in a discrete event stream.
type EventOccurrence struct {
	TimeMs  float64
	Payload any
}

// EventPublisher is one discrete-event-stream contributor to a bus.
type EventPublisher struct {
	ID     string
	Events []EventOccurrence
}

// CombineEvents aggregates discrete event stream publishers per mode.
// Silent (no publishers, or merge of all-empty lists) is an empty list.
func CombineEvents(mode EventCombineMode, publishers []EventPublisher) ([]EventOccurrence, error) {
	switch mode {
	case EventCombineMerge:
		var all []EventOccurrence
		for _, p := range publishers {
			all = append(all, p.Events...)
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].TimeMs < all[j].TimeMs })
		return all, nil
	case EventCombineFirst:
		if len(publishers) == 0 {
			return nil, nil
		}
		return publishers[0].Events, nil
	case EventCombineLast:
		if len(publishers) == 0 {
			return nil, nil
		}
		return publishers[len(publishers)-1].Events, nil
	}
	return nil, fmt.Errorf("bus: unknown event combine mode %d", mode)
}

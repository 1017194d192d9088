package eventstore

import "testing"

func TestTriggerThenCheckAndPayloadOf(t *testing.T) {
	s := New()
	if s.Check(1) {
		t.Fatalf("slot should not be triggered before any Trigger call")
	}
	s.Trigger(1, Payload{"phase": 0.5})
	if !s.Check(1) {
		t.Fatalf("expected slot 1 triggered")
	}
	p, ok := s.PayloadOf(1)
	if !ok || p["phase"] != 0.5 {
		t.Fatalf("expected payload with phase 0.5, got %+v ok=%v", p, ok)
	}
}

// A slot triggered more than once in the same frame retains only its most
// recent payload.
func TestLastTriggerWinsWithinFrame(t *testing.T) {
	s := New()
	s.Trigger(1, Payload{"count": 1})
	s.Trigger(1, Payload{"count": 2})
	p, ok := s.PayloadOf(1)
	if !ok || p["count"] != 2 {
		t.Fatalf("expected last trigger's payload (count=2), got %+v", p)
	}
}

// TestResetClearsAllTriggers covers frame-boundary semantics: events are
// one-shot per frame, never carried forward like state cells.
func TestResetClearsAllTriggers(t *testing.T) {
	s := New()
	s.Trigger(1, nil)
	s.Trigger(2, nil)
	s.Reset()
	if s.HasAny() {
		t.Fatalf("expected no triggers after Reset")
	}
	if s.Check(1) || s.Check(2) {
		t.Fatalf("expected all slots cleared after Reset")
	}
}

func TestPayloadOfReturnsClonesNotAliases(t *testing.T) {
	s := New()
	orig := Payload{"x": 1}
	s.Trigger(1, orig)
	got, _ := s.PayloadOf(1)
	got["x"] = 99
	again, _ := s.PayloadOf(1)
	if again["x"] != 1 {
		t.Fatalf("mutating returned payload should not affect stored payload, got %v", again["x"])
	}
	orig["x"] = 42
	again2, _ := s.PayloadOf(1)
	if again2["x"] != 1 {
		t.Fatalf("mutating the payload passed to Trigger should not affect stored payload, got %v", again2["x"])
	}
}

func TestTriggeredSlotsOnlyReportsTriggeredSlots(t *testing.T) {
	s := New()
	s.Trigger(2, nil)
	s.Trigger(5, nil)
	slots := s.TriggeredSlots()
	seen := map[int]bool{}
	for _, s := range slots {
		seen[s] = true
	}
	if len(slots) != 2 || !seen[2] || !seen[5] {
		t.Fatalf("expected exactly slots [2 5], got %v", slots)
	}
}

func TestConsumeMatchesPayloadOf(t *testing.T) {
	s := New()
	if _, ok := s.Consume(1); ok {
		t.Fatalf("expected no payload for untriggered slot")
	}
	s.Trigger(1, Payload{"v": true})
	p, ok := s.Consume(1)
	if !ok || p["v"] != true {
		t.Fatalf("expected consumed payload, got %+v ok=%v", p, ok)
	}
}

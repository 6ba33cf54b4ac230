package counters

import (
	"strings"
	"testing"
)

// TestThreadLocalCounter tests per-tid slots and totals.
func TestThreadLocalCounter(t *testing.T) {
	c := NewThreadLocalCounter("Read Exclusive", 7)

	c.Inc(0)
	c.Inc(0)
	c.Inc(5)

	if got := c.Get(0); got != 2 {
		t.Errorf("Get(0) = %d, want 2", got)
	}
	if got := c.Get(5); got != 1 {
		t.Errorf("Get(5) = %d, want 1", got)
	}
	if got := c.Get(3); got != 0 {
		t.Errorf("Get(3) = %d, want 0", got)
	}
	if got := c.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}
}

// TestAggregateCounter tests roll-up across nested counters.
func TestAggregateCounter(t *testing.T) {
	a := NewThreadLocalCounter("a", 3)
	b := NewThreadLocalCounter("b", 3)
	inner := NewAggregateCounter("inner", a, b)
	c := NewThreadLocalCounter("c", 3)
	outer := NewAggregateCounter("outer", inner, c)

	a.Inc(0)
	b.Inc(1)
	b.Inc(2)
	c.Inc(0)

	if got := inner.Total(); got != 3 {
		t.Errorf("inner.Total() = %d, want 3", got)
	}
	if got := outer.Total(); got != 4 {
		t.Errorf("outer.Total() = %d, want 4", got)
	}
}

// TestSetAggregates tests that the engine's counter set rolls rule outcomes
// into the right aggregates.
func TestSetAggregates(t *testing.T) {
	s := NewSet(7)

	s.ReadSameEpoch.Inc(0)
	s.ReadExclusive.Inc(1)
	s.WriteSameEpoch.Inc(0)
	s.WriteWriteError.Inc(2)
	s.Acquire.Inc(0)
	s.Barrier.Inc(1)

	if got := s.reads.Total(); got != 2 {
		t.Errorf("Total Reads = %d, want 2", got)
	}
	if got := s.writes.Total(); got != 2 {
		t.Errorf("Total Writes = %d, want 2", got)
	}
	if got := s.accesses.Total(); got != 4 {
		t.Errorf("Total Access Ops = %d, want 4", got)
	}
	if got := s.TotalOps(); got != 6 {
		t.Errorf("TotalOps() = %d, want 6", got)
	}
}

// TestDump tests the stable shutdown listing.
func TestDump(t *testing.T) {
	s := NewSet(3)
	s.ReadShare.Inc(1)
	s.Fork.Inc(0)

	var sb strings.Builder
	s.Dump(&sb)
	out := sb.String()

	for _, want := range []string{
		"Read Share:",
		"Fork:",
		"Total Reads:",
		"Total Ops:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump output missing %q:\n%s", want, out)
		}
	}

	// Rule lines precede aggregates.
	if strings.Index(out, "Read Share:") > strings.Index(out, "Total Reads:") {
		t.Errorf("rule counters should be listed before aggregates:\n%s", out)
	}
}

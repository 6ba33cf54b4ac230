package threadstate

import (
	"testing"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/epoch"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"
)

// TestCreateInitialState tests the NewThread initialization: V[tid] seeded
// one past history, then ticked once.
func TestCreateInitialState(t *testing.T) {
	r := NewRegistry(16)
	st := r.Create(3)

	// Fresh tid: seed = 0+1, then one tick.
	if got := st.V.Get(3); got != 2 {
		t.Errorf("V[3] = %d, want 2", got)
	}
	if st.E != epoch.New(3, 2) {
		t.Errorf("E = %s, want %s", st.E, epoch.New(3, 2))
	}
	// All other entries zero.
	if got := st.V.Get(0); got != 0 {
		t.Errorf("V[0] = %d, want 0", got)
	}
}

// TestEpochInvariant tests E == V[tid] across all three transformations.
func TestEpochInvariant(t *testing.T) {
	r := NewRegistry(16)
	st := r.Create(1)

	other := vectorclock.New()
	other.Set(0, 9)
	other.Set(1, 1)

	steps := []struct {
		name string
		step func()
	}{
		{name: "tick", step: st.Tick},
		{name: "max", step: func() { st.Max(other) }},
		{name: "max and tick", step: func() { st.MaxAndTick(other) }},
	}

	for _, s := range steps {
		s.step()
		if st.E != epoch.New(st.TID, st.V.Get(st.TID)) {
			t.Errorf("after %s: E = %s, V[tid] = %d, invariant broken",
				s.name, st.E, st.V.Get(st.TID))
		}
	}
	// Max must have pulled in the other clock's entries.
	if got := st.V.Get(0); got != 9 {
		t.Errorf("V[0] after max = %d, want 9", got)
	}
}

// TestCreateIdempotentWhileLive tests that a duplicate NewThread for a live
// tid returns the existing state.
func TestCreateIdempotentWhileLive(t *testing.T) {
	r := NewRegistry(16)
	st1 := r.Create(2)
	st1.Tick()
	st2 := r.Create(2)

	if st1 != st2 {
		t.Errorf("Create for live tid returned a new state")
	}
}

// TestTidReuse tests that a recycled tid starts above every prior epoch.
func TestTidReuse(t *testing.T) {
	r := NewRegistry(16)

	first := r.Create(5)
	for i := 0; i < 10; i++ {
		first.Tick()
	}
	finalClock := first.E.Clock()
	r.Stop(first)

	if got := r.MaxEpoch(5); got != finalClock {
		t.Fatalf("MaxEpoch(5) = %d, want %d", got, finalClock)
	}

	second := r.Create(5)
	if second == first {
		t.Fatalf("Create after Stop returned the retired state")
	}
	if got := second.E.Clock(); got <= finalClock {
		t.Errorf("reused tid starts at clock %d, want > %d", got, finalClock)
	}
}

// TestStoppedReadableForJoin tests that a joiner can still read a stopped
// thread's state.
func TestStoppedReadableForJoin(t *testing.T) {
	r := NewRegistry(16)
	st := r.Create(1)
	st.Tick()
	r.Stop(st)

	got := r.Get(1)
	if got != st {
		t.Errorf("Get after Stop returned a different state")
	}
	if !got.Stopped() {
		t.Errorf("Stopped() = false after Stop")
	}
}

// TestMaxEpochMonotone tests maxEpochPerTid >= every prior final epoch.
func TestMaxEpochMonotone(t *testing.T) {
	r := NewRegistry(16)

	var finals []uint64
	for round := 0; round < 3; round++ {
		st := r.Create(7)
		for i := 0; i < round+1; i++ {
			st.Tick()
		}
		finals = append(finals, st.E.Clock())
		r.Stop(st)

		for _, f := range finals {
			if r.MaxEpoch(7) < f {
				t.Fatalf("round %d: MaxEpoch(7) = %d below prior final %d",
					round, r.MaxEpoch(7), f)
			}
		}
	}
}

// TestCreateRejectsOutOfRange tests the fatal wiring check.
func TestCreateRejectsOutOfRange(t *testing.T) {
	r := NewRegistry(8)

	defer func() {
		if recover() == nil {
			t.Errorf("Create(9) with maxTid 8 did not panic")
		}
	}()
	r.Create(9)
}

// TestGetUnknownPanics tests that events for unannounced tids are fatal.
func TestGetUnknownPanics(t *testing.T) {
	r := NewRegistry(8)

	defer func() {
		if recover() == nil {
			t.Errorf("Get on unknown tid did not panic")
		}
	}()
	r.Get(3)
}

// TestLookupUnknown tests the non-fatal variant.
func TestLookupUnknown(t *testing.T) {
	r := NewRegistry(8)
	if got := r.Lookup(3); got != nil {
		t.Errorf("Lookup(3) = %v, want nil", got)
	}
}

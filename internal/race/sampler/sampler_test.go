package sampler

import (
	"math"
	"testing"
)

// TestInclusionInequality tests the raw inclusion test at its boundaries.
func TestInclusionInequality(t *testing.T) {
	tests := []struct {
		name       string
		sampled    uint64
		notSampled uint64
		rate       float64
		want       bool
	}{
		{name: "rate 0 never includes", sampled: 1, notSampled: 1000, rate: 0, want: false},
		{name: "rate 100 always includes", sampled: 1000, notSampled: 1, rate: 100, want: true},
		{name: "rate 50 below parity", sampled: 1, notSampled: 2, rate: 50, want: true},
		{name: "rate 50 at parity", sampled: 2, notSampled: 2, rate: 50, want: false},
		{name: "rate 50 above parity", sampled: 3, notSampled: 2, rate: 50, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := include(tt.sampled, tt.notSampled, tt.rate); got != tt.want {
				t.Errorf("include(%d, %d, %v) = %v, want %v",
					tt.sampled, tt.notSampled, tt.rate, got, tt.want)
			}
		})
	}
}

// TestCountConvergence tests that the COUNT scheme's empirical fraction
// converges to rate/100.
func TestCountConvergence(t *testing.T) {
	tests := []struct {
		name string
		rate int
	}{
		{name: "rate 25", rate: 25},
		{name: "rate 50", rate: 50},
		{name: "rate 75", rate: 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Count, tt.rate, 1)
			l := s.NewLocal()

			const trials = 100000
			included := 0
			for i := 0; i < trials; i++ {
				if s.Include(&l) {
					included++
				}
			}

			got := float64(included) / trials
			want := float64(tt.rate) / 100
			if math.Abs(got-want) > 0.01 {
				t.Errorf("sampled fraction = %.3f, want %.3f +/- 0.01", got, want)
			}
		})
	}
}

// TestCountDeterminism tests that two samplers with identical configuration
// make identical decisions on identical access sequences.
func TestCountDeterminism(t *testing.T) {
	s1 := New(Count, 50, 1)
	s2 := New(Count, 50, 1)
	l1 := s1.NewLocal()
	l2 := s2.NewLocal()

	for i := 0; i < 10000; i++ {
		if s1.Include(&l1) != s2.Include(&l2) {
			t.Fatalf("decision diverged at access %d", i)
		}
	}
}

// TestRateExtremes tests that 0 skips everything and 100 includes everything.
func TestRateExtremes(t *testing.T) {
	s0 := New(Count, 0, 1)
	l0 := s0.NewLocal()
	for i := 0; i < 100; i++ {
		if s0.Include(&l0) {
			t.Fatalf("rate 0 included access %d", i)
		}
	}

	s100 := New(Count, 100, 1)
	l100 := s100.NewLocal()
	for i := 0; i < 100; i++ {
		if !s100.Include(&l100) {
			t.Fatalf("rate 100 skipped access %d", i)
		}
	}
}

// TestAdaptiveDecay tests that a location's rate decays by expFactor per
// evaluation and clamps at the threshold floor.
func TestAdaptiveDecay(t *testing.T) {
	const threshold = 5.0
	s := New(Adaptive, 80, threshold)
	l := s.NewLocal()

	if got := l.Rate(); got != 80 {
		t.Fatalf("initial local rate = %v, want 80", got)
	}

	s.Include(&l)
	want := 80 * expFactor
	if got := l.Rate(); math.Abs(got-want) > 1e-9 {
		t.Errorf("rate after one evaluation = %v, want %v", got, want)
	}

	// Decay far enough to hit the floor and stay there.
	for i := 0; i < 1000; i++ {
		s.Include(&l)
	}
	if got := l.Rate(); got != threshold {
		t.Errorf("rate after heavy observation = %v, want floor %v", got, threshold)
	}
}

// TestAdaptivePerLocation tests that locations decay independently.
func TestAdaptivePerLocation(t *testing.T) {
	s := New(Adaptive, 80, 1)
	hot := s.NewLocal()
	cold := s.NewLocal()

	for i := 0; i < 100; i++ {
		s.Include(&hot)
	}

	if hot.Rate() >= cold.Rate() {
		t.Errorf("hot location rate %v should have decayed below cold %v",
			hot.Rate(), cold.Rate())
	}
	if cold.Rate() != 80 {
		t.Errorf("untouched location rate = %v, want 80", cold.Rate())
	}
}

// TestCountersTrackOutcomes tests that local and global counters move
// together in both schemes.
func TestCountersTrackOutcomes(t *testing.T) {
	for _, scheme := range []Scheme{Count, Adaptive} {
		t.Run(scheme.String(), func(t *testing.T) {
			s := New(scheme, 50, 1)
			l := s.NewLocal()

			const trials = 1000
			for i := 0; i < trials; i++ {
				s.Include(&l)
			}

			ls, ln := l.Counts()
			gs, gn := s.Stats()
			// Both start at the sentinel value 1.
			if ls+ln != trials+2 {
				t.Errorf("local counters sum = %d, want %d", ls+ln, trials+2)
			}
			if gs != ls || gn != ln {
				t.Errorf("global counters (%d, %d) diverge from local (%d, %d)",
					gs, gn, ls, ln)
			}
		})
	}
}

// TestClamping tests constructor normalization of out-of-range options.
func TestClamping(t *testing.T) {
	if got := New(Count, -5, 1).Rate(); got != 0 {
		t.Errorf("Rate() with negative input = %d, want 0", got)
	}
	if got := New(Count, 150, 1).Rate(); got != 100 {
		t.Errorf("Rate() with oversized input = %d, want 100", got)
	}
}

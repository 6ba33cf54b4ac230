// Package sampler implements the adaptive sampling controller that decides
// whether a given memory access participates in race analysis.
//
// Two schemes are supported, selected at startup:
//
//   - Count: a single global pair of counters enforces an empirical sampled
//     fraction converging to rate/100 across the whole process.
//   - Adaptive: each shadow location carries its own counters and a sampling
//     rate that decays exponentially toward a floor as the location is
//     observed repeatedly, so hot locations are sampled ever more sparsely.
//
// All counters are relaxed atomics. Occasional lost increments under
// contention are tolerated: they only perturb the sampled fraction, never the
// soundness of the accesses that are analyzed.
package sampler

import (
	"math"
	"sync/atomic"
)

// Scheme selects the sampling strategy.
type Scheme int

const (
	// Count samples against process-global counters.
	Count Scheme = iota
	// Adaptive samples against per-location counters with a decaying rate.
	Adaptive
)

// String returns the option spelling of the scheme.
func (s Scheme) String() string {
	switch s {
	case Count:
		return "COUNT"
	case Adaptive:
		return "ADAPTIVE"
	default:
		return "UNKNOWN"
	}
}

// expFactor is the per-evaluation decay applied to a location's sampling
// rate under the Adaptive scheme: rate *= e^(-1/100).
var expFactor = math.Exp(-1.0 / 100.0)

// Sampler holds the global sampling state and configuration.
type Sampler struct {
	scheme    Scheme
	rate      int64   // inclusion percentage, 0-100
	threshold float64 // floor for the adaptive per-location rate

	// Global counters, initialized to 1 so the inclusion inequality is
	// well-defined from the first access. Bumped in both schemes.
	sampled    uint64
	notSampled uint64
}

// Local is the per-location sampling state embedded in each shadow cell.
//
// The zero value is not usable; obtain one from Sampler.NewLocal so the
// counters and the starting rate are initialized.
type Local struct {
	sampled    uint64
	notSampled uint64
	rateBits   uint64 // math.Float64bits of the decaying rate
}

// New creates a sampler with the given scheme, inclusion percentage
// (clamped to 0-100) and adaptive floor.
func New(scheme Scheme, rate int, threshold float64) *Sampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	if threshold < 0 {
		threshold = 0
	}
	return &Sampler{
		scheme:     scheme,
		rate:       int64(rate),
		threshold:  threshold,
		sampled:    1,
		notSampled: 1,
	}
}

// Scheme returns the configured scheme.
func (s *Sampler) Scheme() Scheme {
	return s.scheme
}

// Rate returns the configured inclusion percentage.
func (s *Sampler) Rate() int {
	return int(s.rate)
}

// NewLocal builds the initial per-location state: counters at 1 and the
// decaying rate starting from the configured global rate.
func (s *Sampler) NewLocal() Local {
	return Local{
		sampled:    1,
		notSampled: 1,
		rateBits:   math.Float64bits(float64(s.rate)),
	}
}

// include is the shared inclusion inequality: S*(100-rate) < N*rate.
// With rate 0 it is never true, with rate 100 always (N >= 1).
func include(sampled, notSampled uint64, rate float64) bool {
	return float64(sampled)*(100.0-rate) < float64(notSampled)*rate
}

// Include decides whether the access to the location owning l participates in
// analysis, and records the outcome in both the local and global counters.
//
// Under Adaptive, the location's rate decays toward the floor on every
// evaluation, included or not.
//
// This runs on every instrumented access, so it stays lock-free: counter
// updates are independent atomic adds and the rate update is a plain
// store-after-load (a lost decay step under contention is harmless).
func (s *Sampler) Include(l *Local) bool {
	var check bool
	if s.scheme == Count {
		check = include(
			atomic.LoadUint64(&s.sampled),
			atomic.LoadUint64(&s.notSampled),
			float64(s.rate))
	} else {
		localRate := math.Float64frombits(atomic.LoadUint64(&l.rateBits))
		check = include(
			atomic.LoadUint64(&l.sampled),
			atomic.LoadUint64(&l.notSampled),
			localRate)
		localRate *= expFactor
		if localRate < s.threshold {
			localRate = s.threshold
		}
		atomic.StoreUint64(&l.rateBits, math.Float64bits(localRate))
	}

	if check {
		atomic.AddUint64(&l.sampled, 1)
		atomic.AddUint64(&s.sampled, 1)
	} else {
		atomic.AddUint64(&l.notSampled, 1)
		atomic.AddUint64(&s.notSampled, 1)
	}
	return check
}

// Stats returns the global (sampled, notSampled) counters, including the two
// initial sentinel counts.
func (s *Sampler) Stats() (sampled, notSampled uint64) {
	return atomic.LoadUint64(&s.sampled), atomic.LoadUint64(&s.notSampled)
}

// Rate returns the location's current decaying rate. Meaningful only under
// the Adaptive scheme.
func (l *Local) Rate() float64 {
	return math.Float64frombits(atomic.LoadUint64(&l.rateBits))
}

// Counts returns the location's (sampled, notSampled) counters.
func (l *Local) Counts() (sampled, notSampled uint64) {
	return atomic.LoadUint64(&l.sampled), atomic.LoadUint64(&l.notSampled)
}

// Package shadowmem implements shadow memory cells for FastTrack race
// detection.
//
// Shadow memory stores the access history for every instrumented memory
// location. VarState is the basic building block - a single cell tracking the
// last write and last read(s) of one variable, plus that location's adaptive
// sampling counters.
package shadowmem

import (
	"sync"
	"sync/atomic"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/epoch"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/sampler"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"
)

// VarState stores the access state for a single memory location.
//
// Representation:
//   - w: epoch of the last write (always an epoch).
//   - r: epoch of the last read in read-exclusive mode, or the
//     epoch.ReadShared sentinel once unordered readers have been seen.
//   - cv: per-reader clock, allocated lazily on the transition to shared
//     reads. Entry cv[t] is the last-read clock of tid t. Meaningless
//     (and typically nil) while r is a plain epoch.
//
// Synchronization: every mutation of w, r, and cv happens while holding mu.
// The access fast paths additionally load w and r without the mutex; those
// loads go through the atomic words below and are used only to short-circuit
// when the observed value equals the current epoch, in which case no mutation
// is needed. If a fast path falls through, the slow path re-reads under mu
// and decides authoritatively.
//
// Sampling counters live beside the access state (see Sampling); they are
// relaxed atomics and deliberately not covered by mu.
type VarState struct {
	w uint64 // last-write epoch, atomic
	r uint64 // last-read epoch or epoch.ReadShared, atomic

	mu sync.Mutex                // slow-path monitor for w, r, cv
	cv *vectorclock.VectorClock  // per-reader clocks, valid only when shared

	sampling sampler.Local // per-location adaptive sampling state
}

// New creates the shadow state for a location on its first access, per the
// factory callback contract: a first write records the creator's epoch in the
// write slot, a first read records it in the read slot.
func New(isWrite bool, creator epoch.Epoch, local sampler.Local) *VarState {
	vs := &VarState{sampling: local}
	if isWrite {
		vs.w = uint64(creator)
	} else {
		vs.r = uint64(creator)
	}
	return vs
}

// Lock acquires this location's monitor. The slow path of every read and
// write rule runs between Lock and Unlock.
func (vs *VarState) Lock() {
	vs.mu.Lock()
}

// Unlock releases this location's monitor.
func (vs *VarState) Unlock() {
	vs.mu.Unlock()
}

// W returns the last-write epoch.
//
// Safe to call without the monitor: the unsynchronized value is only used by
// the write fast path to short-circuit on equality.
//
//go:nosplit
func (vs *VarState) W() epoch.Epoch {
	return epoch.Epoch(atomic.LoadUint64(&vs.w))
}

// SetW records a new last-write epoch. Caller holds the monitor.
func (vs *VarState) SetW(e epoch.Epoch) {
	atomic.StoreUint64(&vs.w, uint64(e))
}

// R returns the last-read epoch, or epoch.ReadShared in shared mode.
//
// Safe to call without the monitor, with the same short-circuit-only caveat
// as W.
//
//go:nosplit
func (vs *VarState) R() epoch.Epoch {
	return epoch.Epoch(atomic.LoadUint64(&vs.r))
}

// SetR records a new last-read epoch or the ReadShared sentinel. Caller holds
// the monitor.
func (vs *VarState) SetR(e epoch.Epoch) {
	atomic.StoreUint64(&vs.r, uint64(e))
}

// MakeCV allocates the per-reader clock for the read-exclusive to read-shared
// transition, sized to index at least tid size-1. Caller holds the monitor.
//
// The clock survives subsequent writes; once a location has gone shared it
// stays shared (there is no demotion back to an exclusive read epoch).
func (vs *VarState) MakeCV(size int) {
	if vs.cv == nil {
		vs.cv = vectorclock.NewSized(size)
	}
}

// CV returns the per-reader clock, nil before the first shared transition.
// Caller holds the monitor.
func (vs *VarState) CV() *vectorclock.VectorClock {
	return vs.cv
}

// GetRead returns tid's entry of the per-reader clock, zero when absent.
//
// The read fast path calls this without the monitor for the shared-same-epoch
// test. The read rule allocates cv before it stores the ReadShared sentinel
// into r, so a caller that observed r == ReadShared finds cv non-nil; the
// nil check covers the torn window anyway and falls back to the slow path.
//
//go:nosplit
func (vs *VarState) GetRead(tid int) uint64 {
	cv := vs.cv
	if cv == nil {
		return 0
	}
	return cv.Get(tid)
}

// SetRead stores tid's last-read clock in the per-reader clock. Caller holds
// the monitor and has called MakeCV.
func (vs *VarState) SetRead(tid int, clock uint64) {
	vs.cv.Set(tid, clock)
}

// Sampling returns the location's adaptive sampling state.
func (vs *VarState) Sampling() *sampler.Local {
	return &vs.sampling
}

// String returns a debug representation of the cell for shadow-state dumps.
//
// Format: "W=<epoch> R=<epoch>" or "W=<epoch> R=SHARED CV=[...]".
//
// Deliberately does not take the monitor: the rules dump shadow state while
// already holding it. Callers outside the slow path get a best-effort
// snapshot, which is all a diagnostic dump needs.
func (vs *VarState) String() string {
	r := vs.R()
	s := "W=" + vs.W().String() + " R=" + r.String()
	if r == epoch.ReadShared && vs.cv != nil {
		s += " CV=" + vs.cv.String()
	}
	return s
}

// Package threadstate implements per-thread analysis state and the
// process-wide thread registry.
//
// Each observed application thread owns a ShadowThread: its vector clock V
// and a cached current epoch E. The invariant E == epoch.New(TID, V[TID])
// holds at every observation point; the three clock transformations below are
// the only mutators and each re-establishes it.
//
// V and E are thread-local while the thread runs. The two sanctioned
// exceptions, mirrored from the runtime's guarantees: a forking parent
// initializes its child's V before the child executes, and a joiner reads the
// joinee's V after the joinee has terminated.
package threadstate

import (
	"fmt"
	"sync"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/epoch"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"
)

// ShadowThread is the analysis state of one application thread.
type ShadowThread struct {
	// TID is the thread identifier assigned by the instrumentation.
	TID int

	// V is the thread's vector clock.
	V *vectorclock.VectorClock

	// E caches epoch.New(TID, V[TID]) so the access fast paths read one
	// word instead of indexing the clock.
	E epoch.Epoch

	// BarrierRef holds the accumulator this thread maxed into at barrier
	// entry, handed back at barrier exit. Nil outside a barrier.
	BarrierRef *vectorclock.VectorClock

	// stopped is set once the thread's Stop event has been processed.
	// A stopped thread's V remains readable by a joiner.
	stopped bool
}

// Stopped reports whether the thread's Stop event has been processed.
func (st *ShadowThread) Stopped() bool {
	return st.stopped
}

// refreshEpoch re-establishes the E == V[TID] invariant after V changed.
func (st *ShadowThread) refreshEpoch() {
	st.E = epoch.New(st.TID, st.V.Get(st.TID))
}

// Tick increments the thread's own clock entry and refreshes E.
// This is the release-side step of every synchronization edge the thread
// emits (release, fork, volatile write, barrier exit, class init).
func (st *ShadowThread) Tick() {
	st.V.Tick(st.TID)
	st.refreshEpoch()
}

// Max joins another clock into V and refreshes E without ticking.
// Acquire-side step: lock acquire, join, wait return, volatile read,
// class-init observation.
func (st *ShadowThread) Max(other *vectorclock.VectorClock) {
	st.V.Max(other)
	st.refreshEpoch()
}

// MaxAndTick joins another clock into V, then ticks.
// Used where the thread both observes a clock and starts a new interval:
// child initialization at fork, barrier exit.
func (st *ShadowThread) MaxAndTick(other *vectorclock.VectorClock) {
	st.V.Max(other)
	st.V.Tick(st.TID)
	st.refreshEpoch()
}

// String formats the thread snapshot for race reports and shutdown dumps.
func (st *ShadowThread) String() string {
	return fmt.Sprintf("[tid=%-2d C=%s E=%s]", st.TID, st.V, st.E)
}

// Registry tracks live threads and the highest epoch ever assigned per tid,
// so a recycled tid always starts above any prior use.
type Registry struct {
	mu      sync.Mutex
	threads map[int]*ShadowThread

	// maxEpochPerTid records, per tid, the final clock value of every
	// thread that ever ran under that tid.
	maxEpochPerTid *vectorclock.VectorClock

	maxTid int
}

// NewRegistry creates an empty registry accepting tids in [0, maxTid].
func NewRegistry(maxTid int) *Registry {
	if maxTid <= 0 || maxTid > epoch.MaxTID {
		maxTid = epoch.MaxTID
	}
	return &Registry{
		threads:        make(map[int]*ShadowThread),
		maxEpochPerTid: vectorclock.New(),
		maxTid:         maxTid,
	}
}

// Create registers a new thread and initializes its clock state:
// V starts at all zeros, V[tid] is seeded one past the tid's historical
// maximum, E is cached, and the clock is ticked once so the thread's first
// interval is distinct from its creation point.
//
// Create is idempotent for a live tid (the existing state is returned), which
// tolerates an agent that emits NewThread both at fork and at first run. A
// tid whose previous occupant has stopped is recycled: the new state seeds
// above the old one's final epoch.
func (r *Registry) Create(tid int) *ShadowThread {
	if tid < 0 || tid > r.maxTid {
		panic(fmt.Sprintf("threadstate: tid %d outside configured range [0, %d]", tid, r.maxTid))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.threads[tid]; ok && !st.stopped {
		return st
	}

	st := &ShadowThread{
		TID: tid,
		V:   vectorclock.New(),
	}
	seed := r.maxEpochPerTid.Get(tid) + 1
	st.V.Set(tid, seed)
	st.refreshEpoch()
	st.Tick()

	r.threads[tid] = st
	return st
}

// Get returns the state registered for a tid, live or stopped (a stopped
// entry stays readable until the tid is recycled, so a Join arriving after
// the joinee's Stop still finds its clock). A missing tid is a wiring
// mistake in the instrumentation collaborator and is treated as fatal.
func (r *Registry) Get(tid int) *ShadowThread {
	r.mu.Lock()
	st, ok := r.threads[tid]
	r.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("threadstate: event for unknown tid %d (missing NewThread?)", tid))
	}
	return st
}

// Lookup returns the state registered for a tid, nil if the tid is unknown.
func (r *Registry) Lookup(tid int) *ShadowThread {
	r.mu.Lock()
	st := r.threads[tid]
	r.mu.Unlock()
	return st
}

// Stop records the thread's final epoch into maxEpochPerTid and marks the
// tid recyclable. The ShadowThread itself stays valid for a subsequent join.
func (r *Registry) Stop(st *ShadowThread) {
	r.mu.Lock()
	r.maxEpochPerTid.Set(st.TID, st.E.Clock())
	st.stopped = true
	r.mu.Unlock()
}

// MaxEpoch returns the highest clock ever recorded for tid at a Stop.
func (r *Registry) MaxEpoch(tid int) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxEpochPerTid.Get(tid)
}

// Snapshot returns every registered thread state, live and stopped, for the
// shutdown thread dump. Ordering is unspecified; callers sort by TID when
// they need determinism.
func (r *Registry) Snapshot() []*ShadowThread {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ShadowThread, 0, len(r.threads))
	for _, st := range r.threads {
		out = append(out, st)
	}
	return out
}

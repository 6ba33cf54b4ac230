// Package syncstate implements the clocks attached to synchronization
// objects: locks, volatile variables, barriers, and classes.
//
// Each kind of object carries one vector clock plus whatever bookkeeping its
// protocol needs. States are created lazily on first use and keyed by the
// identity the instrumentation reports (object address for locks, volatiles
// and barriers; class name for class-init clocks).
//
// Every state carries its own monitor; the engine never holds two syncstate
// monitors at once, so no lock ordering discipline is needed.
package syncstate

import (
	"sync"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/threadstate"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"
)

// LockState holds the release clock of one application lock.
//
// The clock carries the happens-before knowledge of the last releasing
// thread (merged, since nested wait/notify can interleave releases).
type LockState struct {
	mu sync.Mutex
	v  *vectorclock.VectorClock
}

// Acquire merges the lock's clock into the acquiring thread:
// V := V ⊔ L; E := V[tid].
func (ls *LockState) Acquire(st *threadstate.ShadowThread) {
	ls.mu.Lock()
	st.Max(ls.v)
	ls.mu.Unlock()
}

// Release merges the releasing thread's clock into the lock and advances the
// thread into a fresh interval: L := L ⊔ V; V.tick(tid); E := V[tid].
func (ls *LockState) Release(st *threadstate.ShadowThread) {
	ls.mu.Lock()
	ls.v.Max(st.V)
	ls.mu.Unlock()
	st.Tick()
}

// Clock returns a snapshot copy of the lock's clock, for tests and dumps.
func (ls *LockState) Clock() *vectorclock.VectorClock {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.v.Clone()
}

// VolatileState holds the clock of one volatile variable. A volatile write
// publishes the writer's clock; a volatile read observes it, giving the
// reader ordering with everything before the write.
type VolatileState struct {
	mu sync.Mutex
	v  *vectorclock.VectorClock
}

// ReadBy merges the volatile's clock into the reading thread.
func (vs *VolatileState) ReadBy(st *threadstate.ShadowThread) {
	vs.mu.Lock()
	st.Max(vs.v)
	vs.mu.Unlock()
}

// WrittenBy merges the writer's clock into the volatile and ticks the writer.
func (vs *VolatileState) WrittenBy(st *threadstate.ShadowThread) {
	vs.mu.Lock()
	vs.v.Max(st.V)
	vs.mu.Unlock()
	st.Tick()
}

// InitBy merges the creating thread's clock into a fresh volatile's clock.
// This is the factory-callback path for volatile locations, which get no
// shadow variable of their own.
func (vs *VolatileState) InitBy(st *threadstate.ShadowThread) {
	vs.mu.Lock()
	vs.v.Max(st.V)
	vs.mu.Unlock()
}

// Clock returns a snapshot copy of the volatile's clock.
func (vs *VolatileState) Clock() *vectorclock.VectorClock {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.v.Clone()
}

// BarrierState accumulates the clocks of threads entering a barrier round and
// hands the finalized accumulator back to each thread at exit.
type BarrierState struct {
	mu sync.Mutex

	// entering is the current round's accumulator. The first thread to
	// exit retires it: a fresh clock is swapped in so late entrants of the
	// next round never pollute a finalized accumulator, and no thread
	// holds a stale reference across rounds.
	entering *vectorclock.VectorClock
}

// Enter folds the entering thread's clock into the round accumulator and
// parks a reference to it on the thread for the matching Exit.
func (bs *BarrierState) Enter(st *threadstate.ShadowThread) {
	bs.mu.Lock()
	bs.entering.Max(st.V)
	st.BarrierRef = bs.entering
	bs.mu.Unlock()
}

// Exit retires the round's accumulator if this thread is the first one out,
// then merges the accumulated clock into the thread and ticks it:
// V := V ⊔ B; V.tick(tid); E := V[tid].
func (bs *BarrierState) Exit(st *threadstate.ShadowThread) {
	bs.mu.Lock()
	ref := st.BarrierRef
	st.BarrierRef = nil
	if ref == nil {
		// Exit without a matching Enter is an agent wiring mistake;
		// treat the current accumulator as this thread's round.
		ref = bs.entering
	}
	if ref == bs.entering {
		bs.entering = vectorclock.New()
	}
	st.MaxAndTick(ref)
	bs.mu.Unlock()
}

// ClassSet is the process-wide table of class-initialization clocks,
// guarded by a single monitor.
type ClassSet struct {
	mu      sync.Mutex
	classes map[string]*vectorclock.VectorClock
}

// NewClassSet creates an empty class-init table.
func NewClassSet() *ClassSet {
	return &ClassSet{classes: make(map[string]*vectorclock.VectorClock)}
}

// clockLocked returns the class's clock, creating it on first use.
// Caller holds cs.mu.
func (cs *ClassSet) clockLocked(class string) *vectorclock.VectorClock {
	v, ok := cs.classes[class]
	if !ok {
		v = vectorclock.New()
		cs.classes[class] = v
	}
	return v
}

// Initialized records that the running thread finished initializing the
// class: the class clock becomes a copy of the thread's clock, and the
// thread ticks into a fresh interval.
func (cs *ClassSet) Initialized(class string, st *threadstate.ShadowThread) {
	cs.mu.Lock()
	cs.clockLocked(class).Copy(st.V)
	cs.mu.Unlock()
	st.Tick()
}

// AccessedBy merges the class's init clock into a thread touching the class
// for the first time, ordering its static accesses after initialization.
func (cs *ClassSet) AccessedBy(class string, st *threadstate.ShadowThread) {
	cs.mu.Lock()
	st.Max(cs.clockLocked(class))
	cs.mu.Unlock()
}

// Tables bundles the lazily-populated maps from object identity to state.
//
// sync.Map fits all three: states are stored once and looked up on every
// subsequent event for the same object.
type Tables struct {
	locks     sync.Map // map[uintptr]*LockState
	volatiles sync.Map // map[uintptr]*VolatileState
	barriers  sync.Map // map[uintptr]*BarrierState
}

// NewTables creates empty sync-object tables.
func NewTables() *Tables {
	return &Tables{}
}

// Lock returns the state for a lock identity, creating it on first use.
func (t *Tables) Lock(key uintptr) *LockState {
	if val, ok := t.locks.Load(key); ok {
		return val.(*LockState)
	}
	ls := &LockState{v: vectorclock.New()}
	val, _ := t.locks.LoadOrStore(key, ls)
	return val.(*LockState)
}

// Volatile returns the state for a volatile identity, creating it on first
// use. created reports whether this call performed the creation, so the
// engine can run the factory-callback merge exactly once per volatile.
func (t *Tables) Volatile(key uintptr) (vs *VolatileState, created bool) {
	if val, ok := t.volatiles.Load(key); ok {
		return val.(*VolatileState), false
	}
	fresh := &VolatileState{v: vectorclock.New()}
	val, loaded := t.volatiles.LoadOrStore(key, fresh)
	return val.(*VolatileState), !loaded
}

// Barrier returns the state for a barrier identity, creating it on first use.
func (t *Tables) Barrier(key uintptr) *BarrierState {
	if val, ok := t.barriers.Load(key); ok {
		return val.(*BarrierState)
	}
	bs := &BarrierState{entering: vectorclock.New()}
	val, _ := t.barriers.LoadOrStore(key, bs)
	return val.(*BarrierState)
}

// Reset forgets all sync-object state. Test setup/teardown only.
func (t *Tables) Reset() {
	t.locks = sync.Map{}
	t.volatiles = sync.Map{}
	t.barriers = sync.Map{}
}

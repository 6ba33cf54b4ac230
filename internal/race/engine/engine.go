// Package engine implements the FastTrack-with-Sampling analysis core: the
// read/write decision rules and the synchronization-event handlers that
// maintain the shadow state.
//
// The engine runs inline in the observed threads' contexts; there is no
// scheduler of its own. Every handler executes on the thread that caused the
// event, takes only the monitors named in its rule (per-variable, per-barrier,
// the class-init table, the tid table), and never blocks on I/O.
package engine

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/counters"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/epoch"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/event"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/report"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/sampler"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/shadowmem"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/syncstate"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/threadstate"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"
)

// Options configures an Engine.
type Options struct {
	// SamplingRate is the inclusion percentage, at most 100.
	// 100 (the default) analyzes every access. A zero value selects the
	// default, so a rate of 0 cannot be configured; negative values are
	// fatal.
	SamplingRate int

	// SamplingScheme selects global (Count) or per-location (Adaptive)
	// sampling.
	SamplingScheme sampler.Scheme

	// AdaptiveThreshold is the floor the per-location rate decays toward
	// under the Adaptive scheme. Default 1.
	AdaptiveThreshold float64

	// MaxTid bounds the tids the instrumentation may report and sizes the
	// per-tid counter slots. Default 1024.
	MaxTid int

	// CountOperations enables the per-tid rule-outcome counters.
	CountOperations bool

	// ReportLimit is the per-site report budget before the site is
	// advanced. Default 1: each race site is reported once.
	ReportLimit int

	// CaptureStacks includes the current thread's call stack in reports.
	CaptureStacks bool

	// Sink receives race reports. Defaults to a console sink on Output.
	Sink report.Sink

	// Output receives the console sink's reports and the shutdown dump.
	// Default os.Stderr.
	Output io.Writer
}

// withDefaults fills in the zero-value fields.
func (o Options) withDefaults() Options {
	if o.SamplingRate == 0 {
		o.SamplingRate = 100
	}
	if o.AdaptiveThreshold == 0 {
		o.AdaptiveThreshold = 1
	}
	if o.MaxTid == 0 {
		o.MaxTid = 1024
	}
	if o.ReportLimit == 0 {
		o.ReportLimit = 1
	}
	if o.Output == nil {
		o.Output = os.Stderr
	}
	if o.Sink == nil {
		o.Sink = report.NewConsoleSink(o.Output)
	}
	return o
}

// Engine is the analysis core. All process-wide state - the tid table, the
// class-init clocks, the sampling counters, the reporter - hangs off the
// engine rather than package globals, with explicit construction and
// Shutdown.
type Engine struct {
	registry *threadstate.Registry
	shadow   *shadowmem.ShadowMemory
	tables   *syncstate.Tables
	classes  *syncstate.ClassSet
	sampler  *sampler.Sampler
	errs     *report.Messages

	count    *counters.Set
	countOps bool

	captureStacks bool
	out           io.Writer
}

// New constructs an engine from the given options.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	if opts.SamplingRate < 0 || opts.SamplingRate > 100 {
		panic(fmt.Sprintf("engine: sampling rate %d outside [0, 100]", opts.SamplingRate))
	}

	return &Engine{
		registry:      threadstate.NewRegistry(opts.MaxTid),
		shadow:        shadowmem.NewShadowMemory(),
		tables:        syncstate.NewTables(),
		classes:       syncstate.NewClassSet(),
		sampler:       sampler.New(opts.SamplingScheme, opts.SamplingRate, opts.AdaptiveThreshold),
		errs:          report.NewMessages(opts.Sink, opts.ReportLimit),
		count:         counters.NewSet(opts.MaxTid),
		countOps:      opts.CountOperations,
		captureStacks: opts.CaptureStacks,
		out:           opts.Output,
	}
}

// Handle dispatches one event from the instrumentation stream. An event kind
// the engine does not know is a wiring mistake and fatal.
func (e *Engine) Handle(ev event.Event) {
	switch v := ev.(type) {
	case event.NewThread:
		e.Create(v.TID)
	case event.Start:
		e.Fork(v.Parent, v.Child)
	case event.Join:
		e.Join(v.Joiner, v.Joinee)
	case event.Stop:
		e.Stop(v.TID)
	case event.Access:
		e.Access(v)
	case event.Acquire:
		e.Acquire(v.Lock, v.TID)
	case event.Release:
		e.Release(v.Lock, v.TID)
	case event.PreWait:
		e.PreWait(v.Lock, v.TID)
	case event.PostWait:
		e.PostWait(v.Lock, v.TID)
	case event.PreNotify:
		e.other(v.TID)
	case event.PostNotify:
		e.other(v.TID)
	case event.BarrierEnter:
		e.BarrierEnter(v.Barrier, v.TID)
	case event.BarrierExit:
		e.BarrierExit(v.Barrier, v.TID)
	case event.ClassInitialized:
		e.ClassInitialized(v.Class, v.TID)
	case event.ClassAccessed:
		e.ClassAccessed(v.Class, v.TID)
	default:
		panic(fmt.Sprintf("engine: unknown event type %T", ev))
	}
}

// Create registers a new thread per the tid-recycling rules.
func (e *Engine) Create(tid int) *threadstate.ShadowThread {
	return e.registry.Create(tid)
}

// Fork establishes parent-before-child ordering:
// child.V ⊔= parent.V, child ticks; parent ticks into a fresh interval.
//
// The child's V is safe to touch here even though it belongs to the child:
// the runtime guarantees a forked thread synchronizes with its parent before
// it does anything else.
func (e *Engine) Fork(parent, child int) {
	st := e.registry.Get(parent)
	su := e.registry.Get(child)

	su.MaxAndTick(st.V)
	st.Tick()

	if e.countOps {
		e.count.Fork.Inc(st.TID)
	}
}

// Join moves the joiner's clock past everything the joinee did. The joinee
// has terminated, so reading its V needs no lock. The joinee's clock is not
// ticked; that step in the original FastTrack rules existed only for the
// proof.
func (e *Engine) Join(joiner, joinee int) {
	st := e.registry.Get(joiner)
	su := e.registry.Get(joinee)

	st.Max(su.V)

	if e.countOps {
		e.count.Join.Inc(st.TID)
	}
}

// Stop flushes the thread's final epoch into the tid-reuse table.
func (e *Engine) Stop(tid int) {
	st := e.registry.Get(tid)
	e.registry.Stop(st)

	if e.countOps {
		e.count.Other.Inc(st.TID)
	}
}

// Acquire observes the lock's release clock: V ⊔= L.
func (e *Engine) Acquire(lock uintptr, tid int) {
	st := e.registry.Get(tid)
	e.tables.Lock(lock).Acquire(st)

	if e.countOps {
		e.count.Acquire.Inc(st.TID)
	}
}

// Release publishes the thread's clock to the lock and ticks: L ⊔= V; tick.
func (e *Engine) Release(lock uintptr, tid int) {
	st := e.registry.Get(tid)
	e.tables.Lock(lock).Release(st)

	if e.countOps {
		e.count.Release.Inc(st.TID)
	}
}

// PreWait is release-like on the monitor about to be given up inside wait.
func (e *Engine) PreWait(lock uintptr, tid int) {
	st := e.registry.Get(tid)
	e.tables.Lock(lock).Release(st)

	if e.countOps {
		e.count.Wait.Inc(st.TID)
	}
}

// PostWait is acquire-like on the reobtained monitor after wait returns.
func (e *Engine) PostWait(lock uintptr, tid int) {
	st := e.registry.Get(tid)
	e.tables.Lock(lock).Acquire(st)

	if e.countOps {
		e.count.Wait.Inc(st.TID)
	}
}

// other covers events with no clock effect of their own (notify: the
// surrounding monitor release/acquire already carries the ordering).
func (e *Engine) other(tid int) {
	if e.countOps {
		e.count.Other.Inc(tid)
	}
}

// BarrierEnter folds the thread's clock into the barrier's round accumulator.
func (e *Engine) BarrierEnter(barrier uintptr, tid int) {
	st := e.registry.Get(tid)
	e.tables.Barrier(barrier).Enter(st)

	if e.countOps {
		e.count.Barrier.Inc(st.TID)
	}
}

// BarrierExit hands the accumulated round clock back to the thread:
// V ⊔= B; tick.
func (e *Engine) BarrierExit(barrier uintptr, tid int) {
	st := e.registry.Get(tid)
	e.tables.Barrier(barrier).Exit(st)

	if e.countOps {
		e.count.Barrier.Inc(st.TID)
	}
}

// ClassInitialized snapshots the initializing thread's clock as the class's
// init time and ticks the thread.
func (e *Engine) ClassInitialized(class string, tid int) {
	st := e.registry.Get(tid)
	e.classes.Initialized(class, st)

	if e.countOps {
		e.count.Other.Inc(st.TID)
	}
}

// ClassAccessed orders a thread's first use of a class after that class's
// initialization.
func (e *Engine) ClassAccessed(class string, tid int) {
	st := e.registry.Get(tid)
	e.classes.AccessedBy(class, st)

	if e.countOps {
		e.count.Other.Inc(st.TID)
	}
}

// Access runs one memory access through the sampling gate and, if included,
// the FastTrack read/write rules. Volatile accesses bypass sampling and the
// shadow variable entirely; they are synchronization, not data.
func (e *Engine) Access(a event.Access) {
	if a.Kind == event.Volatile {
		e.volatileAccess(a)
		return
	}

	st := e.registry.Get(a.TID)
	sx, created := e.shadow.GetOrCreate(a.Target, func() *shadowmem.VarState {
		return shadowmem.New(a.IsWrite, st.E, e.sampler.NewLocal())
	})
	if created {
		// The factory recorded this access (W or R = creator's epoch);
		// nothing is left for the rules to decide.
		return
	}

	if !e.sampler.Include(sx.Sampling()) {
		return
	}

	if a.Static {
		// Static-field accesses happen-after the owner's initializer.
		// Merging here cannot change the current epoch: the class clock
		// never carries this thread's own entry past V[tid].
		e.classes.AccessedBy(a.Class, st)
	}

	if a.IsWrite {
		e.write(&a, st, sx)
	} else {
		e.read(&a, st, sx)
	}
}

// volatileAccess applies the volatile handshake: a write publishes the
// writer's clock to the volatile and ticks, a read observes the volatile's
// clock. First touch additionally runs the factory merge for the creating
// thread.
func (e *Engine) volatileAccess(a event.Access) {
	st := e.registry.Get(a.TID)
	vs, created := e.tables.Volatile(a.Target)
	if created {
		vs.InitBy(st)
	}

	if a.IsWrite {
		vs.WrittenBy(st)
	} else {
		vs.ReadBy(st)
	}

	if e.countOps {
		e.count.Volatile.Inc(st.TID)
	}
}

// read applies the FastTrack read rules.
func (e *Engine) read(a *event.Access, st *threadstate.ShadowThread, sx *shadowmem.VarState) {
	cur := st.E
	tid := st.TID

	// Fast path: unsynchronized observation of R, used only to
	// short-circuit when no mutation is needed.
	{
		r := sx.R()
		if r == cur {
			if e.countOps {
				e.count.ReadSameEpoch.Inc(tid)
			}
			return
		}
		if r == epoch.ReadShared && sx.GetRead(tid) == cur.Clock() {
			if e.countOps {
				e.count.ReadSharedSameEpoch.Inc(tid)
			}
			return
		}
	}

	sx.Lock()
	defer sx.Unlock()

	tV := st.V
	r := sx.R()
	w := sx.W()
	wTid := w.TID()

	if wTid != tid && !w.LEQ(tV) {
		if e.countOps {
			e.count.WriteReadError.Inc(tid)
		}
		e.race(a, sx, st, report.KindWriteRead, "Write by", wTid, "Read by", tid)
		// Best-effort recovery: the read is not recorded, analysis
		// continues on later accesses.
		return
	}

	if r != epoch.ReadShared {
		rTid := r.TID()
		if rTid == tid || r.LEQ(tV) {
			// Read Exclusive: the previous read is ordered before us.
			if e.countOps {
				e.count.ReadExclusive.Inc(tid)
			}
			sx.SetR(cur)
		} else {
			// Read Share: a second unordered reader. Record both
			// readers in the per-reader clock, then publish the
			// sentinel. cv must be in place before R flips so the
			// unsynchronized shared-same-epoch test never sees
			// ReadShared with a nil clock.
			if e.countOps {
				e.count.ReadShare.Inc(tid)
			}
			size := rTid
			if tid > size {
				size = tid
			}
			sx.MakeCV(size + 1)
			sx.SetRead(rTid, r.Clock())
			sx.SetRead(tid, cur.Clock())
			sx.SetR(epoch.ReadShared)
		}
	} else {
		// Read Shared: already in shared mode, update our slot.
		if e.countOps {
			e.count.ReadShared.Inc(tid)
		}
		sx.SetRead(tid, cur.Clock())
	}
}

// write applies the FastTrack write rules.
func (e *Engine) write(a *event.Access, st *threadstate.ShadowThread, sx *shadowmem.VarState) {
	cur := st.E
	tid := st.TID

	// Fast path: same-epoch writes need no further analysis.
	if sx.W() == cur {
		if e.countOps {
			e.count.WriteSameEpoch.Inc(tid)
		}
		return
	}

	sx.Lock()
	defer sx.Unlock()

	tV := st.V
	w := sx.W()
	wTid := w.TID()

	if wTid != tid && !w.LEQ(tV) {
		if e.countOps {
			e.count.WriteWriteError.Inc(tid)
		}
		e.race(a, sx, st, report.KindWriteWrite, "Write by", wTid, "Write by", tid)
		// Reporting does not abort the update; fall through.
	}

	r := sx.R()
	if r != epoch.ReadShared {
		rTid := r.TID()
		if rTid != tid && !r.LEQ(tV) {
			if e.countOps {
				e.count.ReadWriteError.Inc(tid)
			}
			e.race(a, sx, st, report.KindReadWrite, "Read by", rTid, "Write by", tid)
		} else {
			if e.countOps {
				e.count.WriteExclusive.Inc(tid)
			}
		}
	} else {
		cv := sx.CV()
		if cv.AnyGT(tV) {
			// Every shared reader unordered with this write races
			// with it; enumerate each exactly once, ascending.
			for prev := cv.NextGT(tV, 0); prev > -1; prev = cv.NextGT(tV, prev+1) {
				e.race(a, sx, st, report.KindSharedWrite, "Read by", prev, "Write by", tid)
			}
			if e.countOps {
				e.count.SharedWriteError.Inc(tid)
			}
		} else {
			if e.countOps {
				e.count.WriteShared.Inc(tid)
			}
		}
	}

	// Unconditional: the write is recorded even after a report, so
	// subsequent accesses remain analyzable.
	sx.SetW(cur)
}

// race assembles and emits one report, subject to the site's budget.
func (e *Engine) race(a *event.Access, sx *shadowmem.VarState, st *threadstate.ShadowThread,
	kind, prevOp string, prevTid int, curOp string, curTid int) {

	if prevTid == curTid {
		// The rules only report cross-thread conflicts; same-tid here
		// means the epoch bookkeeping is corrupt.
		panic(fmt.Sprintf("engine: race reported against own tid %d at %s", curTid, a.Site()))
	}

	site := a.Site()
	if !e.errs.StillLooking(site) {
		return
	}

	var desc string
	if a.Kind == event.Field {
		desc = a.Class + "." + a.Field
	} else {
		desc = fmt.Sprintf("array 0x%x[%d]", a.Target, a.Index)
	}

	r := &report.Report{
		Kind:        kind,
		Description: desc,
		PrevOp:      prevOp,
		PrevTID:     prevTid,
		CurOp:       curOp,
		CurTID:      curTid,
		ShadowState: sx.String(),
		Thread:      st.String(),
		Loc:         a.Loc,
	}
	if e.captureStacks {
		r.Stack = report.CaptureStack(2)
	}
	e.errs.Race(site, r)
}

// Registry exposes the thread table to the public facade and tests.
func (e *Engine) Registry() *threadstate.Registry {
	return e.registry
}

// Counters exposes the counter set for tests and embedders.
func (e *Engine) Counters() *counters.Set {
	return e.count
}

// SamplerStats returns the global (sampled, notSampled) counters.
func (e *Engine) SamplerStats() (sampled, notSampled uint64) {
	return e.sampler.Stats()
}

// LockClock returns a snapshot of a lock's clock, for tests.
func (e *Engine) LockClock(lock uintptr) *vectorclock.VectorClock {
	return e.tables.Lock(lock).Clock()
}

// ShadowOf returns the shadow cell for a location if one exists, for tests
// and dumps.
func (e *Engine) ShadowOf(target uintptr) *shadowmem.VarState {
	return e.shadow.Get(target)
}

// Shutdown writes the end-of-run summary: the per-thread clock dump and,
// when operation counting is on, the aggregated counters.
func (e *Engine) Shutdown() {
	threads := e.registry.Snapshot()
	sort.Slice(threads, func(i, j int) bool { return threads[i].TID < threads[j].TID })
	for _, st := range threads {
		fmt.Fprintf(e.out, "thread %s\n", st)
	}

	if e.countOps {
		e.count.Dump(e.out)
	}
}

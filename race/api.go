// Package race provides the public API for the FastTrack-with-Sampling race
// detection engine.
//
// See doc.go for detailed documentation and examples.
package race

import (
	"io"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/engine"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/event"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/report"
	"github.com/rishav1606/CS636-Roadrunner/internal/race/sampler"
)

// Sampling schemes, selected at startup via Options.SamplingScheme.
const (
	// SamplingCount gates accesses against process-global counters.
	SamplingCount = sampler.Count
	// SamplingAdaptive gates each location against its own decaying rate.
	SamplingAdaptive = sampler.Adaptive
)

// Re-exported stream types. The instrumentation collaborator constructs
// these and feeds them to Detector.Handle (or calls the typed methods
// directly).
type (
	// Event is the sealed union of stream event kinds.
	Event = event.Event
	// AccessEvent is a field, array, or volatile access.
	AccessEvent = event.Access
	// Location is a source position attached to an access.
	Location = event.Location
	// Report is a structured race report delivered to a Sink.
	Report = report.Report
	// Sink consumes race reports.
	Sink = report.Sink
	// Options configures a Detector.
	Options = engine.Options
)

// Access kinds.
const (
	KindField    = event.Field
	KindArray    = event.Array
	KindVolatile = event.Volatile
)

// Detector is one analysis instance: shadow state, sampling controller, and
// reporter. All methods are safe for concurrent use from the observed
// threads.
type Detector struct {
	eng *engine.Engine
}

// NewDetector creates a detector. The zero Options value analyzes every
// access (rate 100, COUNT scheme), accepts tids up to 1024, and reports each
// race site once to stderr.
func NewDetector(opts Options) *Detector {
	return &Detector{eng: engine.New(opts)}
}

// Handle dispatches one stream event.
func (d *Detector) Handle(ev Event) {
	d.eng.Handle(ev)
}

// NewThread announces a thread before any of its other events.
func (d *Detector) NewThread(tid int) {
	d.eng.Create(tid)
}

// Fork records that parent started child (child's NewThread already seen).
func (d *Detector) Fork(parent, child int) {
	d.eng.Fork(parent, child)
}

// Join records that joiner observed joinee's termination.
func (d *Detector) Join(joiner, joinee int) {
	d.eng.Join(joiner, joinee)
}

// Stop records a thread's termination and banks its final epoch for tid
// reuse.
func (d *Detector) Stop(tid int) {
	d.eng.Stop(tid)
}

// Access runs one memory access through sampling and the FastTrack rules.
func (d *Detector) Access(a AccessEvent) {
	d.eng.Access(a)
}

// Acquire records a lock acquisition by tid.
func (d *Detector) Acquire(lock uintptr, tid int) {
	d.eng.Acquire(lock, tid)
}

// Release records a lock release by tid.
func (d *Detector) Release(lock uintptr, tid int) {
	d.eng.Release(lock, tid)
}

// PreWait records that tid is about to release the monitor inside a wait.
func (d *Detector) PreWait(lock uintptr, tid int) {
	d.eng.PreWait(lock, tid)
}

// PostWait records that tid reacquired the monitor after a wait.
func (d *Detector) PostWait(lock uintptr, tid int) {
	d.eng.PostWait(lock, tid)
}

// BarrierEnter records tid arriving at a barrier.
func (d *Detector) BarrierEnter(barrier uintptr, tid int) {
	d.eng.BarrierEnter(barrier, tid)
}

// BarrierExit records tid leaving a barrier.
func (d *Detector) BarrierExit(barrier uintptr, tid int) {
	d.eng.BarrierExit(barrier, tid)
}

// ClassInitialized records that tid finished a class initializer.
func (d *Detector) ClassInitialized(class string, tid int) {
	d.eng.ClassInitialized(class, tid)
}

// ClassAccessed records tid's first use of a class before a static access.
func (d *Detector) ClassAccessed(class string, tid int) {
	d.eng.ClassAccessed(class, tid)
}

// Shutdown writes the end-of-run thread dump and counter aggregates.
func (d *Detector) Shutdown() {
	d.eng.Shutdown()
}

// NewConsoleSink returns a sink that writes human-readable reports to w.
func NewConsoleSink(w io.Writer) Sink {
	return report.NewConsoleSink(w)
}

// Package report implements the boundary to the error-reporting
// collaborators: structured race reports, per-site de-duplication with the
// advance protocol, and the console sink.
//
// Race reports are the detector's product, not its errors. Reporting is a
// stateless emission; the engine continues analyzing after every report.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/event"
)

// Race kind names, as the rules emit them.
const (
	KindWriteRead   = "Write-Read Race"
	KindReadWrite   = "Read-Write Race"
	KindWriteWrite  = "Write-Write Race"
	KindSharedWrite = "Read(Shared)-Write Race"
)

// Report is one detected happens-before violation.
type Report struct {
	// Kind is one of the Kind* constants.
	Kind string

	// Description names the offending access: "owner.field" for fields,
	// "array 0x<target>[index]" for array elements.
	Description string

	// PrevOp / CurOp say what each participant did ("Write by", "Read by").
	PrevOp  string
	PrevTID int
	CurOp   string
	CurTID  int

	// ShadowState is the offending location's shadow dump at report time.
	ShadowState string

	// Thread is the current thread's snapshot ([tid=.. C=.. E=..]).
	Thread string

	// Loc is the source position of the current access.
	Loc event.Location

	// Stack is the current thread's captured call stack, possibly empty
	// when capture is disabled.
	Stack []Frame
}

// Sink consumes race reports. Implementations decide presentation; the
// engine has already applied per-site de-duplication by the time a report
// reaches a sink.
type Sink interface {
	Race(r *Report)
}

// Messages applies the per-site reporting budget in front of a Sink.
//
// A site (field identity or array access position) starts out "interesting".
// Each report consumes budget; once exhausted the site is advanced and the
// engine stops reporting from it. This mirrors the original tool's
// ErrorMessage.stillLooking / advance protocol with the default budget of
// one report per site.
type Messages struct {
	mu     sync.Mutex
	counts map[string]int
	limit  int
	sink   Sink
}

// NewMessages wraps sink with a per-site budget of limit reports.
// A limit below 1 is treated as 1.
func NewMessages(sink Sink, limit int) *Messages {
	if limit < 1 {
		limit = 1
	}
	return &Messages{
		counts: make(map[string]int),
		limit:  limit,
		sink:   sink,
	}
}

// StillLooking reports whether the site has remaining budget. The engine
// consults this before assembling a report, so advanced sites cost nothing
// beyond the rule evaluation itself.
func (m *Messages) StillLooking(site string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[site] < m.limit
}

// Race forwards the report to the sink if the site still has budget and
// consumes one unit. Reports for advanced sites are dropped.
func (m *Messages) Race(site string, r *Report) {
	m.mu.Lock()
	looking := m.counts[site] < m.limit
	if looking {
		m.counts[site]++
	}
	m.mu.Unlock()

	if looking {
		m.sink.Race(r)
	}
}

// Races returns how many reports have been emitted for the site.
func (m *Messages) Races(site string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[site]
}

// ConsoleSink writes human-readable race reports to a writer. Writes are
// serialized so concurrent reports never interleave.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Race formats one report.
func (c *ConsoleSink) Race(r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "==================\n")
	fmt.Fprintf(c.w, "WARNING: DATA RACE (%s)\n", r.Kind)
	fmt.Fprintf(c.w, "Target:         %s\n", r.Description)
	fmt.Fprintf(c.w, "Previous op:    %s tid %d\n", r.PrevOp, r.PrevTID)
	fmt.Fprintf(c.w, "Current op:     %s tid %d\n", r.CurOp, r.CurTID)
	fmt.Fprintf(c.w, "Shadow state:   %s\n", r.ShadowState)
	fmt.Fprintf(c.w, "Current thread: %s\n", r.Thread)
	if r.Loc != (event.Location{}) {
		fmt.Fprintf(c.w, "Location:       %s.%s (%s:%d)\n",
			r.Loc.Class, r.Loc.Method, r.Loc.File, r.Loc.Line)
	}
	for _, f := range r.Stack {
		fmt.Fprintf(c.w, "    %s\n        %s:%d\n", f.Function, f.File, f.Line)
	}
	fmt.Fprintf(c.w, "==================\n")
}

// CollectorSink retains every report it receives, for tests and embedders
// that post-process reports themselves.
type CollectorSink struct {
	mu      sync.Mutex
	reports []*Report
}

// NewCollectorSink creates an empty collector.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

// Race appends the report.
func (c *CollectorSink) Race(r *Report) {
	c.mu.Lock()
	c.reports = append(c.reports, r)
	c.mu.Unlock()
}

// Reports returns a snapshot of everything collected so far.
func (c *CollectorSink) Reports() []*Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Report, len(c.reports))
	copy(out, c.reports)
	return out
}

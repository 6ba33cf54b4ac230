// Package counters implements per-tid event counters for rule outcomes and
// synchronization operations, aggregated at process exit.
//
// Each counter keeps one slot per tid so threads never increment the same
// word; increments are plain atomic adds on the owner's slot. Slots are
// adjacent in one slice, so neighboring tids can share a cache line.
package counters

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Counter is anything that can report a total, so aggregates can nest.
type Counter interface {
	Name() string
	Total() uint64
}

// ThreadLocalCounter counts one kind of event with a slot per tid.
type ThreadLocalCounter struct {
	name  string
	slots []uint64
}

// NewThreadLocalCounter creates a counter accepting tids in [0, maxTid].
func NewThreadLocalCounter(name string, maxTid int) *ThreadLocalCounter {
	return &ThreadLocalCounter{
		name:  name,
		slots: make([]uint64, maxTid+1),
	}
}

// Inc increments tid's slot.
//
//go:nosplit
func (c *ThreadLocalCounter) Inc(tid int) {
	atomic.AddUint64(&c.slots[tid], 1)
}

// Get returns tid's slot.
func (c *ThreadLocalCounter) Get(tid int) uint64 {
	return atomic.LoadUint64(&c.slots[tid])
}

// Name returns the counter's display name.
func (c *ThreadLocalCounter) Name() string {
	return c.name
}

// Total sums all tid slots.
func (c *ThreadLocalCounter) Total() uint64 {
	var sum uint64
	for i := range c.slots {
		sum += atomic.LoadUint64(&c.slots[i])
	}
	return sum
}

// AggregateCounter rolls up a group of counters under one name.
type AggregateCounter struct {
	name  string
	parts []Counter
}

// NewAggregateCounter groups the given counters.
func NewAggregateCounter(name string, parts ...Counter) *AggregateCounter {
	return &AggregateCounter{name: name, parts: parts}
}

// Name returns the aggregate's display name.
func (a *AggregateCounter) Name() string {
	return a.name
}

// Total sums the totals of all grouped counters.
func (a *AggregateCounter) Total() uint64 {
	var sum uint64
	for _, p := range a.parts {
		sum += p.Total()
	}
	return sum
}

// Set holds every counter the engine maintains: one per rule outcome, one
// per synchronization event kind, and the roll-up aggregates.
type Set struct {
	ReadSameEpoch       *ThreadLocalCounter
	ReadSharedSameEpoch *ThreadLocalCounter
	ReadExclusive       *ThreadLocalCounter
	ReadShare           *ThreadLocalCounter
	ReadShared          *ThreadLocalCounter
	WriteReadError      *ThreadLocalCounter
	WriteSameEpoch      *ThreadLocalCounter
	WriteExclusive      *ThreadLocalCounter
	WriteShared         *ThreadLocalCounter
	WriteWriteError     *ThreadLocalCounter
	ReadWriteError      *ThreadLocalCounter
	SharedWriteError    *ThreadLocalCounter

	Acquire  *ThreadLocalCounter
	Release  *ThreadLocalCounter
	Fork     *ThreadLocalCounter
	Join     *ThreadLocalCounter
	Barrier  *ThreadLocalCounter
	Wait     *ThreadLocalCounter
	Volatile *ThreadLocalCounter
	Other    *ThreadLocalCounter

	reads    *AggregateCounter
	writes   *AggregateCounter
	accesses *AggregateCounter
	total    *AggregateCounter
}

// NewSet builds the full counter set for tids in [0, maxTid].
func NewSet(maxTid int) *Set {
	s := &Set{
		ReadSameEpoch:       NewThreadLocalCounter("Read Same Epoch", maxTid),
		ReadSharedSameEpoch: NewThreadLocalCounter("ReadShared Same Epoch", maxTid),
		ReadExclusive:       NewThreadLocalCounter("Read Exclusive", maxTid),
		ReadShare:           NewThreadLocalCounter("Read Share", maxTid),
		ReadShared:          NewThreadLocalCounter("Read Shared", maxTid),
		WriteReadError:      NewThreadLocalCounter("Write-Read Error", maxTid),
		WriteSameEpoch:      NewThreadLocalCounter("Write Same Epoch", maxTid),
		WriteExclusive:      NewThreadLocalCounter("Write Exclusive", maxTid),
		WriteShared:         NewThreadLocalCounter("Write Shared", maxTid),
		WriteWriteError:     NewThreadLocalCounter("Write-Write Error", maxTid),
		ReadWriteError:      NewThreadLocalCounter("Read-Write Error", maxTid),
		SharedWriteError:    NewThreadLocalCounter("Shared-Write Error", maxTid),

		Acquire:  NewThreadLocalCounter("Acquire", maxTid),
		Release:  NewThreadLocalCounter("Release", maxTid),
		Fork:     NewThreadLocalCounter("Fork", maxTid),
		Join:     NewThreadLocalCounter("Join", maxTid),
		Barrier:  NewThreadLocalCounter("Barrier", maxTid),
		Wait:     NewThreadLocalCounter("Wait", maxTid),
		Volatile: NewThreadLocalCounter("Volatile", maxTid),
		Other:    NewThreadLocalCounter("Other", maxTid),
	}

	s.reads = NewAggregateCounter("Total Reads",
		s.ReadSameEpoch, s.ReadSharedSameEpoch, s.ReadExclusive,
		s.ReadShare, s.ReadShared, s.WriteReadError)
	s.writes = NewAggregateCounter("Total Writes",
		s.WriteSameEpoch, s.WriteExclusive, s.WriteShared,
		s.WriteWriteError, s.ReadWriteError, s.SharedWriteError)
	s.accesses = NewAggregateCounter("Total Access Ops", s.reads, s.writes)
	s.total = NewAggregateCounter("Total Ops", s.accesses,
		s.Acquire, s.Release, s.Fork, s.Join, s.Barrier,
		s.Wait, s.Volatile, s.Other)
	return s
}

// ordered returns every counter in stable dump order.
func (s *Set) ordered() []Counter {
	return []Counter{
		s.ReadSameEpoch, s.ReadSharedSameEpoch, s.ReadExclusive,
		s.ReadShare, s.ReadShared, s.WriteReadError,
		s.WriteSameEpoch, s.WriteExclusive, s.WriteShared,
		s.WriteWriteError, s.ReadWriteError, s.SharedWriteError,
		s.Acquire, s.Release, s.Fork, s.Join, s.Barrier,
		s.Wait, s.Volatile, s.Other,
		s.reads, s.writes, s.accesses, s.total,
	}
}

// Dump writes every counter's total to w in stable order, one per line.
func (s *Set) Dump(w io.Writer) {
	for _, c := range s.ordered() {
		fmt.Fprintf(w, "%-24s %d\n", c.Name()+":", c.Total())
	}
}

// TotalOps returns the grand total across all counters.
func (s *Set) TotalOps() uint64 {
	return s.total.Total()
}

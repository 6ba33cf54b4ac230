// Package race implements the analytical core of a dynamic data-race
// detector: the FastTrack algorithm with adaptive sampling.
//
// # Overview
//
// The detector observes a multithreaded program through a typed event stream
// produced by an external instrumentation agent: memory accesses, lock
// acquire/release, thread fork/join, volatile accesses, barriers, wait, and
// class initialization. It maintains vector-clock shadow state for threads,
// memory locations, and synchronization objects, and reports happens-before
// violations to a pluggable error sink.
//
// Almost all accesses retire through lock-free epoch comparisons (the fast
// paths); the remainder run the full FastTrack decision rules under the
// accessed location's monitor. A sampling controller - global (COUNT) or
// per-location with exponential decay (ADAPTIVE) - decides which accesses
// participate in analysis at all, trading detection probability for
// overhead.
//
// # Usage
//
//	d := race.NewDetector(race.Options{SamplingRate: 100})
//	defer d.Shutdown()
//
//	d.NewThread(0)
//	d.NewThread(1)
//	d.Fork(0, 1)
//
//	d.Access(race.AccessEvent{
//		TID: 0, Kind: race.KindField, IsWrite: true,
//		Target: xAddr, Class: "Counter", Field: "hits",
//	})
//
// Events for a given thread must be delivered from that thread, in program
// order; the engine runs inline in the observed threads and relies on their
// ordering.
//
// # Guarantees
//
// The detector is sound for the observed execution: every reported race is a
// real happens-before violation of that execution. Under sampling, skipped
// accesses may hide races; detection of a recurring race is probabilistic,
// never spurious. Each race site is reported once by default.
package race

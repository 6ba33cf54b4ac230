// Package epoch implements packed logical timestamps for the FastTrack engine.
//
// An Epoch represents a single thread's logical time as a compact 64-bit value:
// - Top 16 bits: thread ID
// - Bottom 48 bits: clock value
//
// This encoding enables the O(1) happens-before checks that carry almost all
// accesses through the fast paths without touching a full vector clock. The
// 48-bit clock is the long-epoch layout, wide enough that realistic programs
// never exhaust it.
package epoch

import "github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"

// Epoch is a 64-bit logical timestamp encoding both thread ID and clock value.
// Layout: [TID:16][Clock:48]
//
// Example: 0x0005000000001234 represents TID=5, Clock=0x1234.
type Epoch uint64

const (
	// TIDBits is the number of bits allocated for the thread ID.
	TIDBits = 16

	// ClockBits is the number of bits allocated for the clock value.
	ClockBits = 48

	// ClockMask is the bitmask for extracting the clock value.
	ClockMask = (1 << ClockBits) - 1

	// MaxTID is the largest representable thread ID.
	MaxTID = (1 << TIDBits) - 1
)

const (
	// Zero is the initial sentinel: no access has been recorded yet.
	Zero Epoch = 0

	// ReadShared is the reserved sentinel stored in a variable's read slot
	// once the variable has been read by two or more unordered threads.
	// It is unreachable as a real epoch: tid MaxTID would have to tick its
	// clock through the entire 48-bit range first.
	ReadShared Epoch = ^Epoch(0)
)

// New creates an epoch from a thread ID and clock value.
//
// The TID is stored in the top 16 bits, the clock in the bottom 48 bits.
// Clock values beyond 48 bits are truncated.
//
//go:nosplit
func New(tid int, clock uint64) Epoch {
	return Epoch(uint64(tid)<<ClockBits | (clock & ClockMask))
}

// TID extracts the thread ID from an epoch.
//
//go:nosplit
func (e Epoch) TID() int {
	return int(e >> ClockBits)
}

// Clock extracts the clock value from an epoch.
//
//go:nosplit
func (e Epoch) Clock() uint64 {
	return uint64(e) & ClockMask
}

// LEQ reports whether this epoch is ordered at-or-before the given vector
// clock: Clock(e) <= vc[TID(e)].
//
// This is the O(1) happens-before check at the heart of every FastTrack rule.
// Called on every slow-path access, must be zero-allocation.
//
//go:nosplit
func (e Epoch) LEQ(vc *vectorclock.VectorClock) bool {
	return e.Clock() <= vc.Get(e.TID())
}

// Same reports whether two epochs are identical (same TID and clock).
//
// This is the fast-path same-epoch test, which retires the majority of
// accesses without any locking.
//
//go:nosplit
func (e Epoch) Same(other Epoch) bool {
	return e == other
}

// String returns a human-readable representation of the epoch.
//
// Format: "clock@tid" (e.g., "42@5" means clock=42, tid=5), with the
// ReadShared sentinel rendered by name. Only used in race reports and
// debugging, never on the hot path.
func (e Epoch) String() string {
	if e == ReadShared {
		return "SHARED"
	}
	return itoa(e.Clock()) + "@" + itoa(uint64(e.TID()))
}

// itoa converts an integer to string without an fmt import.
// This package stays import-light so it can be linked into hot paths.
func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}

	tmp := n
	digits := 0
	for tmp > 0 {
		digits++
		tmp /= 10
	}

	buf := make([]byte, digits)
	for i := digits - 1; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf)
}

package epoch

import (
	"testing"

	"github.com/rishav1606/CS636-Roadrunner/internal/race/vectorclock"
)

// TestNewEpoch tests epoch creation and encoding.
func TestNewEpoch(t *testing.T) {
	tests := []struct {
		name  string
		tid   int
		clock uint64
		want  uint64
	}{
		{
			name:  "zero epoch",
			tid:   0,
			clock: 0,
			want:  0x0000000000000000,
		},
		{
			name:  "tid only",
			tid:   5,
			clock: 0,
			want:  0x0005000000000000,
		},
		{
			name:  "clock only",
			tid:   0,
			clock: 0x1234,
			want:  0x0000000000001234,
		},
		{
			name:  "tid and clock",
			tid:   42,
			clock: 0x123456,
			want:  0x002A000000123456,
		},
		{
			name:  "max tid",
			tid:   MaxTID,
			clock: 0,
			want:  0xFFFF000000000000,
		},
		{
			name:  "max clock",
			tid:   0,
			clock: ClockMask,
			want:  0x0000FFFFFFFFFFFF,
		},
		{
			name:  "clock overflow truncates to 48 bits",
			tid:   1,
			clock: 0xFFFFFFFFFFFFFFFF,
			want:  0x0001FFFFFFFFFFFF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.tid, tt.clock)
			if uint64(got) != tt.want {
				t.Errorf("New(%d, 0x%X) = 0x%X, want 0x%X",
					tt.tid, tt.clock, uint64(got), tt.want)
			}
		})
	}
}

// TestEpochDecode tests TID and Clock extraction round-trip.
func TestEpochDecode(t *testing.T) {
	tests := []struct {
		name  string
		tid   int
		clock uint64
	}{
		{name: "zero", tid: 0, clock: 0},
		{name: "small", tid: 3, clock: 7},
		{name: "large clock", tid: 10, clock: 1_000_000_000},
		{name: "max tid", tid: MaxTID, clock: 12345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.tid, tt.clock)
			if e.TID() != tt.tid {
				t.Errorf("TID() = %d, want %d", e.TID(), tt.tid)
			}
			if e.Clock() != tt.clock {
				t.Errorf("Clock() = %d, want %d", e.Clock(), tt.clock)
			}
		})
	}
}

// TestSentinels verifies Zero and ReadShared are distinct from any epoch the
// engine can mint.
func TestSentinels(t *testing.T) {
	if Zero != New(0, 0) {
		t.Errorf("Zero should equal New(0, 0)")
	}
	if ReadShared == Zero {
		t.Errorf("ReadShared must differ from Zero")
	}
	// Largest real epoch short of wrapping still differs from the sentinel.
	almost := New(MaxTID, ClockMask-1)
	if almost == ReadShared {
		t.Errorf("New(MaxTID, ClockMask-1) collides with ReadShared")
	}
}

// TestLEQ tests the epoch-vs-vector-clock happens-before check.
func TestLEQ(t *testing.T) {
	vc := vectorclock.New()
	vc.Set(1, 10)
	vc.Set(2, 5)

	tests := []struct {
		name string
		e    Epoch
		want bool
	}{
		{name: "clock below entry", e: New(1, 9), want: true},
		{name: "clock equal to entry", e: New(1, 10), want: true},
		{name: "clock above entry", e: New(1, 11), want: false},
		{name: "other tid above", e: New(2, 6), want: false},
		{name: "unseen tid, zero clock", e: New(7, 0), want: true},
		{name: "unseen tid, nonzero clock", e: New(7, 1), want: false},
		{name: "zero epoch always ordered", e: Zero, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.LEQ(vc); got != tt.want {
				t.Errorf("LEQ(%s, %s) = %v, want %v", tt.e, vc, got, tt.want)
			}
		})
	}
}

// TestLEQObservation verifies the property that LEQ holds exactly when the
// clock has observed the event the epoch denotes.
func TestLEQObservation(t *testing.T) {
	vc := vectorclock.New()
	e := New(3, 4)

	if e.LEQ(vc) {
		t.Fatalf("fresh clock should not have observed %s", e)
	}
	vc.Set(3, 4)
	if !e.LEQ(vc) {
		t.Fatalf("clock with entry 4 at tid 3 must have observed %s", e)
	}
}

// TestEpochString tests report formatting.
func TestEpochString(t *testing.T) {
	tests := []struct {
		name string
		e    Epoch
		want string
	}{
		{name: "zero", e: Zero, want: "0@0"},
		{name: "plain", e: New(5, 42), want: "42@5"},
		{name: "shared sentinel", e: ReadShared, want: "SHARED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

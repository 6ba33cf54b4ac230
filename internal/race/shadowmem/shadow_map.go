package shadowmem

import "sync"

// ShadowMemory is the global map from instrumented memory locations to their
// VarState cells.
//
// Keys are the location identity the instrumentation reports (address of a
// field or array element). Values are *VarState.
//
// sync.Map fits the access pattern: reads vastly outnumber writes (a cell is
// stored once, then looked up on every subsequent access to the location),
// and distinct locations rarely contend.
type ShadowMemory struct {
	cells sync.Map // map[uintptr]*VarState
}

// NewShadowMemory creates an empty shadow memory map.
func NewShadowMemory() *ShadowMemory {
	return &ShadowMemory{}
}

// GetOrCreate returns the VarState for the given location, running the
// factory callback to build one on first touch. created reports whether this
// call's factory result was the one stored: the factory records the creating
// access (W or R set to the creator's epoch), so a created cell has already
// absorbed the access and the rules are not run for it.
//
// If several threads race on the first access, each may run create, but
// LoadOrStore guarantees exactly one caller observes created=true and all
// receive the same surviving cell.
//
//go:nosplit
func (sm *ShadowMemory) GetOrCreate(key uintptr, create func() *VarState) (vs *VarState, created bool) {
	if val, ok := sm.cells.Load(key); ok {
		return val.(*VarState), false
	}

	fresh := create()
	actual, loaded := sm.cells.LoadOrStore(key, fresh)
	return actual.(*VarState), !loaded
}

// Get returns the VarState for the given location if it exists, nil otherwise.
// Never creates a cell; used by tests and dumps.
func (sm *ShadowMemory) Get(key uintptr) *VarState {
	val, ok := sm.cells.Load(key)
	if !ok {
		return nil
	}
	return val.(*VarState)
}

// Reset forgets all shadow cells. Not safe concurrently with handlers; used
// in test setup/teardown.
func (sm *ShadowMemory) Reset() {
	sm.cells = sync.Map{}
}

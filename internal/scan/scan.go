// Package scan walks the raw instruction bytes of a code region looking for
// two things: the places where functions plausibly begin, and the one
// instruction that loads the constant the dimension constructor is known to
// use. Neither heuristic disassembles the binary properly; they only have to
// be right for the one function we are after.
package scan

import (
	"sort"
)

// Result is what a single pass over a code region produces.
type Result struct {
	// Marker is the address of the best marker candidate. Only meaningful
	// when MarkerFound is true.
	Marker      uintptr
	MarkerFound bool

	// FunctionStarts holds every function entry candidate in ascending
	// address order.
	FunctionStarts []uintptr
}

// Scanner classifies the instructions of a code region. base is the address
// the first byte of code is mapped at; all addresses in the Result are
// relative to it.
type Scanner interface {
	Scan(code []byte, base uintptr) Result
}

type scanState struct {
	seenReturn bool

	lastMarker uintptr
	haveLast   bool

	best     uintptr
	haveBest bool
	bestGap  uintptr

	starts []uintptr
}

func newScanState() *scanState {
	return &scanState{bestGap: ^uintptr(0)}
}

// marker records a marker candidate. The constant we look for is loaded twice
// in quick succession by the target, so the later instruction of the closest
// pair of consecutive candidates wins.
func (s *scanState) marker(addr uintptr) {
	if s.haveLast {
		if gap := addr - s.lastMarker; gap < s.bestGap {
			s.bestGap = gap
			s.best = addr
			s.haveBest = true
		}
	}
	s.lastMarker = addr
	s.haveLast = true
}

func (s *scanState) start(addr uintptr) {
	s.starts = append(s.starts, addr)
	s.seenReturn = false
}

func (s *scanState) result() Result {
	return Result{
		Marker:         s.best,
		MarkerFound:    s.haveBest,
		FunctionStarts: s.starts,
	}
}

// EnclosingFunction returns the greatest function start strictly below
// marker. starts must be sorted ascending.
func EnclosingFunction(starts []uintptr, marker uintptr) (uintptr, bool) {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] >= marker })
	if i == 0 {
		return 0, false
	}
	return starts[i-1], true
}

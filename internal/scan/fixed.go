package scan

import (
	"encoding/binary"
)

// Pattern matches a 32-bit instruction word when word&Mask == Value.
type Pattern struct {
	Mask  uint32
	Value uint32
}

func (p Pattern) Match(word uint32) bool {
	return word&p.Mask == p.Value
}

// FixedWidth scans instruction sets where every instruction is one
// little-endian 32-bit word.
type FixedWidth struct {
	Return   Pattern
	Marker   Pattern
	Prologue Pattern
}

// ARM64 returns the AArch64 classifier:
//
//	ret {xN}                   -> return
//	movz wN, #0x4210, lsl #16  -> marker (loads 36.0f)
//	sub sp, ...                -> prologue, only right after a return
func ARM64() FixedWidth {
	return FixedWidth{
		Return:   Pattern{Mask: 0xFFFF_FC1F, Value: 0xD65F_0000},
		Marker:   Pattern{Mask: 0xFFFF_FFE0, Value: 0x52A8_4200},
		Prologue: Pattern{Mask: 0xFF00_0000, Value: 0xD100_0000},
	}
}

func (f FixedWidth) Scan(code []byte, base uintptr) Result {
	st := newScanState()
	for off := 0; off+4 <= len(code); off += 4 {
		word := binary.LittleEndian.Uint32(code[off:])
		addr := base + uintptr(off)
		switch {
		case f.Return.Match(word):
			st.seenReturn = true
		case f.Marker.Match(word):
			st.marker(addr)
		case st.seenReturn && f.Prologue.Match(word):
			st.start(addr)
		}
	}
	return st.result()
}

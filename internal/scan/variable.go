package scan

import (
	"golang.org/x/arch/x86/x86asm"
)

// Prologue selects which instruction, when it directly follows a return, is
// taken as the first instruction of a new function.
type Prologue int

const (
	// ProloguePush: push right after ret. SysV builds and 32-bit Windows.
	ProloguePush Prologue = iota
	// PrologueMov: mov right after ret. 64-bit Windows builds spill
	// arguments to the shadow space before anything else.
	PrologueMov
)

func (p Prologue) String() string {
	switch p {
	case PrologueMov:
		return "mov"
	default:
		return "push"
	}
}

// MarkerImmediate is the bit pattern of 36.0f, the constant the dimension
// constructor stores twice.
const MarkerImmediate = 0x42100000

// VariableWidth scans x86 code with a real decoder.
type VariableWidth struct {
	// Mode is the decoder width: 32 or 64.
	Mode            int
	MarkerImmediate int64
	Prologue        Prologue
}

func X86(mode int, prologue Prologue) VariableWidth {
	return VariableWidth{Mode: mode, MarkerImmediate: MarkerImmediate, Prologue: prologue}
}

// Scan decodes instructions back to back. Bytes that do not decode are
// stepped over one at a time, since .text regularly carries jump tables and
// padding.
func (v VariableWidth) Scan(code []byte, base uintptr) Result {
	st := newScanState()
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], v.Mode)
		if err != nil || inst.Len == 0 {
			off++
			continue
		}
		addr := base + uintptr(off)
		off += inst.Len

		switch inst.Op {
		case x86asm.RET:
			st.seenReturn = true
		case x86asm.MOV:
			if v.Prologue == PrologueMov && st.seenReturn {
				st.start(addr)
				continue
			}
			if imm, ok := inst.Args[1].(x86asm.Imm); ok && int64(imm) == v.MarkerImmediate {
				st.marker(addr)
			}
		case x86asm.PUSH:
			if v.Prologue == ProloguePush && st.seenReturn {
				st.start(addr)
			}
		}
	}
	return st.result()
}

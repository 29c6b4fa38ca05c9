package hook

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

var aarch64 = archOps{
	name:      "arm64",
	maxPatch:  arm64JumpLen,
	lookahead: arm64JumpLen,
	expansion: arm64MaxRelocated / 4,
	jumpTo:    arm64JumpTo,
	absJump:   arm64AbsJump,
	relocate:  arm64Relocate,
	isPatched: arm64IsPatched,
}

const (
	arm64LdrX17  = 0x58000051 // ldr x17, #8
	arm64BrX17   = 0xD61F0220 // br x17
	arm64JumpLen = 16
)

func arm64JumpTo(from, to uintptr) []byte {
	return arm64AbsJump(to)
}

func arm64AbsJump(to uintptr) []byte {
	b := make([]byte, arm64JumpLen)
	binary.LittleEndian.PutUint32(b[0:], arm64LdrX17)
	binary.LittleEndian.PutUint32(b[4:], arm64BrX17)
	binary.LittleEndian.PutUint64(b[8:], uint64(to))
	return b
}

func arm64IsPatched(code []byte) bool {
	return len(code) >= 8 &&
		binary.LittleEndian.Uint32(code[0:]) == arm64LdrX17 &&
		binary.LittleEndian.Uint32(code[4:]) == arm64BrX17
}

// arm64Relocate copies the first n bytes of code, which lives at from.
// PC-relative instructions are rewritten to go through absolute addresses
// held next to them, so the copy runs the same wherever it is placed.
func arm64Relocate(code []byte, from, to uintptr, n int) (out []byte, consumed int, err error) {
	if n%4 != 0 || len(code) < n {
		err = fmt.Errorf("%w: need %d bytes, have %d", ErrUnpatchable, n, len(code))
		return
	}
	for consumed < n {
		raw := code[consumed : consumed+4]
		word := binary.LittleEndian.Uint32(raw)
		pc := uint64(from) + uint64(consumed)

		moved, rerr := arm64RelocateOne(word, pc)
		if rerr != nil {
			err = fmt.Errorf("%w: %v at +%d", ErrUnpatchable, rerr, consumed)
			return
		}
		inst, derr := arm64asm.Decode(raw)
		if moved == nil {
			if derr == nil && arm64HasPCRel(inst) {
				err = fmt.Errorf("%w: pc-relative %s at +%d", ErrUnpatchable, arm64asm.GNUSyntax(inst), consumed)
				return
			}
			moved = raw
		}
		out = append(out, moved...)
		consumed += 4

		if consumed < n && arm64EndsFlow(word) {
			err = fmt.Errorf("%w: function ends after %d bytes", ErrUnpatchable, consumed)
			return
		}
	}
	return
}

const (
	arm64Nop    = 0xD503201F
	arm64BlrX17 = 0xD63F0220
	arm64X17    = 17
	// arm64MaxRelocated is the longest sequence one instruction becomes.
	arm64MaxRelocated = 20
)

// arm64RelocateOne returns the position independent replacement for the
// instruction w found at pc, or nil if w can be copied as is.
func arm64RelocateOne(w uint32, pc uint64) ([]byte, error) {
	switch {
	case w&0x1F000000 == 0x10000000: // adr, adrp
		rd := w & 0x1F
		if rd == 31 {
			return nil, fmt.Errorf("adr into xzr")
		}
		imm := signExtend(uint64((w>>5)&0x7FFFF)<<2|uint64((w>>29)&3), 21)
		dest := pc + imm
		if w&0x80000000 != 0 {
			dest = pc&^0xFFF + imm<<12
		}
		// ldr xd, =dest
		return arm64Seq(dest, arm64LdrLiteral(rd, 8), arm64B(12)), nil

	case w&0xFC000000 == 0x14000000: // b
		return arm64AbsJump(uintptr(pc + signExtend(uint64(w&0x3FFFFFF)<<2, 28))), nil

	case w&0xFC000000 == 0x94000000: // bl
		dest := pc + signExtend(uint64(w&0x3FFFFFF)<<2, 28)
		return arm64Seq(dest, arm64LdrLiteral(arm64X17, 12), arm64BlrX17, arm64B(12)), nil

	case w&0xFF000010 == 0x54000000: // b.cond
		dest := pc + signExtend(uint64((w>>5)&0x7FFFF)<<2, 21)
		cond := w & 0xF
		if cond >= 0xE {
			return arm64AbsJump(uintptr(dest)), nil
		}
		skip := 0x54000000 | 5<<5 | (cond ^ 1)
		return arm64Seq(dest, skip, arm64LdrX17, arm64BrX17), nil

	case w&0x7E000000 == 0x34000000: // cbz, cbnz
		dest := pc + signExtend(uint64((w>>5)&0x7FFFF)<<2, 21)
		skip := (w &^ (0x7FFFF << 5)) ^ 1<<24 | 5<<5
		return arm64Seq(dest, skip, arm64LdrX17, arm64BrX17), nil

	case w&0x7E000000 == 0x36000000: // tbz, tbnz
		dest := pc + signExtend(uint64((w>>5)&0x3FFF)<<2, 16)
		skip := (w &^ (0x3FFF << 5)) ^ 1<<24 | 5<<5
		return arm64Seq(dest, skip, arm64LdrX17, arm64BrX17), nil

	case w&0x3B000000 == 0x18000000: // ldr (literal)
		return arm64LoadLiteral(w, pc)
	}
	return nil, nil
}

// arm64LoadLiteral loads the literal's address into a register and reads
// through it with the matching register-offset load.
func arm64LoadLiteral(w uint32, pc uint64) ([]byte, error) {
	dest := pc + signExtend(uint64((w>>5)&0x7FFFF)<<2, 21)
	rt := w & 0x1F
	opc := w >> 30
	simd := w&(1<<26) != 0

	var load uint32
	base := rt
	switch {
	case !simd && opc == 3: // prfm
		return binary.LittleEndian.AppendUint32(nil, arm64Nop), nil
	case !simd && rt == 31:
		return nil, fmt.Errorf("literal load into xzr")
	case !simd:
		load = [...]uint32{0xB9400000, 0xF9400000, 0xB9800000}[opc] // ldr w, ldr x, ldrsw
	case opc == 3:
		return nil, fmt.Errorf("reserved literal load %#08x", w)
	default:
		load = [...]uint32{0xBD400000, 0xFD400000, 0x3DC00000}[opc] // ldr s, d, q
		base = arm64X17
	}
	return arm64Seq(dest, arm64LdrLiteral(base, 12), load|base<<5|rt, arm64B(12)), nil
}

func arm64HasPCRel(inst arm64asm.Inst) bool {
	for _, arg := range inst.Args {
		if _, rel := arg.(arm64asm.PCRel); rel {
			return true
		}
	}
	return false
}

// b, br and ret
func arm64EndsFlow(w uint32) bool {
	return w&0xFC000000 == 0x14000000 ||
		w&0xFFFFFC1F == 0xD61F0000 ||
		w&0xFFFFFC1F == 0xD65F0000
}

// arm64Seq emits words followed by the 64-bit literal lit.
func arm64Seq(lit uint64, words ...uint32) []byte {
	b := make([]byte, 0, 4*len(words)+8)
	for _, w := range words {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	return binary.LittleEndian.AppendUint64(b, lit)
}

// ldr xt, #offset
func arm64LdrLiteral(rt uint32, offset int) uint32 {
	return 0x58000000 | uint32(offset/4)<<5 | rt
}

// b #offset
func arm64B(offset int) uint32 {
	return 0x14000000 | uint32(offset/4)&0x3FFFFFF
}

func signExtend(v uint64, bits uint) uint64 {
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}

package hook

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

var x86_64 = archOps{
	name:      "amd64",
	maxPatch:  x86AbsJumpLen,
	lookahead: x86AbsJumpLen + 15,
	expansion: 1,
	near:      true,
	pad:       0x90,
	jumpTo:    x86JumpTo,
	absJump:   x86AbsJump,
	relocate:  x86Relocate,
	isPatched: x86IsPatched,
}

const (
	x86RelJumpLen = 5
	x86AbsJumpLen = 14
)

// jmp rel32 when in reach, jmp [rip+0] with an inline target otherwise.
func x86JumpTo(from, to uintptr) []byte {
	rel := int64(to) - int64(from+x86RelJumpLen)
	if rel == int64(int32(rel)) {
		b := make([]byte, x86RelJumpLen)
		b[0] = 0xE9
		binary.LittleEndian.PutUint32(b[1:], uint32(int32(rel)))
		return b
	}
	return x86AbsJump(to)
}

var x86AbsJumpPrefix = []byte{0xFF, 0x25, 0x00, 0x00, 0x00, 0x00}

func x86AbsJump(to uintptr) []byte {
	b := make([]byte, x86AbsJumpLen)
	copy(b, x86AbsJumpPrefix)
	binary.LittleEndian.PutUint64(b[len(x86AbsJumpPrefix):], uint64(to))
	return b
}

func x86IsPatched(code []byte) bool {
	if len(code) > 0 && code[0] == 0xE9 {
		return true
	}
	return bytes.HasPrefix(code, x86AbsJumpPrefix)
}

// x86Relocate copies whole instructions from code, which lives at from, until
// at least n bytes are covered. 32-bit PC-relative operands are rewritten for
// the copy placed at to.
func x86Relocate(code []byte, from, to uintptr, n int) (out []byte, consumed int, err error) {
	for consumed < n {
		inst, derr := x86asm.Decode(code[consumed:], 64)
		if derr != nil {
			err = fmt.Errorf("%w: undecodable instruction at +%d: %v", ErrUnpatchable, consumed, derr)
			return
		}
		raw := append([]byte(nil), code[consumed:consumed+inst.Len]...)

		switch inst.PCRel {
		case 0:
		case 4:
			disp := int64(int32(binary.LittleEndian.Uint32(raw[inst.PCRelOff:])))
			dest := int64(from) + int64(consumed+inst.Len) + disp
			moved := dest - (int64(to) + int64(len(out)+inst.Len))
			if moved != int64(int32(moved)) {
				err = fmt.Errorf("%w: %v at +%d cannot reach %#x from %#x", ErrUnpatchable, inst.Op, consumed, dest, to)
				return
			}
			binary.LittleEndian.PutUint32(raw[inst.PCRelOff:], uint32(int32(moved)))
		default:
			err = fmt.Errorf("%w: %d-byte relative %v at +%d", ErrUnpatchable, inst.PCRel, inst.Op, consumed)
			return
		}

		consumed += inst.Len
		out = append(out, raw...)

		if consumed < n && endsFlow(inst.Op) {
			err = fmt.Errorf("%w: function ends after %d bytes", ErrUnpatchable, consumed)
			return
		}
	}
	return
}

func endsFlow(op x86asm.Op) bool {
	switch op {
	case x86asm.RET, x86asm.JMP, x86asm.LRET, x86asm.UD2, x86asm.INT:
		return true
	}
	return false
}

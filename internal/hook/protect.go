package hook

import (
	"fmt"
	"os"
	"unsafe"
)

type memProtect int

const (
	memProtectNone memProtect = 0
	memProtectR    memProtect = 1
	memProtectW    memProtect = 2
	memProtectX    memProtect = 4
	memProtectRW              = memProtectR | memProtectW
	memProtectRX              = memProtectR | memProtectX
	memProtectWX              = memProtectW | memProtectX
	memProtectRWX             = memProtectR | memProtectW | memProtectX
)

func (p memProtect) String() string {
	b := []byte("---")
	if p&memProtectR != 0 {
		b[0] = 'r'
	}
	if p&memProtectW != 0 {
		b[1] = 'w'
	}
	if p&memProtectX != 0 {
		b[2] = 'x'
	}
	return string(b)
}

var pageSize = uintptr(os.Getpagesize())
var pageBeginMask = ^(pageSize - 1)

// pageSpan returns the page-aligned range covering [address, address+length).
func pageSpan(address, length uintptr) (start, size uintptr) {
	start = address & pageBeginMask
	end := (address + length + pageSize - 1) & pageBeginMask
	return start, end - start
}

// nearRange is how far a trampoline may be placed from the code it serves
// while staying reachable by a 32-bit displacement with room to spare.
const nearRange = 1 << 30

func distance(a, b uintptr) uintptr {
	if a > b {
		return a - b
	}
	return b - a
}

// sliceAtAddress aliases length bytes of memory at address.
func sliceAtAddress(address, length uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(address)), length)
}

// applyToProtectedMemory makes a region writable, performs an operation, and
// then restores the old protection. applied reports whether the operation
// ran, which it did even when restoring the protection fails.
func applyToProtectedMemory(address, length uintptr, operation func()) (applied bool, err error) {
	oldProtection, err := setMemoryProtection(address, length, memProtectRWX)
	if err != nil {
		return false, fmt.Errorf("%w: enabling RWX at %#x: %v", ErrProtection, address, err)
	}

	operation()

	if _, err = setMemoryProtection(address, length, oldProtection); err != nil {
		return true, fmt.Errorf("%w: restoring %v at %#x: %v", ErrProtection, oldProtection, address, err)
	}
	return true, nil
}

// writeCode copies code over the instructions at address and flushes the
// instruction cache for them. written is false only if memory was left
// untouched.
func writeCode(address uintptr, code []byte) (written bool, err error) {
	written, err = applyToProtectedMemory(address, uintptr(len(code)), func() {
		copy(sliceAtAddress(address, uintptr(len(code))), code)
	})
	if err != nil {
		return
	}
	err = flushInstructionCache(address, uintptr(len(code)))
	return
}

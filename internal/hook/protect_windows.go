package hook

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// https://docs.microsoft.com/en-us/windows/win32/memory/memory-protection-constants
var protToOS = []uint32{
	memProtectNone: windows.PAGE_NOACCESS,
	memProtectR:    windows.PAGE_READONLY,
	memProtectW:    windows.PAGE_READWRITE,
	memProtectX:    windows.PAGE_EXECUTE,
	memProtectRW:   windows.PAGE_READWRITE,
	memProtectRX:   windows.PAGE_EXECUTE_READ,
	memProtectWX:   windows.PAGE_EXECUTE_READWRITE,
	memProtectRWX:  windows.PAGE_EXECUTE_READWRITE,
}

var osToProt = map[uint32]memProtect{
	windows.PAGE_NOACCESS:          memProtectNone,
	windows.PAGE_READONLY:          memProtectR,
	windows.PAGE_READWRITE:         memProtectRW,
	windows.PAGE_WRITECOPY:         memProtectRW,
	windows.PAGE_EXECUTE:           memProtectX,
	windows.PAGE_EXECUTE_READ:      memProtectRX,
	windows.PAGE_EXECUTE_READWRITE: memProtectRWX,
	windows.PAGE_EXECUTE_WRITECOPY: memProtectRWX,
}

func setMemoryProtection(address, length uintptr, protection memProtect) (old memProtect, err error) {
	var oldProtection uint32
	if err = windows.VirtualProtect(address, length, protToOS[protection], &oldProtection); err != nil {
		return
	}
	// Modifier bits such as PAGE_GUARD are dropped; code pages never carry them.
	old, ok := osToProt[oldProtection&0xff]
	if !ok {
		err = fmt.Errorf("unknown page protection %#x", oldProtection)
	}
	return
}

// allocExecutable commits memory, lets fill produce code for the address it
// landed at, and flips it to PAGE_EXECUTE_READ. When hint is non-zero the
// allocation is placed within reach of it.
func allocExecutable(hint uintptr, size int, fill func(at uintptr) ([]byte, error)) (address uintptr, err error) {
	_, length := pageSpan(0, uintptr(size))

	var at uintptr
	if hint != 0 {
		at = virtualAllocNear(hint, length)
	}
	if at == 0 {
		at, err = windows.VirtualAlloc(0, length, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
		if err != nil {
			return
		}
	}

	code, err := fill(at)
	if err == nil {
		copy(sliceAtAddress(at, length), code)
		var old uint32
		err = windows.VirtualProtect(at, length, windows.PAGE_EXECUTE_READ, &old)
	}
	if err != nil {
		windows.VirtualFree(at, 0, windows.MEM_RELEASE)
		return
	}
	address = at
	err = flushInstructionCache(address, uintptr(len(code)))
	return
}

// freeExecutable releases memory returned by allocExecutable.
func freeExecutable(address uintptr, _ int) error {
	return windows.VirtualFree(address, 0, windows.MEM_RELEASE)
}

// virtualAllocNear tries the 64 KiB allocation granules around hint.
func virtualAllocNear(hint, length uintptr) uintptr {
	const granule = 64 << 10
	base := hint &^ (granule - 1)
	for off := uintptr(granule); off < nearRange; off += 256 * granule {
		for _, candidate := range []uintptr{base + off, base - off} {
			if candidate == 0 || distance(candidate, base) != off {
				continue
			}
			address, err := windows.VirtualAlloc(candidate, length, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
			if err == nil && address != 0 {
				return address
			}
		}
	}
	return 0
}

//go:build unix

package hook

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/region"
)

var protToOS = []int{
	memProtectNone: unix.PROT_NONE,
	memProtectR:    unix.PROT_READ,
	memProtectW:    unix.PROT_WRITE,
	memProtectX:    unix.PROT_EXEC,
	memProtectRW:   unix.PROT_READ | unix.PROT_WRITE,
	memProtectRX:   unix.PROT_READ | unix.PROT_EXEC,
	memProtectWX:   unix.PROT_WRITE | unix.PROT_EXEC,
	memProtectRWX:  unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC,
}

func setMemoryProtection(address, length uintptr, protection memProtect) (old memProtect, err error) {
	old = getCurrentMemoryProtection(address)
	start, size := pageSpan(address, length)
	err = unix.Mprotect(sliceAtAddress(start, size), protToOS[protection])
	return
}

// getCurrentMemoryProtection reads the protection of the page holding
// address from the maps file. Code pages are r-x unless something already
// changed them, so that is the fallback.
func getCurrentMemoryProtection(address uintptr) memProtect {
	mappings, err := region.SelfMaps()
	if err != nil {
		return memProtectRX
	}
	for _, m := range mappings {
		if address >= m.Start && address < m.End {
			return protFromPerms(m.Perms)
		}
	}
	return memProtectRX
}

func protFromPerms(perms string) (p memProtect) {
	if len(perms) < 3 {
		return memProtectRX
	}
	if perms[0] == 'r' {
		p |= memProtectR
	}
	if perms[1] == 'w' {
		p |= memProtectW
	}
	if perms[2] == 'x' {
		p |= memProtectX
	}
	return
}

// allocExecutable maps anonymous memory, lets fill produce code for the
// address it landed at, and flips it to r-x. When hint is non-zero the mapping
// is placed within reach of it.
func allocExecutable(hint uintptr, size int, fill func(at uintptr) ([]byte, error)) (address uintptr, err error) {
	_, length := pageSpan(0, uintptr(size))

	var mem []byte
	if hint != 0 {
		mem = mmapNear(hint, length)
	}
	if mem == nil {
		mem, err = unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
		if err != nil {
			return
		}
	}
	at := uintptr(unsafe.Pointer(&mem[0]))

	code, err := fill(at)
	if err == nil {
		copy(mem, code)
		err = unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC)
	}
	if err != nil {
		unix.Munmap(mem)
		return
	}
	address = at
	err = flushInstructionCache(address, uintptr(len(code)))
	return
}

// freeExecutable unmaps memory returned by allocExecutable.
func freeExecutable(address uintptr, size int) error {
	_, length := pageSpan(0, uintptr(size))
	return unix.MunmapPtr(unsafe.Pointer(address), length)
}

// mmapNear asks the kernel for pages at a series of addresses around hint and
// keeps the first mapping that lands within nearRange of it.
func mmapNear(hint, length uintptr) []byte {
	const step = 16 << 20
	base := hint & pageBeginMask
	for i := uintptr(1); i <= 32; i++ {
		for _, candidate := range []uintptr{base + i*step, base - i*step} {
			// Skip candidates that wrapped around the address space.
			if candidate == 0 || distance(candidate, base) != i*step {
				continue
			}
			ptr, err := unix.MmapPtr(-1, 0, unsafe.Pointer(candidate), length,
				unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
			if err != nil {
				continue
			}
			got := uintptr(ptr)
			if distance(got, hint) < nearRange {
				return unsafe.Slice((*byte)(ptr), length)
			}
			unix.MunmapPtr(ptr, length)
		}
	}
	return nil
}

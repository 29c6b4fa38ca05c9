//go:build arm64 && !windows && cgo

package hook

/*
static void blc_clear_cache(char *begin, char *end) {
	__builtin___clear_cache(begin, end);
}
*/
import "C"

import (
	"unsafe"
)

// arm64 keeps separate instruction and data caches; freshly written code must
// be cleaned to the point of unification before it runs.
func flushInstructionCache(address, length uintptr) error {
	begin := (*C.char)(unsafe.Pointer(address))
	end := (*C.char)(unsafe.Add(unsafe.Pointer(address), length))
	C.blc_clear_cache(begin, end)
	return nil
}

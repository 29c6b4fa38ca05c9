//go:build !arm64 && !windows

package hook

// x86 keeps instruction fetch coherent with stores.
func flushInstructionCache(address, length uintptr) error {
	return nil
}

package hook

import (
	"runtime"
)

// archOps is the instruction-set specific part of an inline hook.
type archOps struct {
	name string
	// maxPatch is the longest jump jumpTo can produce.
	maxPatch int
	// lookahead is how many bytes relocate may need to read.
	lookahead int
	// expansion bounds how many times larger relocate may make its input.
	expansion int
	// near requests a trampoline within nearRange of the target so that
	// relocated PC-relative operands stay reachable.
	near bool
	// pad fills patched bytes past the jump.
	pad byte

	jumpTo    func(from, to uintptr) []byte
	absJump   func(to uintptr) []byte
	relocate  func(code []byte, from, to uintptr, n int) (out []byte, consumed int, err error)
	isPatched func(code []byte) bool
}

func archFor(goarch string) *archOps {
	switch goarch {
	case "amd64":
		return &x86_64
	case "arm64":
		return &aarch64
	}
	return nil
}

var hostArch = archFor(runtime.GOARCH)

package scan

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// ForPlatform returns the scanner matching how the game is compiled for the
// given GOOS/GOARCH pair.
func ForPlatform(goos, goarch string) (Scanner, error) {
	switch goarch {
	case "arm64":
		return ARM64(), nil
	case "amd64":
		if goos == "windows" {
			return X86(64, PrologueMov), nil
		}
		return X86(64, ProloguePush), nil
	case "386":
		return X86(32, ProloguePush), nil
	}
	return nil, fmt.Errorf("no scanner for %s/%s", goos, goarch)
}

// Default returns the scanner for the platform this binary was built for.
func Default() (Scanner, error) {
	return ForPlatform(runtime.GOOS, runtime.GOARCH)
}

// Disassemble renders up to limit instructions of code in GNU syntax, one per
// line, prefixed with their address. Undecodable bytes end the listing.
func Disassemble(goarch string, code []byte, pc uintptr, limit int) []string {
	var lines []string
	for off := 0; off < len(code) && len(lines) < limit; {
		var (
			text string
			size int
		)
		switch goarch {
		case "arm64":
			if off+4 > len(code) {
				return lines
			}
			inst, err := arm64asm.Decode(code[off:])
			if err != nil {
				return append(lines, fmt.Sprintf("%#x: .word %#08x", pc+uintptr(off), binary.LittleEndian.Uint32(code[off:])))
			}
			text, size = arm64asm.GNUSyntax(inst), 4
		case "amd64", "386":
			mode := 64
			if goarch == "386" {
				mode = 32
			}
			inst, err := x86asm.Decode(code[off:], mode)
			if err != nil {
				return append(lines, fmt.Sprintf("%#x: (bad)", pc+uintptr(off)))
			}
			text, size = x86asm.GNUSyntax(inst, uint64(pc)+uint64(off), nil), inst.Len
		default:
			return lines
		}
		lines = append(lines, fmt.Sprintf("%#x: %s", pc+uintptr(off), strings.TrimSpace(text)))
		off += size
	}
	return lines
}

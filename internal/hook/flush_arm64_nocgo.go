//go:build arm64 && !windows && !cgo

package hook

import (
	"errors"
)

func flushInstructionCache(address, length uintptr) error {
	return errors.New("instruction cache maintenance needs cgo on arm64")
}

//go:build (linux || windows) && (amd64 || arm64)

package dimension

import "github.com/ebitengine/purego"

func newCallback(fn func(d, l, id, rng, str, label uintptr) uintptr) (uintptr, error) {
	return purego.NewCallback(fn), nil
}

func callNative(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

//go:build !((linux || windows) && (amd64 || arm64))

package dimension

func newCallback(func(d, l, id, rng, str, label uintptr) uintptr) (uintptr, error) {
	return 0, ErrNoCallbacks
}

func callNative(uintptr, ...uintptr) uintptr {
	panic(ErrNoCallbacks)
}

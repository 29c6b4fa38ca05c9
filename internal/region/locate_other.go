//go:build !linux && !windows

package region

import (
	"fmt"
	"runtime"
)

type unsupportedLocator struct{}

func (unsupportedLocator) Locate(module string) (Region, error) {
	return Region{}, fmt.Errorf("%w: module lookup is not implemented on %s", ErrNotFound, runtime.GOOS)
}

func NewLocator() Locator {
	return unsupportedLocator{}
}

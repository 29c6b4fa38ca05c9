// Package region finds the executable code of a loaded module in the current
// process, and of a module file on disk.
package region

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"
)

// ErrNotFound is returned when no loaded module satisfies the request.
var ErrNotFound = errors.New("code region not found")

// Region is the .text section of a loaded module.
type Region struct {
	// Module is the file name of the module the region belongs to.
	Module string
	// Path is where the module was loaded from. For libraries loaded
	// straight out of an APK this is the APK.
	Path  string
	Start uintptr
	Size  uintptr
}

func (r Region) End() uintptr {
	return r.Start + r.Size
}

func (r Region) Contains(addr uintptr) bool {
	return addr >= r.Start && addr < r.End()
}

// Bytes aliases the live region. The slice is read-only: writing through it
// faults unless the page protection was changed first.
func (r Region) Bytes() []byte {
	if r.Size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r.Start)), r.Size)
}

func (r Region) String() string {
	return fmt.Sprintf("%s [%#x-%#x]", r.Module, r.Start, r.End())
}

// Locator finds the code region of a loaded module. An empty module name
// means the main executable.
type Locator interface {
	Locate(module string) (Region, error)
}

// moduleMatches reports whether path names the wanted module. Matching is on
// the full path or the file name, case-insensitively on Windows-style names.
func moduleMatches(path, module string) bool {
	if module == "" || path == "" {
		return false
	}
	if path == module {
		return true
	}
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	return strings.EqualFold(base, module)
}

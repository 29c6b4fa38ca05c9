package region

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ModuleLocator walks the module list of the current process with Toolhelp32
// and reads each candidate's PE headers from disk.
type ModuleLocator struct{}

func NewLocator() Locator {
	return ModuleLocator{}
}

func (ModuleLocator) Locate(module string) (region Region, err error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, 0)
	if err != nil {
		err = fmt.Errorf("%w: CreateToolhelp32Snapshot: %v", ErrNotFound, err)
		return
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	// The first module of a snapshot is the process image.
	first := true
	var lastErr error
	for err = windows.Module32First(snap, &entry); err == nil; err = windows.Module32Next(snap, &entry) {
		name := windows.UTF16ToString(entry.Module[:])
		path := windows.UTF16ToString(entry.ExePath[:])
		main := module == "" && first
		first = false
		if !main && !moduleMatches(path, module) && !moduleMatches(name, module) {
			continue
		}
		if region, lastErr = moduleText(name, path, entry.ModBaseAddr, uintptr(entry.ModBaseSize)); lastErr == nil {
			return region, nil
		}
	}

	if module == "" {
		module = "main executable"
	}
	if lastErr != nil {
		err = fmt.Errorf("%w: %s: %v", ErrNotFound, module, lastErr)
	} else {
		err = fmt.Errorf("%w: %s is not loaded", ErrNotFound, module)
	}
	return
}

func moduleText(name, path string, base, size uintptr) (region Region, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	text, err := readPEText(f)
	if err != nil {
		return
	}
	return imageRegion(name, path, text, base, size)
}

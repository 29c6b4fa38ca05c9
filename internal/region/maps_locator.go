//go:build unix

package region

import (
	"fmt"
	"os"
	"path/filepath"
)

// MapsLocator finds modules through the proc maps listing of the current
// process and the ELF headers of the mapped files.
type MapsLocator struct {
	// Exe is the path of the main executable as it appears in the maps
	// file. Defaults to os.Executable.
	Exe string
}

func (l MapsLocator) Locate(module string) (region Region, err error) {
	mappings, err := SelfMaps()
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrNotFound, err)
		return
	}
	return l.locateIn(mappings, module)
}

func (l MapsLocator) exe() string {
	if l.Exe != "" {
		return l.Exe
	}
	exe, _ := os.Executable()
	return exe
}

// locateIn returns the .text region of the first executable mapping that
// belongs to module.
func (l MapsLocator) locateIn(mappings []Mapping, module string) (region Region, err error) {
	exe := l.exe()
	var lastErr error
	for _, m := range mappings {
		if !m.Executable() || !m.Readable() || m.Path == "" {
			continue
		}
		main := module == "" && m.Path == exe
		apk := module != "" && isAPK(m.Path)
		if !main && !apk && !moduleMatches(m.Path, module) {
			continue
		}
		region, err = textRegion(m, module, apk)
		if err == nil {
			return
		}
		if !apk {
			lastErr = err
		}
	}

	name := module
	if name == "" {
		name = "main executable"
	}
	if lastErr != nil {
		err = fmt.Errorf("%w: %s: %v", ErrNotFound, name, lastErr)
	} else {
		err = fmt.Errorf("%w: no executable mapping of %s", ErrNotFound, name)
	}
	return
}

func textRegion(m Mapping, module string, apk bool) (region Region, err error) {
	var (
		text      textSection
		imageBase uint64
	)
	if apk {
		var entry *apkEntry
		if entry, err = openAPKEntry(m.Path, m.Offset, module); err != nil {
			return
		}
		defer entry.Close()
		text, err = readELFText(entry.reader)
		imageBase = entry.DataOffset
	} else {
		var f *os.File
		if f, err = os.Open(m.Path); err != nil {
			return
		}
		defer f.Close()
		text, err = readELFText(f)
	}
	if err != nil {
		return
	}

	// Position of .text in the backing file, relative to where this
	// mapping starts in that file.
	fileOffset := imageBase + text.Offset
	mapLen := uint64(m.End - m.Start)
	if fileOffset < m.Offset || fileOffset-m.Offset >= mapLen {
		err = fmt.Errorf(".text at file offset %#x lies outside mapping %#x-%#x (offset %#x)",
			fileOffset, m.Start, m.End, m.Offset)
		return
	}

	start := m.Start + uintptr(fileOffset-m.Offset)
	size := uintptr(text.Size)
	if start+size > m.End {
		size = m.End - start
	}

	name := filepath.Base(m.Path)
	if apk {
		name = module
	}
	region = Region{Module: name, Path: m.Path, Start: start, Size: size}
	return
}

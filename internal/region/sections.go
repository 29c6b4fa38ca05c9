package region

import (
	"debug/elf"
	"debug/pe"
	"fmt"
	"io"
)

// textSection describes the .text section of a module image on disk.
type textSection struct {
	// Offset is the file offset of the section.
	Offset uint64
	// RVA is the section's address relative to the image base.
	RVA  uint64
	Addr uint64
	Size uint64
	// Executable reports whether the section is mapped executable.
	Executable bool

	GOOS   string
	GOARCH string

	section interface{ Data() ([]byte, error) }
}

func readELFText(reader io.ReaderAt) (text textSection, err error) {
	exe, err := elf.NewFile(reader)
	if err != nil {
		return
	}
	defer exe.Close()

	sect := exe.Section(".text")
	if sect == nil {
		err = fmt.Errorf("unable to find ELF .text section")
		return
	}
	if sect.Type == elf.SHT_NOBITS {
		err = fmt.Errorf("ELF .text section has no file data")
		return
	}

	text = textSection{
		Offset:     sect.Offset,
		RVA:        sect.Addr,
		Addr:       sect.Addr,
		Size:       sect.Size,
		Executable: sect.Flags&elf.SHF_EXECINSTR != 0,
		GOOS:       "linux",
		GOARCH:     elfArch(exe.Machine),
		section:    sect,
	}
	return
}

func elfArch(m elf.Machine) string {
	switch m {
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_386:
		return "386"
	case elf.EM_ARM:
		return "arm"
	}
	return m.String()
}

func readPEText(reader io.ReaderAt) (text textSection, err error) {
	exe, err := pe.NewFile(reader)
	if err != nil {
		return
	}
	defer exe.Close()

	sect := exe.Section(".text")
	if sect == nil {
		err = fmt.Errorf("unable to find PE .text section")
		return
	}

	var imageBase uint64
	switch oh := exe.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
	}

	// VirtualSize is the real extent; the raw size is padded to the file
	// alignment. Some linkers leave VirtualSize zero.
	size := uint64(sect.VirtualSize)
	if size == 0 || size > uint64(sect.Size) && sect.Size != 0 {
		size = uint64(sect.Size)
	}

	text = textSection{
		Offset:     uint64(sect.Offset),
		RVA:        uint64(sect.VirtualAddress),
		Addr:       imageBase + uint64(sect.VirtualAddress),
		Size:       size,
		Executable: sect.Characteristics&pe.IMAGE_SCN_MEM_EXECUTE != 0,
		GOOS:       "windows",
		GOARCH:     peArch(exe.Machine),
		section:    sect,
	}
	return
}

func peArch(m uint16) string {
	switch m {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "amd64"
	case pe.IMAGE_FILE_MACHINE_I386:
		return "386"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	}
	return fmt.Sprintf("pe-machine-%#x", m)
}

// imageRegion places text inside a module image of size bytes loaded at base.
func imageRegion(name, path string, text textSection, base, size uintptr) (region Region, err error) {
	if !text.Executable {
		err = fmt.Errorf("%s: .text section is not executable", name)
		return
	}
	if text.RVA >= uint64(size) {
		err = fmt.Errorf(".text RVA %#x lies outside the %#x byte image", text.RVA, size)
		return
	}
	start := base + uintptr(text.RVA)
	length := uintptr(text.Size)
	if text.Size > uint64(size) || start+length > base+size {
		length = base + size - start
	}
	region = Region{Module: name, Path: path, Start: start, Size: length}
	return
}

// data returns the section bytes trimmed to the section size.
func (t textSection) data() (b []byte, err error) {
	if t.section == nil {
		err = fmt.Errorf("section data unavailable")
		return
	}
	if b, err = t.section.Data(); err != nil {
		return
	}
	if uint64(len(b)) > t.Size {
		b = b[:t.Size]
	}
	return
}

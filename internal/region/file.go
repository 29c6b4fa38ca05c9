package region

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Text is the .text section of a module file read from disk.
type Text struct {
	Data []byte
	// Addr is the link-time address of the first byte of Data.
	Addr uint64
	// Offset is the file offset of Data within the module image.
	Offset uint64

	GOOS   string
	GOARCH string
}

// FileText reads the .text section of an ELF or PE file. When path is an APK,
// the native library named module is read from it.
func FileText(path, module string) (text Text, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	var magic [4]byte
	if _, err = io.ReadFull(f, magic[:]); err != nil {
		err = fmt.Errorf("reading %s: %w", path, err)
		return
	}

	switch {
	case bytes.Equal(magic[:], []byte("\x7fELF")):
		return textFrom(readELFText(f))
	case bytes.Equal(magic[:2], []byte("MZ")):
		return textFrom(readPEText(f))
	case bytes.Equal(magic[:], []byte("PK\x03\x04")):
		return apkText(f, path, module)
	}
	err = fmt.Errorf("%s: not an ELF, PE or APK file", path)
	return
}

func apkText(f *os.File, path, module string) (text Text, err error) {
	if module == "" {
		err = fmt.Errorf("%s: a module name is needed to read from an APK", path)
		return
	}
	info, err := f.Stat()
	if err != nil {
		return
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return
	}
	zf := findAPKLibrary(zr, module)
	if zf == nil {
		err = fmt.Errorf("%s: no native library named %s", path, module)
		return
	}

	rc, err := zf.Open()
	if err != nil {
		return
	}
	defer rc.Close()
	image, err := io.ReadAll(rc)
	if err != nil {
		return
	}
	text, err = textFrom(readELFText(bytes.NewReader(image)))
	if err == nil {
		text.GOOS = "android"
	}
	return
}

func textFrom(sect textSection, err error) (Text, error) {
	if err != nil {
		return Text{}, err
	}
	data, err := sect.data()
	if err != nil {
		return Text{}, err
	}
	return Text{
		Data:   data,
		Addr:   sect.Addr,
		Offset: sect.Offset,
		GOOS:   sect.GOOS,
		GOARCH: sect.GOARCH,
	}, nil
}

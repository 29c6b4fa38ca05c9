package region

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// apkEntry is a stored (uncompressed) native library inside an APK, as the
// Android loader maps it when extractNativeLibs is off.
type apkEntry struct {
	Name       string
	DataOffset uint64
	Size       uint64
	reader     *io.SectionReader
	file       *os.File
}

func (e *apkEntry) Close() error {
	return e.file.Close()
}

func isAPK(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".apk")
}

// openAPKEntry finds the stored entry of apkPath whose data covers
// fileOffset. With a non-empty module, the entry's file name must match too.
func openAPKEntry(apkPath string, fileOffset uint64, module string) (entry *apkEntry, err error) {
	f, err := os.Open(apkPath)
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return
	}

	for _, zf := range zr.File {
		if zf.Method != zip.Store || zf.FileInfo().IsDir() {
			continue
		}
		if module != "" && !strings.EqualFold(path.Base(zf.Name), module) {
			continue
		}
		off, oerr := zf.DataOffset()
		if oerr != nil {
			continue
		}
		start := uint64(off)
		end := start + zf.UncompressedSize64
		if fileOffset < start || fileOffset >= end {
			continue
		}
		entry = &apkEntry{
			Name:       zf.Name,
			DataOffset: start,
			Size:       zf.UncompressedSize64,
			reader:     io.NewSectionReader(f, off, int64(zf.UncompressedSize64)),
			file:       f,
		}
		return
	}
	err = fmt.Errorf("no stored entry of %s covers offset %#x", apkPath, fileOffset)
	return
}

// findAPKLibrary returns the first entry of an APK whose file name is module,
// compressed or not, for offline reading.
func findAPKLibrary(zr *zip.Reader, module string) *zip.File {
	for _, zf := range zr.File {
		if strings.HasPrefix(zf.Name, "lib/") && strings.EqualFold(path.Base(zf.Name), module) {
			return zf
		}
	}
	return nil
}

//go:build unix

package region

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `55d0c6a00000-55d0c6a02000 r--p 00000000 fd:01 1835034                    /usr/bin/cat
55d0c6a02000-55d0c6a07000 r-xp 00002000 fd:01 1835034                    /usr/bin/cat
7f3c9a000000-7f3c9a021000 rw-p 00000000 00:00 0
7f3c9b200000-7f3c9b3a0000 r-xp 00028000 fd:01 1840001                    /data/app/My Game/lib/arm64/libminecraftpe.so
7ffd5e9f0000-7ffd5ea11000 rw-s 00000000 00:00 0                          [stack]
`

// writeProc lays out a fake proc filesystem holding one process.
func writeProc(t *testing.T, pid int, maps string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps"), []byte(maps), 0o644))
	return root
}

func TestReadMaps(t *testing.T) {
	if strconv.IntSize == 32 {
		t.Skip("sample addresses need a 64-bit address space")
	}
	mappings, err := ReadMaps(writeProc(t, 42, sampleMaps), 42)
	require.NoError(t, err)
	require.Len(t, mappings, 5)

	cat := mappings[1]
	assert.Equal(t, uint64(0x55d0c6a02000), uint64(cat.Start))
	assert.Equal(t, uint64(0x55d0c6a07000), uint64(cat.End))
	assert.Equal(t, "r-xp", cat.Perms)
	assert.Equal(t, uint64(0x2000), cat.Offset)
	assert.Equal(t, uint64(1835034), cat.Inode)
	assert.Equal(t, "/usr/bin/cat", cat.Path)
	assert.True(t, cat.Executable())
	assert.True(t, cat.Readable())

	assert.Empty(t, mappings[2].Path)
	assert.False(t, mappings[2].Executable())
	assert.Equal(t, "/data/app/My Game/lib/arm64/libminecraftpe.so", mappings[3].Path)
	assert.Equal(t, "[stack]", mappings[4].Path)
	assert.Equal(t, "rw-s", mappings[4].Perms)
}

func TestReadMapsErrors(t *testing.T) {
	for _, maps := range []string{
		"zzzz-0000 r-xp 00000000 00:00 0\n",
		"1000 r-xp 00000000 00:00 0\n",
		"1000-2000 r-xp nothex 00:00 0\n",
		"garbage line\n",
	} {
		_, err := ReadMaps(writeProc(t, 7, maps), 7)
		assert.Error(t, err, "maps %q", maps)
	}

	_, err := ReadMaps(writeProc(t, 7, ""), 8)
	assert.Error(t, err)
}

func TestReadMapsSkipsInvertedRanges(t *testing.T) {
	mappings, err := ReadMaps(writeProc(t, 3, "2000-1000 r-xp 00000000 00:00 0\n1000-2000 r-xp 00000000 00:00 0 /x\n"), 3)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "/x", mappings[0].Path)
}

func requireProc(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/proc/self/maps"); err != nil {
		t.Skip("/proc not available")
	}
}

func TestLocateMainExecutable(t *testing.T) {
	requireELFSelf(t)
	requireProc(t)

	r, err := MapsLocator{}.Locate("")
	require.NoError(t, err)

	fn := reflect.ValueOf(TestLocateMainExecutable).Pointer()
	assert.True(t, r.Contains(fn), "region %s should contain %#x", r, fn)

	code := r.Bytes()
	require.Len(t, code, int(r.Size))
	// Reading the first and last byte must not fault.
	_ = code[0]
	_ = code[len(code)-1]
}

func TestLocateMissingModule(t *testing.T) {
	requireProc(t)
	_, err := MapsLocator{}.Locate("libdoesnotexist.so")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocateInSkipsNonExecutable(t *testing.T) {
	exe := requireELFSelf(t)
	mappings := []Mapping{
		{Start: 0x400000, End: 0x800000, Perms: "r--p", Path: exe},
		{Start: 0x900000, End: 0xA00000, Perms: "rw-p", Path: exe},
	}
	_, err := MapsLocator{Exe: exe}.locateIn(mappings, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocateInsideAPK(t *testing.T) {
	exe := requireELFSelf(t)
	image, err := os.ReadFile(exe)
	require.NoError(t, err)

	apk := filepath.Join(t.TempDir(), "base.apk")
	out, err := os.Create(apk)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("AndroidManifest.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<manifest/>"))
	require.NoError(t, err)
	w, err = zw.CreateHeader(&zip.FileHeader{Name: "lib/arm64-v8a/libminecraftpe.so", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write(image)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	f, err := os.Open(exe)
	require.NoError(t, err)
	text, err := readELFText(f)
	f.Close()
	require.NoError(t, err)

	// Find where the entry landed in the archive.
	zr, err := zip.OpenReader(apk)
	require.NoError(t, err)
	var dataOffset int64
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, ".so") {
			dataOffset, err = zf.DataOffset()
			require.NoError(t, err)
		}
	}
	zr.Close()

	textFileOffset := uint64(dataOffset) + text.Offset
	mapOffset := textFileOffset &^ 0xFFF
	mapping := Mapping{
		Start:  0x70000000,
		End:    0x70000000 + uintptr(len(image)),
		Perms:  "r-xp",
		Offset: mapOffset,
		Path:   apk,
	}

	r, err := MapsLocator{Exe: "/nonexistent"}.locateIn([]Mapping{mapping}, "libminecraftpe.so")
	require.NoError(t, err)
	assert.Equal(t, "libminecraftpe.so", r.Module)
	assert.Equal(t, apk, r.Path)
	assert.Equal(t, uintptr(0x70000000)+uintptr(textFileOffset-mapOffset), r.Start)
	assert.LessOrEqual(t, r.End(), mapping.End)

	_, err = MapsLocator{Exe: "/nonexistent"}.locateIn([]Mapping{mapping}, "libother.so")
	assert.True(t, errors.Is(err, ErrNotFound))
}

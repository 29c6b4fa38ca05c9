package region

import (
	"archive/zip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleMatches(t *testing.T) {
	assert.True(t, moduleMatches("/data/app/x/lib/arm64/libminecraftpe.so", "libminecraftpe.so"))
	assert.True(t, moduleMatches(`C:\XboxGames\Minecraft\Minecraft.Windows.exe`, "minecraft.windows.exe"))
	assert.True(t, moduleMatches("/usr/bin/cat", "/usr/bin/cat"))
	assert.False(t, moduleMatches("/usr/bin/cat", "dog"))
	assert.False(t, moduleMatches("/usr/bin/cat", ""))
	assert.False(t, moduleMatches("", "cat"))
}

func TestRegionBounds(t *testing.T) {
	r := Region{Start: 0x1000, Size: 0x100}
	assert.Equal(t, uintptr(0x1100), r.End())
	assert.True(t, r.Contains(0x1000))
	assert.True(t, r.Contains(0x10FF))
	assert.False(t, r.Contains(0x1100))
	assert.Nil(t, Region{}.Bytes())
}

func TestImageRegion(t *testing.T) {
	text := textSection{RVA: 0x1000, Size: 0x800, Executable: true}
	r, err := imageRegion("game.exe", `C:\game.exe`, text, 0x400000, 0x4000)
	require.NoError(t, err)
	assert.Equal(t, Region{Module: "game.exe", Path: `C:\game.exe`, Start: 0x401000, Size: 0x800}, r)

	// Clamped to the image.
	text.Size = 0x8000
	r, err = imageRegion("game.exe", "", text, 0x400000, 0x4000)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x3000), r.Size)

	text.RVA = 0x4000
	_, err = imageRegion("game.exe", "", text, 0x400000, 0x4000)
	assert.Error(t, err)

	_, err = imageRegion("game.exe", "", textSection{RVA: 0x1000, Size: 0x800}, 0x400000, 0x4000)
	assert.ErrorContains(t, err, "not executable")
}

func requireELFSelf(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "android" {
		t.Skip("test binary is not an ELF file on " + runtime.GOOS)
	}
	exe, err := os.Executable()
	require.NoError(t, err)
	return exe
}

func TestFileTextELF(t *testing.T) {
	exe := requireELFSelf(t)
	text, err := FileText(exe, "")
	require.NoError(t, err)
	assert.Equal(t, runtime.GOARCH, text.GOARCH)

	f, err := os.Open(exe)
	require.NoError(t, err)
	defer f.Close()
	sect, err := readELFText(f)
	require.NoError(t, err)
	assert.True(t, sect.Executable)
	assert.Equal(t, "linux", text.GOOS)
	assert.NotEmpty(t, text.Data)
	assert.NotZero(t, text.Offset)
}

func TestFileTextAPK(t *testing.T) {
	exe := requireELFSelf(t)
	image, err := os.ReadFile(exe)
	require.NoError(t, err)

	apk := filepath.Join(t.TempDir(), "game.apk")
	out, err := os.Create(apk)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("lib/x86_64/libminecraftpe.so")
	require.NoError(t, err)
	_, err = w.Write(image)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	text, err := FileText(apk, "libminecraftpe.so")
	require.NoError(t, err)
	assert.Equal(t, "android", text.GOOS)
	assert.NotEmpty(t, text.Data)

	_, err = FileText(apk, "")
	assert.Error(t, err)
	_, err = FileText(apk, "libmissing.so")
	assert.Error(t, err)
}

func TestFileTextRejectsUnknownFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello world"), 0o644))
	_, err := FileText(p, "")
	assert.Error(t, err)
}

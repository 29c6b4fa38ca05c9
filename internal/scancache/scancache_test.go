package scancache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	code := []byte{0xC3, 0x55, 0x48, 0x89, 0xE5}
	k := Key("amd64", code)
	assert.Regexp(t, `^amd64-[0-9a-f]{16}$`, k)
	assert.Equal(t, k, Key("amd64", append([]byte(nil), code...)))
	assert.NotEqual(t, k, Key("arm64", code))
	assert.NotEqual(t, k, Key("amd64", code[1:]))
}

func TestPutGetPersists(t *testing.T) {
	dir := t.TempDir()
	c := Open(dir, zerolog.Nop())
	_, ok := c.Get("k", 0x1000)
	assert.False(t, ok)

	require.NoError(t, c.Put("k", Entry{Function: 0x100, Marker: 0x180, RegionSize: 0x1000, Module: "libminecraftpe.so"}))

	reopened := Open(dir, zerolog.Nop())
	e, ok := reopened.Get("k", 0x1000)
	require.True(t, ok)
	assert.Equal(t, uint64(0x100), e.Function)
	assert.Equal(t, uint64(0x180), e.Marker)
	assert.Equal(t, "libminecraftpe.so", e.Module)
	assert.False(t, e.Created.IsZero())
}

func TestGetRejectsStaleEntries(t *testing.T) {
	c := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, c.Put("size", Entry{Function: 0x10, Marker: 0x20, RegionSize: 0x1000}))
	require.NoError(t, c.Put("range", Entry{Function: 0x2000, Marker: 0x2010, RegionSize: 0x1000}))
	require.NoError(t, c.Put("order", Entry{Function: 0x30, Marker: 0x20, RegionSize: 0x1000}))

	_, ok := c.Get("size", 0x2000)
	assert.False(t, ok)
	_, ok = c.Get("range", 0x1000)
	assert.False(t, ok)
	_, ok = c.Get("order", 0x1000)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCorruptFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[unclosed"), 0o644))
	c := Open(dir, zerolog.Nop())
	assert.Equal(t, 0, c.Len())
	require.NoError(t, c.Put("k", Entry{Function: 1, Marker: 2, RegionSize: 3}))
	assert.Equal(t, 1, Open(dir, zerolog.Nop()).Len())
}

func TestEvictsOldest(t *testing.T) {
	c := Open(t.TempDir(), zerolog.Nop())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxEntries+2; i++ {
		require.NoError(t, c.Put(fmt.Sprintf("k%d", i), Entry{
			Function: 1, Marker: 2, RegionSize: 3,
			Created: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	assert.Equal(t, MaxEntries, c.Len())
	_, ok := c.Get("k0", 3)
	assert.False(t, ok)
	_, ok = c.Get("k1", 3)
	assert.False(t, ok)
	_, ok = c.Get(fmt.Sprintf("k%d", MaxEntries+1), 3)
	assert.True(t, ok)
}

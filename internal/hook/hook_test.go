package hook

import (
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/ebitengine/purego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// returnsConst builds a leaf function returning v in the first result
// register, long enough to survive being patched.
func returnsConst(t *testing.T, v uint32) []byte {
	switch runtime.GOARCH {
	case "amd64":
		code := []byte{0xB8, 0, 0, 0, 0} // mov eax, v
		binary.LittleEndian.PutUint32(code[1:], v)
		for i := 0; i < 16; i++ {
			code = append(code, 0x90)
		}
		return append(code, 0xC3)
	case "arm64":
		movz := 0x52800000 | (v&0xFFFF)<<5 // movz w0, #v
		return le32(movz, 0xD503201F, 0xD503201F, 0xD503201F, 0xD65F03C0)
	}
	t.Skipf("no test function for %s", runtime.GOARCH)
	return nil
}

func mapFunction(t *testing.T, code []byte) uintptr {
	t.Helper()
	// Pad so reading the patch lookahead stays inside the mapping.
	buf := append(append([]byte(nil), code...), make([]byte, 64)...)
	addr, err := allocExecutable(0, len(buf), func(uintptr) ([]byte, error) { return buf, nil })
	require.NoError(t, err)
	return addr
}

func call(fn uintptr) uint32 {
	r1, _, _ := purego.SyscallN(fn)
	return uint32(r1)
}

func TestInstallRedirectsAndKeepsOriginal(t *testing.T) {
	if hostArch == nil {
		t.Skip("hooking unsupported on " + runtime.GOARCH)
	}
	target := mapFunction(t, returnsConst(t, 1))
	replacement := mapFunction(t, returnsConst(t, 2))
	require.Equal(t, uint32(1), call(target))

	h, err := Install(target, replacement)
	require.NoError(t, err)
	assert.Equal(t, target, h.Target)
	assert.Equal(t, replacement, h.Replacement)
	assert.NotZero(t, h.Original)
	assert.NotEmpty(t, h.Saved)

	assert.Equal(t, uint32(2), call(target))
	assert.Equal(t, uint32(1), call(h.Original))

	_, err = Install(target, replacement)
	assert.ErrorIs(t, err, ErrInstall)
	assert.ErrorIs(t, err, ErrDoubleHook)
}

func TestInstallRefusesPatchedTarget(t *testing.T) {
	if hostArch == nil {
		t.Skip("hooking unsupported on " + runtime.GOARCH)
	}
	replacement := mapFunction(t, returnsConst(t, 3))
	jumping := mapFunction(t, append(hostArch.absJump(replacement), returnsConst(t, 4)...))

	_, err := Install(jumping, replacement)
	assert.ErrorIs(t, err, ErrAlreadyPatched)
	assert.Equal(t, uint32(3), call(jumping))
}

func TestInstallRejectsBadInput(t *testing.T) {
	_, err := install(nil, 0x1000, 0x2000, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, ErrInstall)

	_, err = install(&x86_64, 0, 0x2000, nil, nil)
	assert.ErrorIs(t, err, ErrInstall)
}

func TestCell(t *testing.T) {
	var c Cell
	assert.Nil(t, c.Get())

	first := &Hook{Target: 1}
	require.NoError(t, c.Set(first))
	assert.Same(t, first, c.Get())

	err := c.Set(&Hook{Target: 2})
	assert.ErrorIs(t, err, ErrCellAlreadySet)
	assert.Same(t, first, c.Get())

	assert.Error(t, c.Set(nil))
}

func TestCellConcurrentSet(t *testing.T) {
	var c Cell
	const n = 16
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) { errs <- c.Set(&Hook{Target: uintptr(i + 1)}) }(i)
	}
	ok := 0
	for i := 0; i < n; i++ {
		if <-errs == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.NotNil(t, c.Get())
}

func TestCellInstallPublishesBeforePatching(t *testing.T) {
	if hostArch == nil {
		t.Skip("hooking unsupported on " + runtime.GOARCH)
	}
	target := mapFunction(t, returnsConst(t, 5))
	replacement := mapFunction(t, returnsConst(t, 6))

	var c Cell
	h, err := c.Install(target, replacement)
	require.NoError(t, err)
	assert.Same(t, h, c.Get())
	assert.Equal(t, uint32(6), call(target))
	assert.Equal(t, uint32(5), call(c.Get().Original))

	other := mapFunction(t, returnsConst(t, 7))
	_, err = c.Install(other, replacement)
	assert.ErrorIs(t, err, ErrCellAlreadySet)
	assert.Equal(t, uint32(7), call(other))
}

package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/config"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/pipeline"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRangeDecode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x0140ffc0", "min -64 max 320\n"},
		{"21036992", "min -64 max 320\n"},
		{"0x00800000", "min 0 max 128\n"},
		{"-1", "min -1 max -1\n"},
		{"0xffffffff", "min -1 max -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, err := run(t, "range", "decode", tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRangeDecodeRejectsBadInput(t *testing.T) {
	_, err := run(t, "range", "decode", "0x100000000")
	assert.Error(t, err)
	_, err = run(t, "range", "decode", "abc")
	assert.Error(t, err)
}

func TestRangeEncode(t *testing.T) {
	out, err := run(t, "range", "encode", "-64", "320")
	require.NoError(t, err)
	assert.Equal(t, "0x0140ffc0 (21036992)\n", out)

	out, err = run(t, "range", "encode", "--align", "-70", "310")
	require.NoError(t, err)
	assert.Equal(t, "0x0140ffb0 (21036976)\n", out)

	out, err = run(t, "range", "encode", "-70", "310", "--align")
	require.NoError(t, err)
	assert.Equal(t, "0x0140ffb0 (21036976)\n", out)

	out, err = run(t, "range", "encode", "--", "-64", "320")
	require.NoError(t, err)
	assert.Equal(t, "0x0140ffc0 (21036992)\n", out)

	_, err = run(t, "range", "encode", "0", "40000")
	assert.Error(t, err)
	_, err = run(t, "range", "encode", "-64")
	assert.Error(t, err)
	_, err = run(t, "range", "encode", "--bogus", "-64", "320")
	assert.Error(t, err)
}

func TestRangeHelp(t *testing.T) {
	out, err := run(t, "range", "decode", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "decode <packed>")
}

func TestReorderArgs(t *testing.T) {
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	fs.String("log-level", "", "")
	fs.Bool("align", false, "")
	assert.Equal(t,
		[]string{"--log-level", "error", "--align", "--", "-70", "310"},
		reorderArgs(fs, []string{"--log-level", "error", "-70", "--align", "310"}))
	assert.Equal(t,
		[]string{"--", "-0x10", "-", "--x"},
		reorderArgs(fs, []string{"-0x10", "-", "--", "--x"}))
}

func TestConfigShowAndReset(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "config", "show", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, config.FileName))
	assert.Contains(t, out, "Overworld    min    -64  max    320")
	assert.Contains(t, out, "Nether       min      0  max    128")

	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("Overworld: {min: -128, max: 512}\n"), 0o644))
	out, err = run(t, "config", "show", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Overworld    min   -128  max    512")
	assert.NotContains(t, out, "Nether")

	out, err = run(t, "config", "reset", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote defaults")
	out, err = run(t, "config", "show", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Overworld    min    -64  max    320")
}

func TestScanRejectsUnknownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))
	_, err := run(t, "scan", path)
	assert.Error(t, err)

	_, err = run(t, "scan")
	assert.Error(t, err)
}

func TestScanOwnExecutable(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "windows" {
		t.Skip("test binary is neither ELF nor PE")
	}
	exe, err := os.Executable()
	require.NoError(t, err)

	out, err := run(t, "scan", exe)
	assert.Contains(t, out, ".text:")
	assert.Contains(t, out, "Candidates:")
	if err != nil {
		// The test binary is not expected to contain the game's function.
		assert.True(t, errors.Is(err, pipeline.ErrMarkerNotFound) || errors.Is(err, pipeline.ErrEnclosingFunctionNotFound), err)
	} else {
		assert.Contains(t, out, "Function:")
	}
}

// Package platform answers questions about the process the mod was loaded
// into: which launcher started it, which module holds the game code and
// where files may be written.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DirName is the directory created below the data root.
const DirName = "BuildLimitChanger"

// Host describes the game process.
type Host struct {
	PID  int32
	Name string
	// Package is the Android application id, taken from the command line.
	Package string
	Exe     string
	// Levi is set when the game runs inside the Levi launcher.
	Levi bool
}

var leviPackages = []string{"org.levimc.", "io.levimc."}

// DetectHost inspects the current process.
func DetectHost() (Host, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return Host{PID: int32(os.Getpid())}, err
	}
	// Any of these may be unavailable depending on sandboxing; use what
	// there is.
	name, nerr := p.Name()
	cmdline, cerr := p.Cmdline()
	exe, eerr := p.Exe()
	h := hostFrom(p.Pid, name, cmdline, exe)
	if nerr != nil && cerr != nil && eerr != nil {
		return h, errors.Join(nerr, cerr, eerr)
	}
	return h, nil
}

func hostFrom(pid int32, name, cmdline, exe string) Host {
	h := Host{PID: pid, Name: name, Exe: exe}

	// Android app processes rename themselves to their package, optionally
	// followed by ":process".
	first := strings.Fields(cmdline)
	if len(first) > 0 && looksLikePackage(first[0]) {
		h.Package = strings.SplitN(first[0], ":", 2)[0]
	}
	for _, prefix := range leviPackages {
		if strings.HasPrefix(h.Package, prefix) || strings.HasPrefix(name, prefix) {
			h.Levi = true
		}
	}
	if strings.Contains(strings.ToLower(h.Package), "levilauncher") {
		h.Levi = true
	}
	return h
}

func looksLikePackage(s string) bool {
	if strings.ContainsAny(s, `/\`) || !strings.Contains(s, ".") {
		return false
	}
	for _, part := range strings.Split(strings.SplitN(s, ":", 2)[0], ".") {
		if part == "" {
			return false
		}
	}
	return true
}

// DefaultModule is the module holding the game code on goos. An empty name
// means the main executable.
func DefaultModule(goos string) string {
	switch goos {
	case "android", "linux":
		return "libminecraftpe.so"
	}
	return ""
}

// DataRoots lists the directories, most preferred first, below which the
// DirName directory may be created.
func DataRoots(goos string, host Host) []string {
	var roots []string
	switch goos {
	case "android":
		storage := os.Getenv("EXTERNAL_STORAGE")
		if storage == "" {
			storage = "/storage/emulated/0"
		}
		roots = append(roots, filepath.Join(storage, "games"))
		if host.Package != "" {
			roots = append(roots, filepath.Join(storage, "Android", "data", host.Package, "files"))
		}
	default:
		if dir, err := os.UserConfigDir(); err == nil {
			roots = append(roots, dir)
		}
	}
	if exe := host.Exe; exe != "" && goos != "android" {
		roots = append(roots, filepath.Dir(exe))
	}
	return roots
}

// DataDir returns the first writable DirName directory. override, when set,
// is used as is.
func DataDir(override string, host Host) (string, error) {
	if override != "" {
		if !IsDirWritable(override) {
			return "", fmt.Errorf("directory %s is not writable", override)
		}
		return override, nil
	}

	roots := DataRoots(runtime.GOOS, host)
	for _, root := range roots {
		dir := filepath.Join(root, DirName)
		if IsDirWritable(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("none of %v is writable", roots)
}

// IsDirWritable creates dir if needed and checks that a file can be created
// in it.
func IsDirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	scratch := filepath.Join(dir, "._perm_test")
	f, err := os.Create(scratch)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(scratch)
	return true
}

//go:build unix

package region

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// Mapping is one entry of /proc/<pid>/maps.
type Mapping struct {
	Start  uintptr
	End    uintptr
	Perms  string
	Offset uint64
	Inode  uint64
	Path   string
}

func (m Mapping) Readable() bool   { return len(m.Perms) > 0 && m.Perms[0] == 'r' }
func (m Mapping) Executable() bool { return len(m.Perms) > 2 && m.Perms[2] == 'x' }

// SelfMaps lists the mappings of the current process.
func SelfMaps() ([]Mapping, error) {
	p, err := procfs.Self()
	if err != nil {
		return nil, err
	}
	return readMaps(p)
}

// ReadMaps lists the mappings of process pid in the proc filesystem mounted
// at root.
func ReadMaps(root string, pid int) ([]Mapping, error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, err
	}
	p, err := fs.Proc(pid)
	if err != nil {
		return nil, err
	}
	return readMaps(p)
}

func readMaps(p procfs.Proc) ([]Mapping, error) {
	procMaps, err := p.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("reading maps of %d: %w", p.PID, err)
	}
	mappings := make([]Mapping, 0, len(procMaps))
	for _, pm := range procMaps {
		if pm.EndAddr < pm.StartAddr {
			continue
		}
		mappings = append(mappings, mappingFrom(pm))
	}
	return mappings, nil
}

func mappingFrom(pm *procfs.ProcMap) Mapping {
	perms := []byte("---p")
	if pm.Perms != nil {
		if pm.Perms.Read {
			perms[0] = 'r'
		}
		if pm.Perms.Write {
			perms[1] = 'w'
		}
		if pm.Perms.Execute {
			perms[2] = 'x'
		}
		if pm.Perms.Shared {
			perms[3] = 's'
		}
	}
	return Mapping{
		Start:  pm.StartAddr,
		End:    pm.EndAddr,
		Perms:  string(perms),
		Offset: uint64(pm.Offset),
		Inode:  pm.Inode,
		Path:   pm.Pathname,
	}
}

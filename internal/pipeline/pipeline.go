// Package pipeline finds the dimension constructor in the loaded game and
// redirects it. It runs once, when the mod is loaded.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/hook"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/region"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/scan"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/scancache"
)

var (
	ErrMarkerNotFound            = errors.New("marker instruction not found")
	ErrEnclosingFunctionNotFound = errors.New("no function start before the marker")
)

// prologueBytes is how much of the function is logged around patching.
const prologueBytes = 16

// Installer redirects the function at target. hook.Install wrapped with the
// replacement address is the usual implementation.
type Installer func(target uintptr) (*hook.Hook, error)

// Pipeline holds the collaborators of a run.
type Pipeline struct {
	Locator region.Locator
	Scanner scan.Scanner
	// Cache is optional.
	Cache   *scancache.Cache
	Install Installer
	// GOARCH selects the disassembler used for diagnostics.
	GOARCH string
	Logger zerolog.Logger
}

// Result describes a completed run.
type Result struct {
	Region     region.Region
	Function   uintptr
	Marker     uintptr
	Candidates int
	Cached     bool
	Hook       *hook.Hook
	Elapsed    time.Duration
}

// Match is the outcome of scanning a code region.
type Match struct {
	Function   uintptr
	Marker     uintptr
	Candidates int
}

// Resolve scans code mapped at base and returns the function containing the
// marker.
func Resolve(s scan.Scanner, code []byte, base uintptr) (Match, error) {
	res := s.Scan(code, base)
	m := Match{Candidates: len(res.FunctionStarts)}
	if !res.MarkerFound {
		return m, ErrMarkerNotFound
	}
	m.Marker = res.Marker
	fn, ok := scan.EnclosingFunction(res.FunctionStarts, res.Marker)
	if !ok {
		return m, fmt.Errorf("%w (marker at %#x)", ErrEnclosingFunctionNotFound, res.Marker)
	}
	m.Function = fn
	return m, nil
}

// Run locates module, finds the target function and installs the hook.
func (p *Pipeline) Run(module string) (Result, error) {
	start := time.Now()
	var result Result

	reg, err := p.Locator.Locate(module)
	if err != nil {
		return result, fmt.Errorf("locating %q: %w", module, err)
	}
	result.Region = reg
	p.Logger.Info().
		Str("module", reg.Module).
		Str("path", reg.Path).
		Str("addr", fmt.Sprintf("%#x", reg.Start)).
		Str("size", fmt.Sprintf("%#x", reg.Size)).
		Msg("Found .text section")

	code := reg.Bytes()
	match, cached, err := p.resolve(code, reg)
	if err != nil {
		return result, err
	}
	result.Function, result.Marker = match.Function, match.Marker
	result.Candidates, result.Cached = match.Candidates, cached
	if !reg.Contains(match.Function) {
		return result, fmt.Errorf("function %#x lies outside %s", match.Function, reg)
	}

	offset := match.Function - reg.Start
	p.Logger.Debug().
		Str("marker", fmt.Sprintf("%#x", match.Marker)).
		Int("candidates", match.Candidates).
		Bool("cached", cached).
		Msgf("Function Offset: %#x", offset)
	p.logPrologue("before", code, offset, match.Function)

	h, err := p.Install(match.Function)
	result.Hook = h
	if err != nil {
		return result, err
	}
	p.Logger.Debug().Msgf("Hooked function at %#x", match.Function)
	p.logPrologue("after", code, offset, match.Function)

	result.Elapsed = time.Since(start)
	p.Logger.Info().Msgf("Took: %s", result.Elapsed)
	return result, nil
}

func (p *Pipeline) resolve(code []byte, reg region.Region) (Match, bool, error) {
	if p.Cache == nil {
		m, err := Resolve(p.Scanner, code, reg.Start)
		return m, false, err
	}

	key := scancache.Key(p.GOARCH, code)
	if e, ok := p.Cache.Get(key, uint64(reg.Size)); ok {
		p.Logger.Debug().Str("key", key).Msg("Using cached scan result")
		return Match{
			Function: reg.Start + uintptr(e.Function),
			Marker:   reg.Start + uintptr(e.Marker),
		}, true, nil
	}

	m, err := Resolve(p.Scanner, code, reg.Start)
	if err != nil {
		return m, false, err
	}
	err = p.Cache.Put(key, scancache.Entry{
		Function:   uint64(m.Function - reg.Start),
		Marker:     uint64(m.Marker - reg.Start),
		RegionSize: uint64(reg.Size),
		Module:     reg.Module,
	})
	if err != nil {
		p.Logger.Warn().Err(err).Msg("Cannot save scan cache")
	}
	return m, false, nil
}

func (p *Pipeline) logPrologue(when string, code []byte, offset, addr uintptr) {
	if offset >= uintptr(len(code)) {
		return
	}
	end := offset + prologueBytes
	if end > uintptr(len(code)) {
		end = uintptr(len(code))
	}
	head := code[offset:end]
	p.Logger.Debug().
		Str("when", when).
		Hex("bytes", head).
		Strs("code", scan.Disassemble(p.GOARCH, head, addr, 4)).
		Msg("Function prologue")
}

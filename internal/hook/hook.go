// Package hook redirects a native function to a replacement by overwriting
// its first instructions with a jump. The displaced instructions are copied
// into a trampoline that ends in a jump back, so the original behaviour stays
// callable.
//
// Hooks are permanent: there is no way to remove one once installed.
package hook

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrInstall        = errors.New("hook installation failed")
	ErrDoubleHook     = errors.New("target is already hooked")
	ErrAlreadyPatched = errors.New("target already starts with a jump")
	ErrUnpatchable    = errors.New("prologue cannot be relocated")
	ErrProtection     = errors.New("changing page protection failed")
	ErrUnsupported    = errors.New("hooking is not supported on this architecture")
	ErrCellAlreadySet = errors.New("hook already stored")
)

// Hook is an installed redirect.
type Hook struct {
	Target      uintptr
	Replacement uintptr
	// Original is the trampoline: calling it runs the target as it was
	// before the patch.
	Original uintptr
	// Saved holds the bytes the patch overwrote.
	Saved []byte
}

func (h *Hook) String() string {
	return fmt.Sprintf("%#x -> %#x (original via %#x)", h.Target, h.Replacement, h.Original)
}

var (
	registryMu sync.Mutex
	registry   = map[uintptr]*Hook{}
)

// Install patches target to jump to replacement. When the patch was written
// but the page protection could not be restored afterwards, the hook is live
// and returned together with the error.
func Install(target, replacement uintptr) (*Hook, error) {
	return install(hostArch, target, replacement, nil, nil)
}

// install builds the trampoline, hands the hook to publish and only then
// writes the patch. If target is left untouched, unpublish takes the hook back
// and the trampoline is freed.
func install(arch *archOps, target, replacement uintptr, publish func(*Hook) error, unpublish func(*Hook)) (h *Hook, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w at %#x: %w", ErrInstall, target, err)
		}
	}()

	if arch == nil {
		return nil, ErrUnsupported
	}
	if target == 0 || replacement == 0 {
		return nil, errors.New("nil function address")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[target]; ok {
		return nil, ErrDoubleHook
	}

	head := append([]byte(nil), sliceAtAddress(target, uintptr(arch.lookahead))...)
	if arch.isPatched(head) {
		return nil, ErrAlreadyPatched
	}

	patch := arch.jumpTo(target, replacement)
	consumed := 0
	var hint uintptr
	if arch.near {
		hint = target
	}
	trampolineSize := len(head)*arch.expansion + arch.maxPatch
	original, err := allocExecutable(hint, trampolineSize, func(at uintptr) ([]byte, error) {
		relocated, n, rerr := arch.relocate(head, target, at, len(patch))
		if rerr != nil {
			return nil, rerr
		}
		consumed = n
		return append(relocated, arch.absJump(target+uintptr(n))...), nil
	})
	if err != nil {
		return nil, err
	}

	h = &Hook{
		Target:      target,
		Replacement: replacement,
		Original:    original,
		Saved:       head[:consumed],
	}
	if publish != nil {
		if err = publish(h); err != nil {
			freeExecutable(original, trampolineSize)
			return nil, err
		}
	}

	// Whatever the jump does not cover up to the last displaced instruction
	// is never executed; fill it with nops to keep disassembly readable.
	code := make([]byte, consumed)
	copy(code, patch)
	for i := len(patch); i < consumed; i++ {
		code[i] = arch.pad
	}
	written, err := writeCode(target, code)
	if err != nil && !written {
		if unpublish != nil {
			unpublish(h)
		}
		freeExecutable(original, trampolineSize)
		return nil, err
	}

	registry[target] = h
	return h, err
}

// Cell holds the one installed hook a replacement routine forwards to. It can
// be filled once and read without locking from any thread.
type Cell struct {
	p atomic.Pointer[Hook]
}

func (c *Cell) Set(h *Hook) error {
	if h == nil {
		return errors.New("nil hook")
	}
	if !c.p.CompareAndSwap(nil, h) {
		return ErrCellAlreadySet
	}
	return nil
}

// Install patches target like the package level Install, storing the hook
// in c before the patch becomes live so the replacement never sees an empty
// cell.
func (c *Cell) Install(target, replacement uintptr) (*Hook, error) {
	if c.Get() != nil {
		return nil, fmt.Errorf("%w at %#x: %w", ErrInstall, target, ErrCellAlreadySet)
	}
	return install(hostArch, target, replacement, c.Set, c.clear)
}

// clear empties c if it still holds h.
func (c *Cell) clear(h *Hook) {
	c.p.CompareAndSwap(h, nil)
}

// Get returns the stored hook, or nil before Set.
func (c *Cell) Get() *Hook {
	return c.p.Load()
}

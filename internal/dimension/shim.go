package dimension

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/hook"
)

// ErrNoCallbacks is returned where native callbacks cannot be created.
var ErrNoCallbacks = errors.New("native callbacks are not supported on this platform")

// NameOffset returns where the name characters start inside the label
// object. libc++ keeps the short string length in the first byte, while the
// MSVC string stores its characters first.
func NameOffset(goos string) uintptr {
	if goos == "windows" {
		return 0
	}
	return 1
}

// Shim is the native replacement for the dimension constructor. It has the
// C signature
//
//	intptr_t f(void *d, void *l, uint32_t id, int32_t range, void *s, const void *label)
//
// and forwards to the original function stored in the hook cell.
type Shim struct {
	rewriter   *Rewriter
	cell       *hook.Cell
	logger     zerolog.Logger
	nameOffset uintptr

	// call invokes a native function pointer.
	call func(fn uintptr, args ...uintptr) uintptr

	once     sync.Once
	callback uintptr
	err      error
}

func NewShim(rewriter *Rewriter, cell *hook.Cell, logger zerolog.Logger) *Shim {
	return &Shim{
		rewriter:   rewriter,
		cell:       cell,
		logger:     logger,
		nameOffset: NameOffset(runtime.GOOS),
		call:       callNative,
	}
}

// Callback returns the address of the native entry point, creating it on
// first use.
func (s *Shim) Callback() (uintptr, error) {
	s.once.Do(func() {
		s.callback, s.err = newCallback(s.handle)
	})
	return s.callback, s.err
}

func (s *Shim) handle(d, l, id, rng, str, label uintptr) uintptr {
	h := s.cell.Get()
	if h == nil {
		// The patch is written after the cell is filled, so this cannot
		// happen through the game.
		s.logger.Error().Msg("Dimension hook called before installation")
		return 0
	}

	name := Unnamed
	if label != 0 {
		name = DecodeName(unsafe.Slice((*byte)(unsafe.Pointer(label+s.nameOffset)), MaxNameLen))
	}
	packed := s.rewriter.Rewrite(name, int32(rng))

	return s.call(h.Original, d, l, uintptr(uint32(id)), uintptr(uint32(packed)), str, label)
}

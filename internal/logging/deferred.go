package logging

import (
	"errors"
	"io"
	"sync"
)

// maxQueued bounds what Deferred keeps before a destination is attached.
// Older entries are dropped first.
const maxQueued = 4096

var ErrAlreadyAttached = errors.New("log destination already attached")

// Deferred is a writer whose destination becomes known late. Until Attach is
// called every write is queued; Attach replays the queue in order and from
// then on writes go straight through.
type Deferred struct {
	mu      sync.Mutex
	dest    io.Writer
	queue   [][]byte
	dropped int
}

func (d *Deferred) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dest != nil {
		return d.dest.Write(p)
	}
	if len(d.queue) >= maxQueued {
		d.queue = d.queue[1:]
		d.dropped++
	}
	d.queue = append(d.queue, append([]byte(nil), p...))
	return len(p), nil
}

// Attach flushes the queue to w and switches to writing directly. It may be
// called once. Entries that fail to flush are discarded and the first error
// is returned.
func (d *Deferred) Attach(w io.Writer) (err error) {
	if w == nil {
		return errors.New("nil log destination")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dest != nil {
		return ErrAlreadyAttached
	}
	for _, p := range d.queue {
		if _, werr := w.Write(p); werr != nil && err == nil {
			err = werr
		}
	}
	d.queue = nil
	d.dest = w
	return
}

// Detach drops the destination. Later writes are queued again until the next
// Attach.
func (d *Deferred) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dest = nil
}

// Attached reports whether a destination is set.
func (d *Deferred) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dest != nil
}

// Dropped returns how many queued entries were discarded for lack of room.
func (d *Deferred) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

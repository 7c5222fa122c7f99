// Package arena provides a fixed-capacity bump region used to own everything
// a parsed stylesheet refers to. Storage is reserved once, carved by advancing
// an offset and released in bulk by dropping the arena.
package arena

import (
	"bytes"
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
)

const align = 8

// Checkpoint is a labeled canary written into the arena byte stream.
type Checkpoint struct {
	Label  string
	Offset int
}

// Arena is a bump allocator over a region reserved up front.
// NOTE: not safe for concurrent use, use one arena per goroutine or lock
// externally.
type Arena struct {
	buf         []byte
	off         int
	charged     int // typed allocations accounted against capacity
	strings     map[string]string
	checkpoints []Checkpoint
}

// New reserves capacity bytes. Non-positive capacity produces an arena on
// which every allocation fails.
func New(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{
		buf:     make([]byte, capacity),
		strings: make(map[string]string),
	}
}

// Cap returns total capacity in bytes.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Used returns number of bytes consumed so far, including typed allocations
// and checkpoints.
func (a *Arena) Used() int {
	return a.off + a.charged
}

// Remaining returns number of bytes still available.
func (a *Arena) Remaining() int {
	return len(a.buf) - a.Used()
}

// AllocBytes carves n bytes from the region. It returns nil when the request
// does not fit. Zero-length requests return an empty non-nil slice without
// consuming anything.
func (a *Arena) AllocBytes(n int) []byte {
	if n < 0 || n > a.Remaining() {
		return nil
	}
	b := a.buf[a.off : a.off+n : a.off+n]
	a.off += n
	return b
}

// AllocSlice reserves room for n values of T. Elements live on the Go heap so
// the collector can follow pointers they hold, but their size is charged
// against arena capacity so the region bound still holds. Returns nil when
// the request does not fit.
func AllocSlice[T any](a *Arena, n int) []T {
	if n < 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	need := n * size
	if size != 0 && need/size != n {
		// overflow
		return nil
	}
	need = (need + align - 1) &^ (align - 1)
	if need > a.Remaining() {
		return nil
	}
	a.charged += need
	return make([]T, n)
}

// Intern returns canonical copy of b backed by arena storage. Equal content
// always returns the same string data for the lifetime of the arena. Second
// result is false when the arena is exhausted.
func (a *Arena) Intern(b []byte) (string, bool) {
	if s, ok := a.strings[string(b)]; ok {
		return s, true
	}
	if len(b) == 0 {
		return "", true
	}
	dst := a.AllocBytes(len(b))
	if dst == nil {
		return "", false
	}
	copy(dst, b)
	// arena bytes are never rewritten once handed out, string may alias them
	s := unsafe.String(unsafe.SliceData(dst), len(dst))
	a.strings[s] = s
	return s, true
}

// Interned returns number of distinct strings held by the arena.
func (a *Arena) Interned() int {
	return len(a.strings)
}

// Checkpoint writes label into the region as a canary so later Verify can
// detect writes that ran past an earlier allocation. Returns false if there
// is no room for the canary.
func (a *Arena) Checkpoint(label string) bool {
	dst := a.AllocBytes(len(label))
	if dst == nil {
		return false
	}
	copy(dst, label)
	a.checkpoints = append(a.checkpoints, Checkpoint{Label: label, Offset: a.off - len(label)})
	return true
}

// Checkpoints returns recorded canaries in insertion order.
func (a *Arena) Checkpoints() []Checkpoint {
	return a.checkpoints
}

// Verify checks that every canary is intact and that canaries were laid down
// in increasing order. All problems found are reported together.
func (a *Arena) Verify() error {
	var (
		err  error
		prev = -1
	)
	for _, cp := range a.checkpoints {
		if cp.Offset <= prev {
			err = multierr.Append(err, fmt.Errorf("checkpoint %q at %d is out of order (previous at %d)", cp.Label, cp.Offset, prev))
		}
		prev = cp.Offset
		end := cp.Offset + len(cp.Label)
		if cp.Offset < 0 || end > len(a.buf) {
			err = multierr.Append(err, fmt.Errorf("checkpoint %q at %d is outside of region", cp.Label, cp.Offset))
			continue
		}
		if !bytes.Equal(a.buf[cp.Offset:end], []byte(cp.Label)) {
			err = multierr.Append(err, fmt.Errorf("checkpoint %q at %d has been overwritten", cp.Label, cp.Offset))
		}
	}
	return err
}

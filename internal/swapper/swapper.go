// Package swapper implements the page-replacement policy over a fixed
// in-RAM frame quota per address space, grounded on
// original_source/os/src/memory/mapping/swapper.rs.
package swapper

import "github.com/rcore-os/rCore-Tutorial/internal/mem"

// Swapper governs which framed pages of one address space are resident.
// Alternative policies (clock, LRU) implement the same interface without
// the mapping engine needing to change.
type Swapper interface {
	// Full reports whether the resident-page quota has been reached.
	Full() bool
	// Pop evicts one resident mapping, chosen by policy.
	Pop() (mem.VirtPageNum, mem.Frame, bool)
	// Push records a freshly-resident mapping. Must not be called while
	// Full.
	Push(vpn mem.VirtPageNum, frame mem.Frame)
	// Find returns the resident frame for vpn, if any.
	Find(vpn mem.VirtPageNum) (mem.Frame, bool)
	// Retain keeps only the entries for which keep returns true,
	// releasing the frames of every entry it drops.
	Retain(keep func(mem.VirtPageNum) bool)
	// Len reports the number of resident entries.
	Len() int
}

// FIFO is the default Swapper: a first-in-first-out policy, a queue
// recording insertion order plus a map holding the frames.
type FIFO struct {
	quota   int
	queue   []mem.VirtPageNum
	entries map[mem.VirtPageNum]mem.Frame
}

// NewFIFO creates a FIFO swapper with the given resident-page quota.
func NewFIFO(quota int) *FIFO {
	return &FIFO{
		quota:   quota,
		entries: make(map[mem.VirtPageNum]mem.Frame),
	}
}

// Full reports |entries| == quota.
func (f *FIFO) Full() bool { return len(f.entries) == f.quota }

// Len reports the number of resident entries.
func (f *FIFO) Len() int { return len(f.entries) }

// Pop removes the oldest-inserted mapping.
func (f *FIFO) Pop() (mem.VirtPageNum, mem.Frame, bool) {
	if len(f.queue) == 0 {
		return 0, mem.Frame{}, false
	}
	vpn := f.queue[0]
	f.queue = f.queue[1:]
	frame, ok := f.entries[vpn]
	if !ok {
		panic("swapper: queue/entries out of sync")
	}
	delete(f.entries, vpn)
	return vpn, frame, true
}

// Push records a new resident mapping.
func (f *FIFO) Push(vpn mem.VirtPageNum, frame mem.Frame) {
	if f.Full() {
		panic("swapper: push while full")
	}
	f.queue = append(f.queue, vpn)
	f.entries[vpn] = frame
}

// Find returns the resident frame for vpn, if any.
func (f *FIFO) Find(vpn mem.VirtPageNum) (mem.Frame, bool) {
	fr, ok := f.entries[vpn]
	return fr, ok
}

// Retain filters both the queue and the entry map, releasing the frame of
// every dropped entry back to its allocator.
func (f *FIFO) Retain(keep func(mem.VirtPageNum) bool) {
	kept := f.queue[:0]
	for _, vpn := range f.queue {
		if keep(vpn) {
			kept = append(kept, vpn)
			continue
		}
		f.entries[vpn].Release()
		delete(f.entries, vpn)
	}
	f.queue = kept
}

// Package swapfile implements the disk-backed swap store: a
// fixed-capacity, file-backed page store with a stacked index allocator,
// grounded on original_source/os/src/fs/swap.rs and on the INode
// abstraction biscuit's fs package exposes for its block devices.
package swapfile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rcore-os/rCore-Tutorial/internal/fsnode"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
)

// FileName is the path, at the FS root, of the pre-created swap file.
const FileName = "SWAP_FILE"

// Capacity is the number of pages the swap file can hold.
const Capacity = 4096

// ErrFull is returned when the swap store has no free slots left.
var ErrFull = errors.New("swapfile: store is full")

// Store is the process-wide swap file singleton: a stacked allocator over
// [0, Capacity) backed by an INode. FS errors on the swap path are
// fatal — Read/Write panic rather than returning an error, because
// there is no sensible recovery once the backing store itself is
// unreliable.
type Store struct {
	mu    sync.Mutex
	inode fsnode.INode

	watermark int
	free      []int
}

// Open attaches a Store to an already-opened SWAP_FILE inode. Callers
// are expected to have located it via fsnode's root lookup: the file
// must be pre-created by the filesystem builder (see cmd/mkdiskimg); if
// it is absent, callers should fail loudly rather than attempt to
// create it here.
func Open(inode fsnode.INode) *Store {
	return &Store{inode: inode}
}

// Alloc reserves the next free page slot.
func (s *Store) Alloc() (Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx int
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else if s.watermark < Capacity {
		idx = s.watermark
		s.watermark++
	} else {
		return Tracker{}, ErrFull
	}
	return Tracker{store: s, index: idx}, nil
}

func (s *Store) dealloc(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= Capacity {
		panic("swapfile: dealloc index out of range")
	}
	s.free = append(s.free, index)
}

func (s *Store) readPage(index int) [mem.PageSize]byte {
	var buf [mem.PageSize]byte
	n, err := s.inode.ReadAt(int64(index)*mem.PageSize, buf[:])
	if err != nil || n != mem.PageSize {
		panic(fmt.Sprintf("swapfile: read_page %d failed: %v", index, err))
	}
	return buf
}

func (s *Store) writePage(index int, data [mem.PageSize]byte) {
	n, err := s.inode.WriteAt(int64(index)*mem.PageSize, data[:])
	if err != nil || n != mem.PageSize {
		panic(fmt.Sprintf("swapfile: write_page %d failed: %v", index, err))
	}
}

// Tracker is an exclusively-owned index into the swap file. Release
// returns the slot, mirroring the original's SwapTracker Drop impl; Go
// callers must call it exactly once when the slot is no longer needed
// (either because the page was faulted back in, or the owning segment was
// unmapped).
type Tracker struct {
	store *Store
	index int
}

// Read returns the page contents stored at this slot.
func (t Tracker) Read() [mem.PageSize]byte {
	return t.store.readPage(t.index)
}

// Write stores data at this slot.
func (t Tracker) Write(data [mem.PageSize]byte) {
	t.store.writePage(t.index, data)
}

// Release frees this slot back to the store's allocator.
func (t Tracker) Release() {
	t.store.dealloc(t.index)
}

// Package pagetable implements Sv39 page-table entries and page-table
// frames: a 64-bit PTE format with the standard V/R/W/X/U/G/A/D flag
// bits plus two reserved-for-software bits, and the tracker that owns
// the physical frame a table lives in.
package pagetable

import "github.com/rcore-os/rCore-Tutorial/internal/mem"

// Flag is one bit (or a combination of bits) of a page-table entry.
type Flag uint64

const (
	V Flag = 1 << 0 // valid
	R Flag = 1 << 1 // readable
	W Flag = 1 << 2 // writable
	X Flag = 1 << 3 // executable
	U Flag = 1 << 4 // user accessible
	G Flag = 1 << 5 // global
	A Flag = 1 << 6 // accessed
	D Flag = 1 << 7 // dirty
	// RSW0/RSW1 (bits 8-9) are reserved for software use; unused here.

	// permMask covers the bits meaningful to a leaf PTE's access rights.
	permMask = R | W | X | U
	// flagsMask covers every bit below the PPN field.
	flagsMask = 1<<10 - 1
)

const ppnShift = 10

// Entry is one 64-bit Sv39 page-table entry.
//
// Invariants: V set implies the PPN field is meaningful. R=W=X=0 with V
// set means this is an intermediate node pointing at the next-level
// table. A swapped-out leaf is represented as a non-empty entry with V
// cleared and the PPN field zeroed, but the original permission flags
// preserved so remapping restores the original access rights. An empty
// entry is all-zero.
type Entry uint64

// New builds an entry with the given page number and flag bits. Passing a
// zero ppn with V unset is used for entries that do not yet carry an
// address (e.g. freshly-invalidated swapped entries constructed by hand).
func New(ppn mem.PhysPageNum, flags Flag) Entry {
	return Entry(uint64(ppn)<<ppnShift | uint64(flags)&flagsMask)
}

// IsEmpty reports whether the entry is entirely zero.
func (e Entry) IsEmpty() bool { return e == 0 }

// IsValid reports whether the V bit is set.
func (e Entry) IsValid() bool { return e.flagBits()&V != 0 }

// IsSwapped reports whether this entry represents a page evicted to swap:
// non-empty, but not valid.
func (e Entry) IsSwapped() bool { return !e.IsEmpty() && !e.IsValid() }

// IsIntermediate reports whether this is a non-leaf node: valid, but with
// no access permissions of its own.
func (e Entry) IsIntermediate() bool {
	return e.IsValid() && e.flagBits()&permMask == 0
}

// HasFlag reports whether every bit in f is set.
func (e Entry) HasFlag(f Flag) bool { return uint64(e.flagBits())&uint64(f) == uint64(f) }

func (e Entry) flagBits() Flag { return Flag(uint64(e) & flagsMask) }

// PageNumber returns the physical page number this entry points at. It is
// meaningful only when the entry is valid or was valid before being
// invalidated by swapping-out (for a swapped entry it is always zero).
func (e Entry) PageNumber() mem.PhysPageNum {
	return mem.PhysPageNum(uint64(e) >> ppnShift)
}

// Clear resets the entry to empty.
func (e *Entry) Clear() { *e = 0 }

// Invalidate turns a valid leaf entry into its swapped-out form: V is
// cleared, the PPN field is zeroed, and every other flag bit (the
// original access rights) is preserved.
func (e *Entry) Invalidate() {
	if !e.IsValid() {
		panic("pagetable: invalidate of non-valid entry")
	}
	remaining := e.flagBits() &^ V
	*e = Entry(uint64(remaining))
}

// Remap turns a swapped-out (non-empty, non-valid) entry back into a
// valid leaf pointing at ppn, restoring V and keeping every preserved
// flag.
func (e *Entry) Remap(ppn mem.PhysPageNum) {
	if e.IsEmpty() || e.IsValid() {
		panic("pagetable: remap of entry that is not swapped-out")
	}
	restored := e.flagBits() | V
	*e = Entry(uint64(ppn)<<ppnShift | uint64(restored))
}

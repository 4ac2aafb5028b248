package pagetable

import (
	"encoding/binary"

	"github.com/rcore-os/rCore-Tutorial/internal/mem"
)

// EntriesPerTable is the number of PTEs in one Sv39 page-table page.
const EntriesPerTable = mem.PageSize / 8

// Table is a view over one 4 KiB page-table page: 512 PTEs, read and
// written through the backing Frame's byte slice. Unlike biscuit's
// Pmap_t, which reinterprets a page via unsafe.Pointer, this view goes
// through encoding/binary so the same code works whether the backing
// store is simulated RAM (tests, this repository's host build) or a real
// mapped physical page.
type Table struct {
	bytes []byte // the 4096 bytes backing this table, from a Frame
}

// NewTable wraps a page-sized byte slice as a Table.
func NewTable(bytes []byte) Table {
	if len(bytes) != mem.PageSize {
		panic("pagetable: table must be exactly one page")
	}
	return Table{bytes: bytes}
}

// Get returns the entry at the given index (0..511).
func (t Table) Get(i uint64) Entry {
	return Entry(binary.LittleEndian.Uint64(t.bytes[i*8:]))
}

// Set writes the entry at the given index.
func (t Table) Set(i uint64, e Entry) {
	binary.LittleEndian.PutUint64(t.bytes[i*8:], uint64(e))
}

// Tracker owns the physical frame backing one page-table page. A Mapping
// keeps a Tracker for its root table and for every intermediate table it
// allocates on demand, mirroring biscuit's PageTableTracker/page_tables
// vector: dropping a Mapping drops every tracker, returning every
// page-table frame to the frame allocator.
type Tracker struct {
	Frame mem.Frame
}

// NewTracker allocates a fresh, zeroed page-table frame.
func NewTracker(alloc *mem.Allocator) (Tracker, error) {
	f, err := alloc.Alloc()
	if err != nil {
		return Tracker{}, err
	}
	return Tracker{Frame: f}, nil
}

// Table returns the page-table view over this tracker's frame.
func (t Tracker) Table() Table { return NewTable(t.Frame.Bytes()) }

// PageNumber returns the physical page number of this table.
func (t Tracker) PageNumber() mem.PhysPageNum { return t.Frame.Number() }

// Release returns the backing frame to its allocator.
func (t Tracker) Release() { t.Frame.Release() }

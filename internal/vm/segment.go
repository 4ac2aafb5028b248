// Package vm implements the Sv39 mapping engine: one Mapping per address
// space, built from Segments over Linear or Framed virtual memory, with
// page-fault-driven swapping to a Swapper-governed resident set.
// Grounded on biscuit's vm/as.go address-space structure and on
// original_source/os/src/memory/mapping/mapping.rs for the exact
// map/unmap/handle_page_fault algorithms.
package vm

import (
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/pagetable"
)

// MapType selects how a Segment's virtual pages are backed.
type MapType int

const (
	// Framed pages are each backed by an independently allocated physical
	// frame, populated on demand and eligible for swapping.
	Framed MapType = iota
	// Linear pages map directly to a physical address a fixed offset
	// below their virtual address (the kernel direct map); they are
	// never swapped.
	Linear
)

// KernelOffset is the constant subtracted from a virtual address to reach
// its physical address in a Linear segment.
const KernelOffset = mem.VirtAddr(0xffff_ffff_0000_0000)

// Segment is a contiguous virtual-address range with a uniform map type
// and PTE flag set.
type Segment struct {
	Start mem.VirtAddr
	End   mem.VirtAddr
	Type  MapType
	Flags pagetable.Flag
}

// pageRange returns the [floor(Start), ceil(End)) virtual page numbers.
func (s Segment) pageRange() (mem.VirtPageNum, mem.VirtPageNum) {
	return s.Start.Floor(), s.End.Ceil()
}

// Pages returns the virtual page numbers covered by the segment, in
// ascending order.
func (s Segment) Pages() []mem.VirtPageNum {
	lo, hi := s.pageRange()
	pages := make([]mem.VirtPageNum, 0, hi-lo)
	for vpn := lo; vpn < hi; vpn++ {
		pages = append(pages, vpn)
	}
	return pages
}

// pageContribution fills dst (one page, len(dst) == mem.PageSize) with the
// slice of initData that overlaps the page starting at pageAddr, per the
// overlap formula: start = max(0, seg.Start-pageAddr), stop =
// min(PageSize, seg.End-pageAddr), dst[start:stop] = initData at the
// matching offset within the segment.
func pageContribution(dst []byte, seg Segment, pageAddr mem.VirtAddr, initData []byte) {
	start := int64(0)
	if d := int64(seg.Start) - int64(pageAddr); d > start {
		start = d
	}
	stop := int64(mem.PageSize)
	if d := int64(seg.End) - int64(pageAddr); d < stop {
		stop = d
	}
	if stop <= start {
		return
	}
	srcBase := int64(pageAddr) - int64(seg.Start)
	srcStart := srcBase + start
	srcStop := srcBase + stop
	if srcStart < 0 {
		srcStart = 0
	}
	if srcStop > int64(len(initData)) {
		srcStop = int64(len(initData))
	}
	if srcStop <= srcStart {
		return
	}
	n := srcStop - srcStart
	copy(dst[start:start+n], initData[srcStart:srcStop])
}

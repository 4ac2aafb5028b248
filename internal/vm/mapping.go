package vm

import (
	"errors"
	"fmt"

	"github.com/rcore-os/rCore-Tutorial/internal/kutil"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/pagetable"
	"github.com/rcore-os/rCore-Tutorial/internal/swapfile"
	"github.com/rcore-os/rCore-Tutorial/internal/swapper"
)

// ErrPageNotMapped is returned by HandlePageFault when the faulting address
// has no swap-backed page, i.e. a genuine access violation.
var ErrPageNotMapped = errors.New("vm: stval page is not mapped")

var levelShift = [3]uint{30, 21, 12}

// Mapping is one Sv39 address space: a multi-level page-table tree rooted
// at root, a resident-page policy (Swapper) bounded by a frame quota, and
// the set of virtual pages currently evicted to the swap store.
//
// Dropping a Mapping (via Destroy) releases every page-table frame, every
// resident frame, and every swap slot it owns; no raw pointers escape its
// lifetime.
type Mapping struct {
	frames *mem.Allocator
	swap   *swapfile.Store

	root   pagetable.Tracker
	tables []pagetable.Tracker

	swapper swapper.Swapper
	evicted map[mem.VirtPageNum]swapfile.Tracker
}

// New allocates a root page-table frame and an empty FIFO swapper bounded
// by frameQuota resident pages.
func New(frames *mem.Allocator, swap *swapfile.Store, frameQuota int) (*Mapping, error) {
	root, err := pagetable.NewTracker(frames)
	if err != nil {
		return nil, fmt.Errorf("vm: allocate root page table: %w", err)
	}
	return &Mapping{
		frames:  frames,
		swap:    swap,
		root:    root,
		swapper: swapper.NewFIFO(frameQuota),
		evicted: make(map[mem.VirtPageNum]swapfile.Tracker),
	}, nil
}

// Activate writes satp for this Mapping's root table and fences the TLB.
func (m *Mapping) Activate(mmu MMU) {
	mmu.WriteSATP(satpValue(m.root.PageNumber()))
	mmu.FenceVMA()
}

// findEntry walks the three-level tree for vpn. When create is true, empty
// intermediate PTEs are populated with freshly allocated tables; when
// false, an empty intermediate PTE causes ok=false. The returned table and
// index name the leaf slot.
func (m *Mapping) findEntry(vpn mem.VirtPageNum, create bool) (pagetable.Table, uint64, bool, error) {
	levels := vpn.Levels()
	table := m.root.Table()
	for level := 0; level < 2; level++ {
		idx := levels[level]
		entry := table.Get(idx)
		switch {
		case entry.IsEmpty():
			if !create {
				return pagetable.Table{}, 0, false, nil
			}
			tracker, err := pagetable.NewTracker(m.frames)
			if err != nil {
				return pagetable.Table{}, 0, false, fmt.Errorf("vm: allocate page table: %w", err)
			}
			m.tables = append(m.tables, tracker)
			table.Set(idx, pagetable.New(tracker.PageNumber(), pagetable.V))
			table = tracker.Table()
		case entry.IsIntermediate():
			table = pagetable.NewTable(m.frames.BytesAt(entry.PageNumber()))
		default:
			panic("vm: expected intermediate page-table entry")
		}
	}
	return table, levels[2], true, nil
}

// Map establishes every PTE a segment covers. For Linear segments each VPN
// maps directly to the physical address KernelOffset below it. For Framed
// segments, pages are allocated up to the swapper's quota and evicted to
// the swap store beyond it. initData, if non-nil, is copied page-by-page
// via the segment's overlap contribution.
//
// On failure the Mapping is left in a consistent partial state (the pages
// already established remain established); callers must discard the
// Mapping rather than retry.
func (m *Mapping) Map(seg Segment, initData []byte) error {
	switch seg.Type {
	case Linear:
		return m.mapLinear(seg, initData)
	case Framed:
		return m.mapFramed(seg, initData)
	default:
		panic("vm: unknown map type")
	}
}

func (m *Mapping) mapLinear(seg Segment, initData []byte) error {
	for _, vpn := range seg.Pages() {
		table, idx, _, err := m.findEntry(vpn, true)
		if err != nil {
			return err
		}
		if !table.Get(idx).IsEmpty() {
			return fmt.Errorf("vm: vpn %d already mapped", vpn)
		}
		phys := mem.PhysAddr(uintptr(vpn.Addr()) - uintptr(KernelOffset))
		table.Set(idx, pagetable.New(phys.PageNum(), seg.Flags|pagetable.V))
		if initData != nil {
			var buf [mem.PageSize]byte
			pageContribution(buf[:], seg, vpn.Addr(), initData)
			copy(m.frames.BytesAt(phys.PageNum()), buf[:])
		}
	}
	return nil
}

func (m *Mapping) mapFramed(seg Segment, initData []byte) error {
	for _, vpn := range seg.Pages() {
		table, idx, _, err := m.findEntry(vpn, true)
		if err != nil {
			return err
		}
		if !table.Get(idx).IsEmpty() {
			return fmt.Errorf("vm: vpn %d already mapped", vpn)
		}

		var buf [mem.PageSize]byte
		if initData != nil {
			pageContribution(buf[:], seg, vpn.Addr(), initData)
		}

		if !m.swapper.Full() {
			frame, err := m.frames.Alloc()
			if err != nil {
				return fmt.Errorf("vm: alloc frame for vpn %d: %w", vpn, err)
			}
			table.Set(idx, pagetable.New(frame.Number(), seg.Flags|pagetable.V))
			copy(frame.Bytes(), buf[:])
			m.swapper.Push(vpn, frame)
		} else {
			tracker, err := m.swap.Alloc()
			if err != nil {
				return fmt.Errorf("vm: alloc swap slot for vpn %d: %w", vpn, err)
			}
			// A swapped-out PTE is distinguished from an empty one only
			// by seg.Flags being nonzero (V stays clear either way); a
			// framed segment must always carry at least one of R/W/X.
			if seg.Flags == 0 {
				panic("vm: framed segment with no access flags can't be swapped out")
			}
			table.Set(idx, pagetable.New(0, seg.Flags))
			tracker.Write(buf)
			m.evicted[vpn] = tracker
		}
	}
	return nil
}

// Unmap clears every PTE a segment covers, releasing resident frames back
// to the frame allocator and evicted slots back to the swap store.
func (m *Mapping) Unmap(seg Segment) error {
	pages := seg.Pages()
	inSeg := make(map[mem.VirtPageNum]bool, len(pages))
	for _, vpn := range pages {
		inSeg[vpn] = true
		table, idx, ok, err := m.findEntry(vpn, false)
		if err != nil {
			return err
		}
		if !ok || table.Get(idx).IsEmpty() {
			return fmt.Errorf("vm: vpn %d is not mapped", vpn)
		}
		var zero pagetable.Entry
		table.Set(idx, zero)
	}
	m.swapper.Retain(func(vpn mem.VirtPageNum) bool { return !inSeg[vpn] })
	for vpn := range inSeg {
		if tracker, ok := m.evicted[vpn]; ok {
			tracker.Release()
			delete(m.evicted, vpn)
		}
	}
	return nil
}

// HandlePageFault services a load/store/instruction page fault at
// faultingVA. The faulting page must have an evicted SwapTracker; if the
// swapper is at quota, the oldest resident page is evicted to make room.
func (m *Mapping) HandlePageFault(faultingVA mem.VirtAddr) error {
	vpn := faultingVA.Floor()
	tracker, ok := m.evicted[vpn]
	if !ok {
		return ErrPageNotMapped
	}
	data := tracker.Read()

	table, idx, ok, err := m.findEntry(vpn, false)
	if err != nil {
		return err
	}
	if !ok {
		panic("vm: evicted vpn has no leaf entry")
	}
	entry := table.Get(idx)

	var frame mem.Frame
	if m.swapper.Full() {
		victimVPN, victimFrame, ok := m.swapper.Pop()
		if !ok {
			panic("vm: swapper full but pop found nothing")
		}
		victimTable, victimIdx, ok, err := m.findEntry(victimVPN, false)
		if err != nil {
			return err
		}
		if !ok {
			panic("vm: victim vpn has no leaf entry")
		}
		victimEntry := victimTable.Get(victimIdx)
		victimEntry.Invalidate()
		victimTable.Set(victimIdx, victimEntry)

		victimSlot, err := m.swap.Alloc()
		if err != nil {
			return fmt.Errorf("vm: alloc swap slot for victim vpn %d: %w", victimVPN, err)
		}
		var victimData [mem.PageSize]byte
		copy(victimData[:], victimFrame.Bytes())
		victimSlot.Write(victimData)
		m.evicted[victimVPN] = victimSlot

		frame = victimFrame
	} else {
		frame, err = m.frames.Alloc()
		if err != nil {
			return fmt.Errorf("vm: alloc frame for vpn %d: %w", vpn, err)
		}
	}

	copy(frame.Bytes(), data[:])
	entry.Remap(frame.Number())
	table.Set(idx, entry)

	delete(m.evicted, vpn)
	tracker.Release()
	m.swapper.Push(vpn, frame)
	return nil
}

// Lookup walks the currently-mapped tree for va, stopping at the first
// leaf PTE (which may sit in the root or middle table, i.e. a 1 GiB or
// 2 MiB huge page) and returning the corresponding physical address.
func (m *Mapping) Lookup(va mem.VirtAddr) (mem.PhysAddr, bool) {
	levels := va.Floor().Levels()
	table := m.root.Table()
	for level := 0; level < 3; level++ {
		entry := table.Get(levels[level])
		if !entry.IsValid() {
			return 0, false
		}
		if level == 2 || !entry.IsIntermediate() {
			length := levelShift[level]
			mask := uintptr(1)<<length - 1
			base := uintptr(entry.PageNumber()) << mem.PageShift
			return mem.PhysAddr(base | (uintptr(va) & mask)), true
		}
		table = pagetable.NewTable(m.frames.BytesAt(entry.PageNumber()))
	}
	return 0, false
}

// Destroy releases every frame and swap slot this Mapping owns: its
// page-table frames, the frames held by its swapper, and any evicted swap
// slots. Callers must not use the Mapping afterward.
func (m *Mapping) Destroy() {
	for _, t := range m.tables {
		t.Release()
	}
	m.tables = nil
	m.root.Release()
	m.swapper.Retain(func(mem.VirtPageNum) bool { return false })
	for vpn, tracker := range m.evicted {
		tracker.Release()
		delete(m.evicted, vpn)
	}
}

// RootPageNumber returns the physical page number of the root page table,
// for diagnostics.
func (m *Mapping) RootPageNumber() mem.PhysPageNum { return m.root.PageNumber() }

// CopyIn reads n bytes out of this address space starting at va, crossing
// page boundaries as needed. A covered page that is swapped out is first
// brought back through HandlePageFault, as a hardware access would. It
// panics if any covered page is not mapped at all; the syscall table does
// not validate user pointers before calling it, the same assumption the
// original's raw from_raw_parts_mut pointer cast makes.
func (m *Mapping) CopyIn(va mem.VirtAddr, n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		phys, ok := m.Lookup(va)
		if !ok && m.HandlePageFault(va) == nil {
			phys, ok = m.Lookup(va)
		}
		if !ok {
			panic("vm: copy-in from unmapped user address")
		}
		pageOff := int(va.Offset())
		take := kutil.Min(n-len(out), mem.PageSize-pageOff)
		src := m.frames.BytesAt(phys.PageNum())
		out = append(out, src[pageOff:pageOff+take]...)
		va += mem.VirtAddr(take)
	}
	return out
}

// CopyOut writes data into this address space starting at va, crossing
// page boundaries as needed. Swapped-out pages are faulted back in first;
// it panics if any covered page is not mapped at all.
func (m *Mapping) CopyOut(va mem.VirtAddr, data []byte) {
	written := 0
	for written < len(data) {
		phys, ok := m.Lookup(va)
		if !ok && m.HandlePageFault(va) == nil {
			phys, ok = m.Lookup(va)
		}
		if !ok {
			panic("vm: copy-out to unmapped user address")
		}
		pageOff := int(va.Offset())
		take := kutil.Min(len(data)-written, mem.PageSize-pageOff)
		dst := m.frames.BytesAt(phys.PageNum())
		copy(dst[pageOff:pageOff+take], data[written:written+take])
		written += take
		va += mem.VirtAddr(take)
	}
}

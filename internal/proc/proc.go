// Package proc implements the process abstraction: the owner of one
// address-space Mapping, a growing user-space VA cursor for stack
// allocation, and the table of open file descriptors new threads
// inherit. Grounded on biscuit's Vm_t, which pairs an address space with
// the bookkeeping fields a thread needs to join it.
package proc

import (
	"fmt"

	"github.com/rcore-os/rCore-Tutorial/internal/fsnode"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/pagetable"
	"github.com/rcore-os/rCore-Tutorial/internal/swapfile"
	"github.com/rcore-os/rCore-Tutorial/internal/vm"
)

// UserBase is the first virtual address handed out by AllocPageRange; user
// and kernel processes both start their cursor here.
const UserBase = mem.VirtAddr(0x1000_0000)

// Process owns one address space and the state threads of that process
// share.
type Process struct {
	IsUser      bool
	Mapping     *vm.Mapping
	FrameQuota  int
	Descriptors []fsnode.INode

	cursor mem.VirtAddr
}

// NewUser creates a user process with its own Mapping bounded by
// frameQuota resident framed pages.
func NewUser(frames *mem.Allocator, swap *swapfile.Store, frameQuota int) (*Process, error) {
	return newProcess(frames, swap, frameQuota, true)
}

// NewKernel creates a kernel process (used for the idle thread and other
// kernel-only threads), whose Mapping is bounded by frameQuota resident
// framed pages just like a user process's.
func NewKernel(frames *mem.Allocator, swap *swapfile.Store, frameQuota int) (*Process, error) {
	return newProcess(frames, swap, frameQuota, false)
}

func newProcess(frames *mem.Allocator, swap *swapfile.Store, frameQuota int, isUser bool) (*Process, error) {
	m, err := vm.New(frames, swap, frameQuota)
	if err != nil {
		return nil, err
	}
	p := &Process{
		IsUser:     isUser,
		Mapping:    m,
		FrameQuota: frameQuota,
		cursor:     UserBase,
	}
	return p, nil
}

// AllocPageRange maps a fresh Framed segment of size bytes (rounded up to
// whole pages) at the process's VA cursor, advances the cursor past it,
// and returns the mapped range. Used to hand a new thread its stack.
func (p *Process) AllocPageRange(size uintptr, flags pagetable.Flag) (mem.VirtAddr, mem.VirtAddr, error) {
	start := p.cursor
	pages := (size + mem.PageSize - 1) / mem.PageSize
	end := start + mem.VirtAddr(pages*mem.PageSize)

	seg := vm.Segment{Start: start, End: end, Type: vm.Framed, Flags: flags}
	if err := p.Mapping.Map(seg, nil); err != nil {
		return 0, 0, fmt.Errorf("proc: alloc page range: %w", err)
	}
	p.cursor = end
	return start, end, nil
}

// AddDescriptor appends an open INode to this process's descriptor table
// and returns its index.
func (p *Process) AddDescriptor(n fsnode.INode) int {
	p.Descriptors = append(p.Descriptors, n)
	return len(p.Descriptors) - 1
}

// Destroy releases every resource this process's Mapping owns.
func (p *Process) Destroy() {
	p.Mapping.Destroy()
}

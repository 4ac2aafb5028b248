// Package thread implements the thread abstraction: a stack range, a
// saved Context slot that is populated exactly while the thread is
// suspended, liveness/sleep flags, and a reference to the owning
// Process. Grounded on original_source/os/src/process/thread.rs.
package thread

import (
	"sync"
	"sync/atomic"

	"github.com/rcore-os/rCore-Tutorial/internal/fsnode"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/pagetable"
	"github.com/rcore-os/rCore-Tutorial/internal/proc"
	"github.com/rcore-os/rCore-Tutorial/internal/stack"
	"github.com/rcore-os/rCore-Tutorial/internal/vm"
)

// StackSize is the size in bytes of every thread's stack.
const StackSize = 512 * 1024

var idCounter int64

// ID identifies a thread; negative values are reserved for error returns
// by callers that need to report failure through the same type.
type ID = int64

// Thread is one schedulable unit of execution: a stack range within its
// process's address space, and the mutable state the scheduler and trap
// dispatcher manipulate.
type Thread struct {
	ID         ID
	StackStart mem.VirtAddr
	StackEnd   mem.VirtAddr
	Process    *proc.Process

	mu          sync.Mutex
	context     *stack.Context // non-nil iff the thread is suspended
	sleeping    bool
	dead        bool
	descriptors []fsnode.INode
}

// New allocates a stack in process, builds the thread's initial Context
// at entry with up to 8 argument words, and returns a fresh Thread with
// context populated (i.e. suspended, ready to be prepared for the first
// time).
func New(process *proc.Process, entry uint64, args [8]uint64) (*Thread, error) {
	start, end, err := process.AllocPageRange(StackSize, pagetable.R|pagetable.W|boolFlag(process.IsUser))
	if err != nil {
		return nil, err
	}
	ctx := stack.NewThreadContext(uint64(end), entry, args, process.IsUser)
	return &Thread{
		ID:          atomic.AddInt64(&idCounter, 1),
		StackStart:  start,
		StackEnd:    end,
		Process:     process,
		context:     &ctx,
		descriptors: append([]fsnode.INode(nil), process.Descriptors...),
	}, nil
}

func boolFlag(isUser bool) pagetable.Flag {
	if isUser {
		return pagetable.U
	}
	return 0
}

// Prepare activates this thread's address space and pushes its saved
// Context onto the shared interrupt stack, returning the pointer the trap
// return path restores from. The thread's own context slot is left empty
// until the next Park.
func (t *Thread) Prepare(mmu vm.MMU, istack *stack.Stack) *stack.Context {
	t.Process.Mapping.Activate(mmu)

	t.mu.Lock()
	ctx := t.context
	t.context = nil
	t.mu.Unlock()

	if ctx == nil {
		panic("thread: prepare of thread with no parked context")
	}
	return istack.PushContext(*ctx)
}

// Park saves ctx as this thread's suspended Context. The thread must not
// already have one parked.
func (t *Thread) Park(ctx stack.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.context != nil {
		panic("thread: park of thread that already has a parked context")
	}
	t.context = &ctx
}

// Sleeping reports whether the thread is currently marked sleeping.
func (t *Thread) Sleeping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sleeping
}

// SetSleeping sets the sleeping flag.
func (t *Thread) SetSleeping(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sleeping = v
}

// Dead reports whether the thread has been marked dead.
func (t *Thread) Dead() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dead
}

// Kill marks the thread dead. It does not reclaim its process; the
// caller (Processor) is responsible for dropping the last reference.
func (t *Thread) Kill() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dead = true
}

// Descriptor returns the open INode at index fd, and whether it exists.
func (t *Thread) Descriptor(fd int) (fsnode.INode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.descriptors) {
		return nil, false
	}
	return t.descriptors[fd], true
}

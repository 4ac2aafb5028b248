package trap_test

import (
	"path/filepath"
	"testing"

	"github.com/rcore-os/rCore-Tutorial/internal/hostfile"
	"github.com/rcore-os/rCore-Tutorial/internal/irqlock"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/proc"
	"github.com/rcore-os/rCore-Tutorial/internal/processor"
	"github.com/rcore-os/rCore-Tutorial/internal/sbi"
	"github.com/rcore-os/rCore-Tutorial/internal/sched"
	"github.com/rcore-os/rCore-Tutorial/internal/stack"
	"github.com/rcore-os/rCore-Tutorial/internal/stdin"
	"github.com/rcore-os/rCore-Tutorial/internal/swapfile"
	"github.com/rcore-os/rCore-Tutorial/internal/thread"
	"github.com/rcore-os/rCore-Tutorial/internal/trap"
	"github.com/rcore-os/rCore-Tutorial/internal/vm"
)

func newSwapStore(t *testing.T) *swapfile.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), swapfile.FileName)
	f, err := hostfile.Create(path, swapfile.Capacity*mem.PageSize)
	if err != nil {
		t.Fatalf("create swap file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return swapfile.Open(f)
}

func newDispatcher(t *testing.T) (*trap.Dispatcher, *processor.Processor, *thread.Thread) {
	t.Helper()
	frames := mem.NewAllocator(256)

	idleProc, err := proc.NewKernel(frames, newSwapStore(t), 32)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	idle, err := thread.New(idleProc, 0xdead, [8]uint64{})
	if err != nil {
		t.Fatalf("thread.New(idle): %v", err)
	}

	mmu := &vm.FakeMMU{}
	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), mmu)

	userProc, err := proc.NewUser(frames, newSwapStore(t), 32)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	th, err := thread.New(userProc, 0x1000, [8]uint64{})
	if err != nil {
		t.Fatalf("thread.New(user): %v", err)
	}
	// A second ready thread so killing th still leaves something
	// runnable, the way a real system always has more than one thread
	// alive.
	otherProc, err := proc.NewUser(frames, newSwapStore(t), 32)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	other, err := thread.New(otherProc, 0x2000, [8]uint64{})
	if err != nil {
		t.Fatalf("thread.New(other): %v", err)
	}
	p.AddThread(th)
	p.AddThread(other)
	p.PrepareNextThread()

	guarded := irqlock.NewGuarded[*processor.Processor](irqlock.NewFakeIRQ(), p)
	in := &stdin.Ring{}
	d := trap.New(guarded, sbi.NewClient(&sbi.FakeFirmware{}), in, mmu, 1000)
	return d, p, th
}

func TestBreakpointAdvancesSEPC(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := &stack.Context{SEPC: 0x1000}
	next := d.Handle(ctx, trap.Breakpoint, 0)
	if next.SEPC != 0x1002 {
		t.Fatalf("SEPC = %#x, want %#x", next.SEPC, 0x1002)
	}
}

func TestExternalInterruptFeedsStdinRing(t *testing.T) {
	frames := mem.NewAllocator(256)
	idleProc, _ := proc.NewKernel(frames, newSwapStore(t), 32)
	idle, _ := thread.New(idleProc, 0xdead, [8]uint64{})
	mmu := &vm.FakeMMU{}
	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), mmu)

	guarded := irqlock.NewGuarded[*processor.Processor](irqlock.NewFakeIRQ(), p)
	in := &stdin.Ring{}
	fw := &sbi.FakeFirmware{In: []byte{'q'}}
	d := trap.New(guarded, sbi.NewClient(fw), in, mmu, 1000)

	ctx := &stack.Context{}
	d.Handle(ctx, trap.SupervisorExternal, 0)

	b, ok := in.Pop()
	if !ok || b != 'q' {
		t.Fatalf("stdin ring got (%c, %v), want ('q', true)", b, ok)
	}
}

func TestExternalInterruptTranslatesCarriageReturn(t *testing.T) {
	frames := mem.NewAllocator(256)
	idleProc, _ := proc.NewKernel(frames, newSwapStore(t), 32)
	idle, _ := thread.New(idleProc, 0xdead, [8]uint64{})
	mmu := &vm.FakeMMU{}
	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), mmu)

	guarded := irqlock.NewGuarded[*processor.Processor](irqlock.NewFakeIRQ(), p)
	in := &stdin.Ring{}
	fw := &sbi.FakeFirmware{In: []byte{'\r'}}
	d := trap.New(guarded, sbi.NewClient(fw), in, mmu, 1000)

	d.Handle(&stack.Context{}, trap.SupervisorExternal, 0)

	b, _ := in.Pop()
	if b != '\n' {
		t.Fatalf("carriage return should be translated to newline, got %q", b)
	}
}

func TestTimerParksCurrentAndRearms(t *testing.T) {
	// Two ready user threads, so a timer tick has somewhere else to
	// rotate to: the scheduler must hand off to the other ready thread
	// rather than falling back to idle or re-picking the same one.
	frames := mem.NewAllocator(256)
	idleProc, _ := proc.NewKernel(frames, newSwapStore(t), 32)
	idle, _ := thread.New(idleProc, 0xdead, [8]uint64{})
	mmu := &vm.FakeMMU{}
	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), mmu)

	aProc, _ := proc.NewUser(frames, newSwapStore(t), 32)
	a, err := thread.New(aProc, 0x1000, [8]uint64{})
	if err != nil {
		t.Fatalf("thread.New(a): %v", err)
	}
	bProc, _ := proc.NewUser(frames, newSwapStore(t), 32)
	b, err := thread.New(bProc, 0x2000, [8]uint64{})
	if err != nil {
		t.Fatalf("thread.New(b): %v", err)
	}
	p.AddThread(a)
	p.AddThread(b)
	p.PrepareNextThread()
	if p.CurrentThread() != a {
		t.Fatalf("setup: expected a to run first")
	}

	guarded := irqlock.NewGuarded[*processor.Processor](irqlock.NewFakeIRQ(), p)
	in := &stdin.Ring{}
	d := trap.New(guarded, sbi.NewClient(&sbi.FakeFirmware{}), in, mmu, 1000)

	next := d.Handle(&stack.Context{SEPC: 0x1000}, trap.SupervisorTimer, 0)
	if next == nil {
		t.Fatalf("expected a context to resume into")
	}
	if p.CurrentThread() != b {
		t.Fatalf("timer tick should have preempted a and handed off to b")
	}
}

func TestUnknownCauseKillsCurrentThread(t *testing.T) {
	d, _, th := newDispatcher(t)
	d.Handle(&stack.Context{}, trap.Other, 0)

	if !th.Dead() {
		t.Fatalf("unhandled trap cause should mark the current thread dead")
	}
}

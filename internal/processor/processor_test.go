package processor_test

import (
	"path/filepath"
	"testing"

	"github.com/rcore-os/rCore-Tutorial/internal/hostfile"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/proc"
	"github.com/rcore-os/rCore-Tutorial/internal/processor"
	"github.com/rcore-os/rCore-Tutorial/internal/sched"
	"github.com/rcore-os/rCore-Tutorial/internal/stack"
	"github.com/rcore-os/rCore-Tutorial/internal/swapfile"
	"github.com/rcore-os/rCore-Tutorial/internal/thread"
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

func newThread(t *testing.T, entry uint64) *thread.Thread {
	t.Helper()
	frames := mem.NewAllocator(256)
	p, err := proc.NewUser(frames, newSwapStore(t), 32)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	th, err := thread.New(p, entry, [8]uint64{})
	if err != nil {
		t.Fatalf("thread.New: %v", err)
	}
	return th
}

func TestPrepareNextThreadRunsReadyBeforeIdle(t *testing.T) {
	idle := newThread(t, 0xdead)
	a := newThread(t, 0x1000)

	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), &vm.FakeMMU{})
	p.AddThread(a)

	ctx := p.PrepareNextThread()
	if ctx.SEPC != 0x1000 {
		t.Fatalf("expected the ready thread to run first, sepc = %#x", ctx.SEPC)
	}
	if p.CurrentThread() != a {
		t.Fatalf("CurrentThread should be the prepared ready thread")
	}
}

func TestPrepareNextThreadFallsBackToIdleWhenSleeping(t *testing.T) {
	idle := newThread(t, 0xdead)
	a := newThread(t, 0x1000)

	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), &vm.FakeMMU{})
	p.AddThread(a)

	// Run a, then park it asleep so the ready queue is empty but the
	// sleeping set is not.
	p.PrepareNextThread()
	p.ParkCurrentThread(stack.Context{})
	p.SleepCurrentThread()

	ctx := p.PrepareNextThread()
	if ctx.SEPC != 0xdead {
		t.Fatalf("expected idle thread to run, sepc = %#x", ctx.SEPC)
	}
	if p.CurrentThread() != idle {
		t.Fatalf("CurrentThread should be idle")
	}
}

func TestPrepareNextThreadPanicsWhenNothingLeft(t *testing.T) {
	idle := newThread(t, 0xdead)
	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), &vm.FakeMMU{})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when no thread is ready or sleeping")
		}
	}()
	p.PrepareNextThread()
}

func TestWakeThreadReturnsItToReadyQueue(t *testing.T) {
	idle := newThread(t, 0xdead)
	a := newThread(t, 0x1000)

	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), &vm.FakeMMU{})
	p.AddThread(a)
	p.PrepareNextThread()
	p.ParkCurrentThread(stack.Context{SEPC: 0x1000})
	p.SleepCurrentThread()

	p.WakeThread(a)
	if a.Sleeping() {
		t.Fatalf("WakeThread should clear the sleeping flag")
	}

	ctx := p.PrepareNextThread()
	if ctx.SEPC != 0x1000 {
		t.Fatalf("expected woken thread to be scheduled next, sepc = %#x", ctx.SEPC)
	}
}

func TestPrepareNextThreadCyclesRoundRobinAcrossThreads(t *testing.T) {
	idle := newThread(t, 0xdead)
	a := newThread(t, 0x1000)
	b := newThread(t, 0x2000)
	c := newThread(t, 0x3000)

	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), &vm.FakeMMU{})
	p.AddThread(a)
	p.AddThread(b)
	p.AddThread(c)

	// Simulate six timer ticks: each prepares the next thread, then
	// parks it before the following tick prepares again. A fair
	// round-robin scheduler must cycle through a, b, c exactly once
	// each before repeating, twice over.
	var order []*thread.Thread
	for i := 0; i < 6; i++ {
		p.PrepareNextThread()
		order = append(order, p.CurrentThread())
		p.ParkCurrentThread(stack.Context{})
	}

	want := []*thread.Thread{a, b, c, a, b, c}
	for i, got := range order {
		if got != want[i] {
			t.Fatalf("tick %d: ran thread %d, want %d", i, got.ID, want[i].ID)
		}
	}
}

func TestKillCurrentThreadRemovesFromScheduler(t *testing.T) {
	idle := newThread(t, 0xdead)
	a := newThread(t, 0x1000)

	p := processor.New(sched.NewRoundRobin(), idle, stack.New(), &vm.FakeMMU{})
	p.AddThread(a)
	p.PrepareNextThread()
	p.KillCurrentThread()

	if p.CurrentThread() != nil {
		t.Fatalf("CurrentThread should be nil after kill")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic: killed thread left nothing runnable or sleeping")
		}
	}()
	p.PrepareNextThread()
}

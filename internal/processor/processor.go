// Package processor implements the global thread lifecycle manager: the
// currently-running thread, the sleeping set, and the idle thread used
// when nothing else is runnable. Grounded on
// original_source/os/src/process/processor.rs.
//
// Every exported method here is meant to be called only while the
// caller holds the interrupt-masking lock guarding the Processor
// singleton (see internal/irqlock.Guarded), so the sequence of state
// transitions across a trap is totally ordered.
package processor

import (
	"github.com/rcore-os/rCore-Tutorial/internal/sched"
	"github.com/rcore-os/rCore-Tutorial/internal/stack"
	"github.com/rcore-os/rCore-Tutorial/internal/thread"
	"github.com/rcore-os/rCore-Tutorial/internal/vm"
)

// Processor tracks the currently-running thread, the ready-queue
// scheduler, and the set of threads parked out of the ready queue because
// they are asleep.
type Processor struct {
	scheduler sched.Scheduler
	istack    *stack.Stack
	mmu       vm.MMU
	idle      *thread.Thread

	current  *thread.Thread
	byID     map[int64]*thread.Thread
	sleeping map[int64]*thread.Thread
}

// New creates a Processor with no current thread; PrepareNextThread must
// be called once to select the first thread to run.
func New(scheduler sched.Scheduler, idle *thread.Thread, istack *stack.Stack, mmu vm.MMU) *Processor {
	return &Processor{
		scheduler: scheduler,
		istack:    istack,
		mmu:       mmu,
		idle:      idle,
		byID:      make(map[int64]*thread.Thread),
		sleeping:  make(map[int64]*thread.Thread),
	}
}

// CurrentThread returns the thread presently selected to run.
func (p *Processor) CurrentThread() *thread.Thread { return p.current }

// AddThread makes t runnable.
func (p *Processor) AddThread(t *thread.Thread) {
	p.byID[t.ID] = t
	p.scheduler.Add(t.ID)
}

// WakeThread moves a sleeping thread back into the ready queue.
func (p *Processor) WakeThread(t *thread.Thread) {
	t.SetSleeping(false)
	delete(p.sleeping, t.ID)
	p.scheduler.Add(t.ID)
}

// ParkCurrentThread saves ctx as the current thread's suspended Context.
func (p *Processor) ParkCurrentThread(ctx stack.Context) {
	p.current.Park(ctx)
}

// SleepCurrentThread removes the current thread from the ready queue and
// records it as sleeping, pending a future WakeThread.
func (p *Processor) SleepCurrentThread() {
	p.current.SetSleeping(true)
	p.scheduler.Remove(p.current.ID)
	p.sleeping[p.current.ID] = p.current
}

// KillCurrentThread removes the current thread from the scheduler and
// drops the Processor's reference to it. The caller must have already
// released whatever else keeps it alive (its Process, if this was the
// last thread referencing it).
func (p *Processor) KillCurrentThread() {
	t := p.current
	p.current = nil
	t.Kill()
	p.scheduler.Remove(t.ID)
	delete(p.byID, t.ID)
}

// PrepareNextThread selects the next thread to run: the scheduler's head
// if one is runnable, else the idle thread if anything is merely asleep,
// else it panics — there is nothing left to wake anything up. The chosen
// thread's Mapping is activated and its Context is pushed onto the
// interrupt stack; the returned pointer is what the trap return path
// restores registers from.
func (p *Processor) PrepareNextThread() *stack.Context {
	if id, ok := p.scheduler.Next(); ok {
		next := p.byID[id]
		ctx := next.Prepare(p.mmu, p.istack)
		p.current = next
		return ctx
	}
	if len(p.sleeping) == 0 {
		panic("processor: all threads terminated, shutting down")
	}
	p.current = p.idle
	return p.idle.Prepare(p.mmu, p.istack)
}

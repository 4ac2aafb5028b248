// Package trap implements the trap dispatcher: it decodes the trap
// cause and routes to the mapping engine (page faults), the processor
// (timer, external interrupt), or the syscall table (environment
// calls). Grounded on original_source/os/src/interrupt/handler.rs.
package trap

import (
	"fmt"

	"github.com/rcore-os/rCore-Tutorial/internal/irqlock"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/processor"
	"github.com/rcore-os/rCore-Tutorial/internal/sbi"
	"github.com/rcore-os/rCore-Tutorial/internal/stack"
	"github.com/rcore-os/rCore-Tutorial/internal/stdin"
	"github.com/rcore-os/rCore-Tutorial/internal/syscall"
	"github.com/rcore-os/rCore-Tutorial/internal/vm"
)

// Cause enumerates the trap causes this dispatcher routes on. Every other
// scause value falls through to the catch-all fault path.
type Cause int

const (
	Breakpoint Cause = iota
	UserEnvCall
	LoadPageFault
	StorePageFault
	InstructionPageFault
	SupervisorTimer
	SupervisorExternal
	Other
)

// Dispatcher holds everything handle_interrupt needs to route a trap: the
// guarded Processor singleton, the SBI client for reading the keyboard
// byte and rearming the timer, and the stdin ring external interrupts
// feed.
type Dispatcher struct {
	proc  *irqlock.Guarded[*processor.Processor]
	sbi   *sbi.Client
	stdin *stdin.Ring
	mmu   vm.MMU

	timerInterval uint64
}

// New creates a Dispatcher.
func New(proc *irqlock.Guarded[*processor.Processor], c *sbi.Client, in *stdin.Ring, mmu vm.MMU, timerInterval uint64) *Dispatcher {
	return &Dispatcher{proc: proc, sbi: c, stdin: in, mmu: mmu, timerInterval: timerInterval}
}

// Handle is the trap entry point: ctx is the context the trampoline just
// saved, cause names the decoded scause, and faultAddr is stval (only
// meaningful for the page-fault causes). It returns the pointer the
// trampoline restores registers from, which is always the top of the
// shared interrupt stack.
func (d *Dispatcher) Handle(ctx *stack.Context, cause Cause, faultAddr mem.VirtAddr) *stack.Context {
	if d.currentIsDead() {
		return d.killAndAdvance("thread exit")
	}

	switch cause {
	case Breakpoint:
		return d.breakpoint(ctx)
	case UserEnvCall:
		return d.syscall(ctx)
	case LoadPageFault, StorePageFault, InstructionPageFault:
		return d.pageFault(ctx, faultAddr)
	case SupervisorTimer:
		return d.timer(ctx)
	case SupervisorExternal:
		return d.external(ctx)
	default:
		return d.fault(fmt.Sprintf("unimplemented interrupt type %d", cause))
	}
}

func (d *Dispatcher) currentIsDead() bool {
	p, guard := d.proc.Lock()
	defer guard.Unlock()
	t := (*p).CurrentThread()
	return t != nil && t.Dead()
}

func (d *Dispatcher) breakpoint(ctx *stack.Context) *stack.Context {
	ctx.SEPC += 2
	return ctx
}

func (d *Dispatcher) syscall(ctx *stack.Context) *stack.Context {
	var fdctx syscall.Context
	p, guard := d.proc.Lock()
	fdctx.Thread = (*p).CurrentThread()
	guard.Unlock()

	result := syscall.Dispatch(fdctx, ctx)
	switch result.Kind {
	case syscall.Proceed:
		ctx.Regs[stack.RegA0] = uint64(result.Value)
		ctx.SEPC += 4
		return ctx
	case syscall.Park:
		ctx.Regs[stack.RegA0] = uint64(result.Value)
		ctx.SEPC += 4
		return d.parkAndAdvance(ctx)
	case syscall.Kill:
		return d.killAndAdvance("syscall requested exit")
	default:
		return d.fault("unknown syscall result")
	}
}

func (d *Dispatcher) pageFault(ctx *stack.Context, faultAddr mem.VirtAddr) *stack.Context {
	p, guard := d.proc.Lock()
	t := (*p).CurrentThread()
	guard.Unlock()

	if err := t.Process.Mapping.HandlePageFault(faultAddr); err != nil {
		return d.fault(err.Error())
	}
	t.Process.Mapping.Activate(d.mmu)
	return ctx
}

func (d *Dispatcher) timer(ctx *stack.Context) *stack.Context {
	d.sbi.SetTimer(d.timerInterval)
	return d.parkAndAdvance(ctx)
}

func (d *Dispatcher) external(ctx *stack.Context) *stack.Context {
	if ch, ok := d.sbi.ConsoleGetchar(); ok && ch <= 255 {
		if ch == '\r' {
			ch = '\n'
		}
		d.stdin.Push(byte(ch))
	}
	return ctx
}

func (d *Dispatcher) parkAndAdvance(ctx *stack.Context) *stack.Context {
	p, guard := d.proc.Lock()
	(*p).ParkCurrentThread(*ctx)
	next := (*p).PrepareNextThread()
	guard.Unlock()
	return next
}

func (d *Dispatcher) killAndAdvance(reason string) *stack.Context {
	p, guard := d.proc.Lock()
	id := (*p).CurrentThread().ID
	(*p).KillCurrentThread()
	next := (*p).PrepareNextThread()
	guard.Unlock()
	fmt.Printf("thread %d exit: %s\n", id, reason)
	return next
}

func (d *Dispatcher) fault(msg string) *stack.Context {
	return d.killAndAdvance(msg)
}

// Command kernel boots the teaching kernel: it wires the heap, frame
// allocator, idle thread, and first kernel thread together, prepares the
// first thread to run, prints its entry sepc, and exits; there is no
// processor loop that keeps running threads. Grounded on
// original_source/os/src/main.rs's rust_main, with the real entry.asm
// trampoline and ecall/CSR access left as the external architecture
// boundary internal/sbi.Firmware and internal/vm.MMU describe — this
// binary drives them through their host-side fakes, the same hosted
// build mode internal/sbi and internal/vm already test against.
package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/rcore-os/rCore-Tutorial/internal/heap"
	"github.com/rcore-os/rCore-Tutorial/internal/hostfile"
	"github.com/rcore-os/rCore-Tutorial/internal/irqlock"
	"github.com/rcore-os/rCore-Tutorial/internal/kpanic"
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

const (
	heapSize           = 4 << 20 // 4 MiB kernel heap
	frameCount         = 1 << 16 // 256 MiB of physical pages at 4 KiB each
	kernelFrameQuota   = 64
	timerIntervalTicks = 100_000
)

func main() {
	swapPath := flag.String("swapfile", "", "path to a pre-created SWAP_FILE image (see cmd/mkdiskimg)")
	flag.Parse()

	kernelHeap := heap.New(heapSize)
	banner := kernelHeap.Alloc(64, 8)
	fmt.Println("rCore-Tutorial kernel booting")
	kernelHeap.Dealloc(banner, 64)

	frames := mem.NewAllocator(frameCount)

	firmware := &sbi.FakeFirmware{}
	client := sbi.NewClient(firmware)
	kpanic.Install(client)

	swap := openSwap(*swapPath, frames)

	idleProc, err := proc.NewKernel(frames, swap, kernelFrameQuota)
	if err != nil {
		kpanic.Fatal("create idle process: %v", err)
	}
	idle, err := thread.New(idleProc, idleEntryAddr, [8]uint64{})
	if err != nil {
		kpanic.Fatal("create idle thread: %v", err)
	}

	mmu := &vm.FakeMMU{}
	istack := stack.New()
	proc0 := processor.New(sched.NewRoundRobin(), idle, istack, mmu)

	kernelProc, err := proc.NewKernel(frames, swap, kernelFrameQuota)
	if err != nil {
		kpanic.Fatal("create kernel process: %v", err)
	}
	first, err := thread.New(kernelProc, kernelEntryAddr, [8]uint64{})
	if err != nil {
		kpanic.Fatal("create kernel thread: %v", err)
	}
	proc0.AddThread(first)

	guarded := irqlock.NewGuarded[*processor.Processor](irqlock.NewFakeIRQ(), proc0)
	in := &stdin.Ring{}
	dispatcher := trap.New(guarded, client, in, mmu, timerIntervalTicks)
	_ = dispatcher // wired to the (external) trap trampoline; see internal/trap doc comment

	p, guard := guarded.Lock()
	ctx := (*p).PrepareNextThread()
	guard.Unlock()

	fmt.Printf("first thread running, sepc=%#x\n", ctx.SEPC)
}

// openSwap attaches to a pre-created SWAP_FILE image, or fails loudly:
// the image builder (cmd/mkdiskimg) owns creating it, init never
// creates one on the fly.
func openSwap(path string, frames *mem.Allocator) *swapfile.Store {
	if path == "" {
		kpanic.Fatal("no -swapfile given; run cmd/mkdiskimg first")
	}
	f, err := hostfile.Open(filepath.Clean(path))
	if err != nil {
		kpanic.Fatal("open swap file %s: %v", path, err)
	}
	return swapfile.Open(f)
}

// idleEntryAddr and kernelEntryAddr stand in for the linked addresses of
// the idle loop and the first kernel thread's body (the original's wfi
// loop and test_page_fault respectively). Resolving Go function symbols
// to instruction addresses a thread.Context could actually sepc-jump to
// requires the same asm trampoline this repository treats as an external
// boundary, so these are placeholder link-time constants rather than
// addresses of real Go functions.
const (
	idleEntryAddr   = 0x80200000
	kernelEntryAddr = 0x80201000
)

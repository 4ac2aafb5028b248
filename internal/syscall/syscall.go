// Package syscall implements the read/write/exit/exec handlers, each
// returning the Result contract the trap dispatcher interprets. Grounded
// on original_source/os/src/kernel/{fs,process}.rs.
package syscall

import (
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/stack"
	"github.com/rcore-os/rCore-Tutorial/internal/thread"
)

// Number identifies which handler a trap routes to. The exact integer
// values are this repository's own convention, not a wire ABI.
type Number uint64

const (
	SysRead Number = iota
	SysWrite
	SysExit
	SysExec
)

// Kind is the outcome a handler reports back to the trap dispatcher.
type Kind int

const (
	// Proceed resumes the calling thread immediately with Value in a0.
	Proceed Kind = iota
	// Park sets Value in a0 and switches away from the calling thread
	// now. The thread stays in the ready queue and resumes on its next
	// turn, whether or not a read it made has data by then; it is not
	// put to sleep.
	Park
	// Kill terminates the calling thread.
	Kill
)

// Result is what every handler returns.
type Result struct {
	Kind  Kind
	Value int64
}

// Exec launches a new process from a path, replacing the thread that
// called exec. cmd/kernel supplies the concrete loader (ELF parsing is
// an explicit external-collaborator boundary, not this package's job).
type Exec interface {
	Exec(path string) error
}

// Context is the per-call state the trap dispatcher assembles before
// invoking Dispatch: the thread that trapped, and (if the kernel wires
// one up) an exec loader.
type Context struct {
	Thread *thread.Thread
	Exec   Exec
}

// Dispatch decodes ctx's syscall number and argument registers (a7, then
// a0..a2) and invokes the matching handler.
func Dispatch(c Context, ctx *stack.Context) Result {
	t := c.Thread
	switch Number(ctx.Regs[stack.RegA7]) {
	case SysRead:
		return sysRead(t, int(ctx.Regs[stack.RegA0]), mem.VirtAddr(ctx.Regs[stack.RegA1]), int(ctx.Regs[stack.RegA2]))
	case SysWrite:
		return sysWrite(t, int(ctx.Regs[stack.RegA0]), mem.VirtAddr(ctx.Regs[stack.RegA1]), int(ctx.Regs[stack.RegA2]))
	case SysExit:
		return sysExit(int64(ctx.Regs[stack.RegA0]))
	case SysExec:
		return sysExec(t, c.Exec, mem.VirtAddr(ctx.Regs[stack.RegA0]))
	default:
		return Result{Kind: Kill}
	}
}

func sysRead(t *thread.Thread, fd int, buf mem.VirtAddr, size int) Result {
	inode, ok := t.Descriptor(fd)
	if !ok {
		return Result{Kind: Proceed, Value: -1}
	}
	data := make([]byte, size)
	n, err := inode.ReadAt(0, data)
	if err != nil {
		return Result{Kind: Proceed, Value: -1}
	}
	if n > 0 {
		t.Process.Mapping.CopyOut(buf, data[:n])
		return Result{Kind: Proceed, Value: int64(n)}
	}
	return Result{Kind: Park, Value: 0}
}

func sysWrite(t *thread.Thread, fd int, buf mem.VirtAddr, size int) Result {
	inode, ok := t.Descriptor(fd)
	if !ok {
		return Result{Kind: Proceed, Value: -1}
	}
	data := t.Process.Mapping.CopyIn(buf, size)
	n, err := inode.WriteAt(0, data)
	if err != nil || n < 0 {
		return Result{Kind: Proceed, Value: -1}
	}
	return Result{Kind: Proceed, Value: int64(n)}
}

func sysExit(code int64) Result {
	return Result{Kind: Kill, Value: code}
}

func sysExec(t *thread.Thread, exec Exec, pathVA mem.VirtAddr) Result {
	if exec == nil {
		return Result{Kind: Proceed, Value: -1}
	}
	path := readCString(t, pathVA)
	if err := exec.Exec(path); err != nil {
		return Result{Kind: Proceed, Value: -1}
	}
	return Result{Kind: Kill, Value: 0}
}

// readCString reads a NUL-terminated string out of user memory one byte
// at a time, the Go analogue of the original's unsafe from_cstr pointer
// scan.
func readCString(t *thread.Thread, va mem.VirtAddr) string {
	var out []byte
	for {
		b := t.Process.Mapping.CopyIn(va, 1)
		if b[0] == 0 {
			break
		}
		out = append(out, b[0])
		va++
	}
	return string(out)
}

// Package stack implements the saved-register Context a thread parks
// across a trap, and the shared interrupt stack traps run on, grounded
// on original_source/os/src/process/interrupt_stack.rs and
// kernel_stack.rs.
package stack

// SPPBit is the sstatus SPP bit: set means the trap was taken from
// supervisor mode, clear means it was taken from user mode.
const SPPBit = 1 << 8

// SPIEBit is the sstatus SPIE bit: restored into SIE on sret, so a thread
// resumes with interrupts enabled.
const SPIEBit = 1 << 5

// Context is the register file saved and restored across a trap: the 32
// RISC-V general-purpose registers plus sstatus and sepc. Register x2 (sp)
// and x10..x17 (a0..a7) are addressed by the named constants below; the
// rest are general-purpose scratch restored verbatim.
type Context struct {
	Regs    [32]uint64
	SStatus uint64
	SEPC    uint64
}

// Register indices into Context.Regs for the registers this package's
// constructors and the syscall table address by name.
const (
	RegSP = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA7 = 17
)

// NewThreadContext builds the initial Context for a fresh thread: stack
// pointer sp, entry point, up to 8 argument words loaded into a0..a7, and
// the user/supervisor mode bit in sstatus.SPP.
func NewThreadContext(sp, entry uint64, args [8]uint64, isUser bool) Context {
	var c Context
	c.Regs[RegSP] = sp
	for i, a := range args {
		c.Regs[RegA0+i] = a
	}
	c.SEPC = entry
	c.SStatus = SPIEBit
	if !isUser {
		c.SStatus |= SPPBit
	}
	return c
}

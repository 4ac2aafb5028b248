package vm

import "github.com/rcore-os/rCore-Tutorial/internal/mem"

// MMU is the architecture boundary Activate writes through: the satp CSR
// write and the sfence.vma that follows it. Like the Firmware interface
// over SBI calls, the real implementation is an ecall/CSR trampoline this
// repository treats as an external collaborator; only the host fake used
// by tests lives here.
type MMU interface {
	WriteSATP(value uint64)
	FenceVMA()
}

// satpValue builds the satp CSR value for an Sv39 root page table.
func satpValue(root mem.PhysPageNum) uint64 {
	return uint64(root)&(1<<44-1) | mem.SatpModeSv39<<60
}

// FakeMMU records the last satp write and fence count, for tests that
// assert Activate's sequencing without real hardware.
type FakeMMU struct {
	LastSATP   uint64
	FenceCount int
}

func (m *FakeMMU) WriteSATP(value uint64) { m.LastSATP = value }
func (m *FakeMMU) FenceVMA()              { m.FenceCount++ }

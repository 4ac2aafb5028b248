// Package sbi wraps the handful of SBI calls the kernel consumes: console
// I/O, the timer, and shutdown, grounded on original_source/os/src/sbi.rs.
// The ecall trampoline itself lives outside this package's reach; it
// only fixes the calling convention (extension ID, function ID, up to
// three argument registers) behind the Firmware interface.
package sbi

const (
	extSetTimer       = 0x0
	extConsolePutchar = 0x1
	extConsoleGetchar = 0x2
	extShutdown       = 0x8
	extHSMStop        = 0x48534D
	extHSMStopFn      = 0x1
)

// Result mirrors the SBI call's two return registers.
type Result struct {
	Error int64
	Value int64
}

// Firmware is the ecall boundary: everything above it is pure Go, the
// implementation below it is the real `ecall` instruction sequence this
// repository does not implement.
type Firmware interface {
	Call(ext, fn int32, arg0, arg1, arg2 uint64) Result
}

// Client is a thin, stateless wrapper translating named operations into
// Firmware.Call invocations.
type Client struct {
	fw Firmware
}

// NewClient wraps a Firmware implementation.
func NewClient(fw Firmware) *Client {
	return &Client{fw: fw}
}

// ConsolePutchar writes one byte to the console.
func (c *Client) ConsolePutchar(ch byte) {
	c.fw.Call(extConsolePutchar, 0, uint64(ch), 0, 0)
}

// ConsoleGetchar reads one byte from the console, or ok=false if none is
// available.
func (c *Client) ConsoleGetchar() (int64, bool) {
	r := c.fw.Call(extConsoleGetchar, 0, 0, 0, 0)
	if r.Value < 0 {
		return 0, false
	}
	return r.Value, true
}

// SetTimer schedules the next timer interrupt.
func (c *Client) SetTimer(deadline uint64) {
	c.fw.Call(extSetTimer, 0, deadline, 0, 0)
}

// Shutdown powers off the machine. It does not return.
func (c *Client) Shutdown() {
	c.fw.Call(extShutdown, 0, 0, 0, 0)
	panic("sbi: shutdown call returned")
}

// HartStop stops the current hart via the HSM extension.
func (c *Client) HartStop() {
	c.fw.Call(extHSMStop, extHSMStopFn, 0, 0, 0)
}

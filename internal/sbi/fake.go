package sbi

import "bytes"

// FakeFirmware is a host collaborator for the serial monitor and tests: it
// buffers console output, serves console input from a preloaded queue,
// and records the last timer deadline and whether shutdown was called,
// standing in for the real ecall trampoline (cmd/serialmon's loopback
// mode consumes exactly this shape).
type FakeFirmware struct {
	Out       bytes.Buffer
	In        []byte
	LastTimer uint64
	ShutDown  bool
}

// Call implements Firmware.
func (f *FakeFirmware) Call(ext, fn int32, arg0, arg1, arg2 uint64) Result {
	switch ext {
	case extConsolePutchar:
		f.Out.WriteByte(byte(arg0))
		return Result{}
	case extConsoleGetchar:
		if len(f.In) == 0 {
			return Result{Value: -1}
		}
		ch := f.In[0]
		f.In = f.In[1:]
		return Result{Value: int64(ch)}
	case extSetTimer:
		f.LastTimer = arg0
		return Result{}
	case extShutdown:
		f.ShutDown = true
		return Result{}
	case extHSMStop:
		f.ShutDown = true
		return Result{}
	default:
		return Result{Error: -1}
	}
}

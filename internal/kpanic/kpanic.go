// Package kpanic implements the kernel's single fatal-error path: print,
// then power off. Grounded on biscuit's panic-and-halt idiom and on the
// original's panic_handler (original_source/os/src/panic.rs), both of
// which funnel every unrecoverable error through one function rather than
// letting each call site decide how to die.
package kpanic

import "fmt"

// Shutdowner is the SBI boundary kpanic needs: just enough to power off
// after printing. internal/sbi.Client satisfies this.
type Shutdowner interface {
	Shutdown()
}

var shutdown Shutdowner

// Install registers the SBI client Fatal uses to power off after
// printing. Until it is called, Fatal prints and panics without powering
// off.
func Install(s Shutdowner) {
	shutdown = s
}

// Fatal prints a formatted message and powers off the machine. It never
// returns.
func Fatal(format string, args ...any) {
	fmt.Printf("panic: "+format+"\n", args...)
	if shutdown != nil {
		shutdown.Shutdown()
	}
	panic(fmt.Sprintf(format, args...))
}

package irqlock

import "testing"

func TestLockMasksAndRestoresInterrupts(t *testing.T) {
	irq := NewFakeIRQ()
	l := New(irq)

	g := l.Lock()
	if irq.Enabled() {
		t.Fatalf("interrupts should be disabled while the lock is held")
	}
	g.Unlock()
	if !irq.Enabled() {
		t.Fatalf("interrupts should be restored after unlock")
	}
}

func TestLockPreservesAlreadyDisabledState(t *testing.T) {
	irq := NewFakeIRQ()
	irq.DisableAndSave() // simulate interrupts already off before the lock

	l := New(irq)
	g := l.Lock()
	g.Unlock()

	if irq.Enabled() {
		t.Fatalf("unlock must not re-enable interrupts that were off before lock")
	}
}

func TestDoubleUnlockPanics(t *testing.T) {
	l := New(NewFakeIRQ())
	g := l.Lock()
	g.Unlock()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double unlock")
		}
	}()
	g.Unlock()
}

func TestGuardedLockExposesValue(t *testing.T) {
	g := NewGuarded[int](NewFakeIRQ(), 41)
	v, guard := g.Lock()
	*v++
	guard.Unlock()

	v2, guard2 := g.Lock()
	defer guard2.Unlock()
	if *v2 != 42 {
		t.Fatalf("value = %d, want 42", *v2)
	}
}

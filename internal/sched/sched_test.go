package sched

import "testing"

func TestRoundRobinFIFOOrder(t *testing.T) {
	r := NewRoundRobin()
	r.Add(1)
	r.Add(2)
	r.Add(3)

	for _, want := range []int64{1, 2, 3} {
		got, ok := r.Next()
		if !ok || got != want {
			t.Fatalf("Next() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Next() must rotate, not remove: Len() = %d, want 3", r.Len())
	}
}

func TestRoundRobinNextRotatesForever(t *testing.T) {
	r := NewRoundRobin()
	r.Add(1)
	r.Add(2)
	r.Add(3)

	var got []int64
	for i := 0; i < 7; i++ {
		id, ok := r.Next()
		if !ok {
			t.Fatalf("tick %d: expected a runnable thread", i)
		}
		got = append(got, id)
	}

	want := []int64{1, 2, 3, 1, 2, 3, 1}
	for i, id := range got {
		if id != want[i] {
			t.Fatalf("tick %d: got %d, want %d (full: %v)", i, id, want[i], got)
		}
	}
}

func TestRoundRobinNextEmpty(t *testing.T) {
	r := NewRoundRobin()
	if _, ok := r.Next(); ok {
		t.Fatalf("expected empty scheduler to report ok=false")
	}
}

func TestRoundRobinRemove(t *testing.T) {
	r := NewRoundRobin()
	r.Add(1)
	r.Add(2)
	r.Add(3)
	r.Remove(2)

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	first, _ := r.Next()
	second, _ := r.Next()
	if first != 1 || second != 3 {
		t.Fatalf("got order (%d, %d), want (1, 3)", first, second)
	}
}

func TestRoundRobinRemoveMissingIsNoop(t *testing.T) {
	r := NewRoundRobin()
	r.Add(1)
	r.Remove(99)
	if r.Len() != 1 {
		t.Fatalf("removing an absent id should not change Len()")
	}
}

// Package sched implements the pluggable ready-queue scheduler. The
// Processor is written against the Scheduler interface, not a
// particular policy, so a priority or stride scheduler can be swapped
// in without touching the processor's thread-lifecycle logic.
package sched

// Scheduler holds runnable thread IDs in whatever order its policy
// prefers.
type Scheduler interface {
	// Add makes id runnable.
	Add(id int64)
	// Remove takes id out of the ready set, e.g. because it is being
	// put to sleep or killed out of turn.
	Remove(id int64)
	// Next rotates the front of the ready set to the back and returns
	// it, or ok=false if nothing is runnable. The returned id stays in
	// the ready set, so it is picked again only after every other
	// runnable thread has had a turn.
	Next() (id int64, ok bool)
	// Len reports how many threads are currently runnable.
	Len() int
}

// RoundRobin is the default Scheduler: a FIFO ready queue. Add appends to
// the back; Next rotates the front to the back, so every runnable
// thread gets a turn before any repeats.
type RoundRobin struct {
	queue []int64
}

// NewRoundRobin creates an empty round-robin scheduler.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Add appends id to the back of the ready queue.
func (r *RoundRobin) Add(id int64) {
	r.queue = append(r.queue, id)
}

// Remove drops the first occurrence of id from the ready queue, if
// present.
func (r *RoundRobin) Remove(id int64) {
	for i, q := range r.queue {
		if q == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return
		}
	}
}

// Next rotates the front of the ready queue to the back and returns it.
func (r *RoundRobin) Next() (int64, bool) {
	if len(r.queue) == 0 {
		return 0, false
	}
	id := r.queue[0]
	r.queue = append(r.queue[1:], id)
	return id, true
}

// Len reports the number of runnable threads.
func (r *RoundRobin) Len() int { return len(r.queue) }

package log

import "sync"

// Tail is a bounded ring buffer of the most recent log lines. It is a
// progress feed for interactive callers, not an authoritative record:
// once full, every Append drops the oldest line.
//
// Lines are numbered from zero in arrival order. A caller streaming the
// feed keeps the cursor returned by Since and passes it back on the next
// call; lines that were overwritten in between are simply skipped.
//
// Tail is safe for concurrent use.
type Tail struct {
	mu      sync.Mutex
	lines   []string
	start   int    // index of the oldest line in lines
	count   int    // number of lines held
	total   uint64 // number of lines ever appended
	changed chan struct{}
}

// NewTail creates a Tail holding at most capacity lines.
// A capacity below one is raised to one.
func NewTail(capacity int) *Tail {
	if capacity < 1 {
		capacity = 1
	}
	return &Tail{
		lines:   make([]string, capacity),
		changed: make(chan struct{}),
	}
}

// Append adds a line, evicting the oldest one when the buffer is full,
// and wakes every waiter.
func (t *Tail) Append(line string) {
	t.mu.Lock()
	capacity := len(t.lines)
	if t.count < capacity {
		t.lines[(t.start+t.count)%capacity] = line
		t.count++
	} else {
		t.lines[t.start] = line
		t.start = (t.start + 1) % capacity
	}
	t.total++
	ch := t.changed
	t.changed = make(chan struct{})
	t.mu.Unlock()

	close(ch)
}

// Lines returns a copy of the buffered lines, oldest first.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.linesFromLocked(0)
}

// Since returns the buffered lines numbered cursor or later, oldest first,
// and the cursor to pass on the next call.
func (t *Tail) Since(cursor uint64) ([]string, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	oldest := t.total - uint64(t.count)
	if cursor < oldest {
		cursor = oldest
	}
	if cursor >= t.total {
		return nil, t.total
	}
	return t.linesFromLocked(int(cursor - oldest)), t.total
}

// Wait returns a channel that is closed on the next Append.
func (t *Tail) Wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// Len returns the number of buffered lines.
func (t *Tail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Cap returns the capacity of the buffer.
func (t *Tail) Cap() int {
	return len(t.lines)
}

// Reset drops every buffered line. The line numbering keeps counting.
func (t *Tail) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = 0
	t.count = 0
}

func (t *Tail) linesFromLocked(offset int) []string {
	capacity := len(t.lines)
	out := make([]string, 0, t.count-offset)
	for i := offset; i < t.count; i++ {
		out = append(out, t.lines[(t.start+i)%capacity])
	}
	return out
}

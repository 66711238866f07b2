package session

import (
	"sync"

	"codesense/internal/core/ports"
)

const defaultJumpLimit = 64

// JumpStack remembers where declaration jumps started so the editor can go
// back. The oldest entry is dropped once the limit is reached.
type JumpStack struct {
	mu      sync.Mutex
	entries []ports.Location
	limit   int
}

func NewJumpStack(limit int) *JumpStack {
	if limit <= 0 {
		limit = defaultJumpLimit
	}
	return &JumpStack{limit: limit}
}

func (j *JumpStack) Push(loc ports.Location) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == j.limit {
		j.entries = append(j.entries[:0], j.entries[1:]...)
	}
	j.entries = append(j.entries, loc)
}

func (j *JumpStack) Pop() (ports.Location, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		return ports.Location{}, false
	}
	last := j.entries[len(j.entries)-1]
	j.entries = j.entries[:len(j.entries)-1]
	return last, true
}

func (j *JumpStack) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *JumpStack) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

package journal

import (
	"sync"

	"vault_bot/internal/models"
)

const DefaultCapacity = 200

// Journal keeps the most recent log entries, newest first.
type Journal struct {
	mu       sync.RWMutex
	capacity int
	buf      []models.LogEntry // ring, next is the write slot
	next     int
	full     bool
}

func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{
		capacity: capacity,
		buf:      make([]models.LogEntry, capacity),
	}
}

func (j *Journal) Add(e models.LogEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buf[j.next] = e
	j.next = (j.next + 1) % j.capacity
	if j.next == 0 {
		j.full = true
	}
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.full {
		return j.capacity
	}
	return j.next
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) Recent(limit int) []models.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := j.next
	if j.full {
		n = j.capacity
	}
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.LogEntry, 0, n)
	idx := j.next
	for i := 0; i < n; i++ {
		idx = (idx - 1 + j.capacity) % j.capacity
		out = append(out, j.buf[idx])
	}
	return out
}

package abuse

import "sync"

// incidentRing is a fixed-capacity FIFO log of recent incidents.
// Append evicts the oldest entry once full; both are O(1).
type incidentRing struct {
	mu    sync.Mutex
	buf   []Incident
	head  int // index of the oldest entry
	count int
}

func newIncidentRing(capacity int) *incidentRing {
	if capacity <= 0 {
		capacity = 1000
	}
	return &incidentRing{
		buf: make([]Incident, capacity),
	}
}

// Append adds an incident, evicting the oldest entry when at capacity.
func (r *incidentRing) Append(inc Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = inc
	if r.count < len(r.buf) {
		r.count++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

// Recent returns up to limit of the most recently appended incidents,
// ordered oldest to newest.
func (r *incidentRing) Recent(limit int) []Incident {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || r.count == 0 {
		return nil
	}
	if limit > r.count {
		limit = r.count
	}

	out := make([]Incident, 0, limit)
	start := r.count - limit
	for i := start; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// Len returns the number of stored incidents.
func (r *incidentRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

package abuse

import "time"

// rateWindow holds the request timestamps of one session, ordered by
// arrival. Entries older than the longest tracked horizon are pruned
// lazily on check. Callers hold the owning session's lock.
type rateWindow struct {
	stamps []time.Time
}

func (w *rateWindow) add(t time.Time) {
	w.stamps = append(w.stamps, t)
}

// prune drops timestamps at or before the cutoff. Timestamps are
// appended in order, so a single scan from the front suffices.
func (w *rateWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// countSince returns how many timestamps fall strictly after the cutoff.
func (w *rateWindow) countSince(cutoff time.Time) int {
	n := 0
	for _, t := range w.stamps {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

package aggregation

import (
	"sync"
	"time"
)

// DedupIndex remembers accepted event ids for as long as their window is retained.
type DedupIndex struct {
	mu   sync.Mutex
	seen map[string]int64 // id -> window start unix nanos
}

// NewDedupIndex returns an empty index.
func NewDedupIndex() *DedupIndex {
	return &DedupIndex{seen: make(map[string]int64)}
}

// Reserve records id and reports true if it was not already present.
// Check and insert happen under one lock, so exactly one caller wins per id.
func (d *DedupIndex) Reserve(id string, windowStart time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = windowStart.UnixNano()
	return true
}

// Sweep forgets ids whose window starts before cutoff.
func (d *DedupIndex) Sweep(cutoff time.Time) int {
	c := cutoff.UnixNano()
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, ws := range d.seen {
		if ws < c {
			delete(d.seen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered ids.
func (d *DedupIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

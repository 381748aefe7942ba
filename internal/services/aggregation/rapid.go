package aggregation

import (
	"sort"
	"sync"
	"time"
)

// rapidIndex tracks recent event timestamps per account.
type rapidIndex struct {
	windows sync.Map // map[string]*accountWindow
	width   time.Duration
	limit   int // newest timestamps kept per account
}

type accountWindow struct {
	mu      sync.Mutex
	entries []time.Time // ascending
	dead    bool        // removed from the map by a sweep
}

// newRapidIndex keeps at most limit timestamps per account. A limit of
// threshold+1 is enough to decide "more than threshold".
func newRapidIndex(width time.Duration, limit int) *rapidIndex {
	if limit < 1 {
		limit = 1
	}
	return &rapidIndex{width: width, limit: limit}
}

// Observe records ts for the account and returns how many recorded events,
// including this one, fall within (ts-width, ts].
func (r *rapidIndex) Observe(account string, ts time.Time) int {
	for {
		w := r.getWindow(account)
		w.mu.Lock()
		if w.dead {
			// lost a race with Sweep; the map no longer points at w
			w.mu.Unlock()
			continue
		}
		w.insert(ts)
		n := r.countWithin(w.entries, ts)
		if over := len(w.entries) - r.limit; over > 0 {
			w.entries = append(w.entries[:0], w.entries[over:]...)
		}
		w.mu.Unlock()
		return n
	}
}

// insert keeps entries ascending; in-order arrivals append.
func (w *accountWindow) insert(ts time.Time) {
	i := sort.Search(len(w.entries), func(i int) bool { return w.entries[i].After(ts) })
	w.entries = append(w.entries, time.Time{})
	copy(w.entries[i+1:], w.entries[i:])
	w.entries[i] = ts
}

func (r *rapidIndex) getWindow(account string) *accountWindow {
	v, _ := r.windows.LoadOrStore(account, &accountWindow{})
	return v.(*accountWindow)
}

// countWithin counts entries in (ts-width, ts] (caller holds lock).
func (r *rapidIndex) countWithin(entries []time.Time, ts time.Time) int {
	from := ts.Add(-r.width)
	lo := sort.Search(len(entries), func(i int) bool { return entries[i].After(from) })
	hi := sort.Search(len(entries), func(i int) bool { return entries[i].After(ts) })
	return hi - lo
}

// Sweep drops timestamps before cutoff and removes empty accounts.
func (r *rapidIndex) Sweep(cutoff time.Time) int {
	removed := 0
	r.windows.Range(func(key, value any) bool {
		w := value.(*accountWindow)
		w.mu.Lock()
		i := sort.Search(len(w.entries), func(i int) bool { return !w.entries[i].Before(cutoff) })
		w.entries = append(w.entries[:0], w.entries[i:]...)
		if len(w.entries) == 0 {
			w.dead = true
			r.windows.CompareAndDelete(key, w)
			removed++
		}
		w.mu.Unlock()
		return true
	})
	return removed
}

// Accounts returns the number of tracked accounts.
func (r *rapidIndex) Accounts() int {
	n := 0
	r.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

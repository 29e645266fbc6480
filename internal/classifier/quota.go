package classifier

import "sync"

type quotaKey struct {
	sector  string
	ruleKey string
}

// QuotaTracker caps how many candidates each (sector, rule) admits during one
// run. The zero value is not usable; call NewQuotaTracker.
type QuotaTracker struct {
	mu     sync.Mutex
	counts map[quotaKey]int
}

// NewQuotaTracker returns a tracker with every counter at zero.
func NewQuotaTracker() *QuotaTracker {
	return &QuotaTracker{counts: make(map[quotaKey]int)}
}

// TryAdmit increments the (sector, ruleKey) counter and returns true while it
// is below maxResults. Once the quota is reached it returns false and leaves
// the counter untouched.
func (q *QuotaTracker) TryAdmit(sector, ruleKey string, maxResults int) bool {
	k := quotaKey{sector: sector, ruleKey: ruleKey}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.counts[k] >= maxResults {
		return false
	}
	q.counts[k]++
	return true
}

// Counts returns a copy of the admitted counts for sector, keyed by rule.
func (q *QuotaTracker) Counts(sector string) map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]int)
	for k, n := range q.counts {
		if k.sector == sector {
			out[k.ruleKey] = n
		}
	}
	return out
}

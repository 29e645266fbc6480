package classifier

import (
	"golang.org/x/sync/errgroup"

	"factorsync/internal/feed"
)

// Entry is a candidate admitted into a sector together with the rule that claimed it.
type Entry struct {
	Candidate feed.Candidate
	RuleKey   string
}

// SectorResult holds the admitted candidates of one sector, in feed order.
type SectorResult struct {
	Sector  string
	Entries []Entry
	Counts  map[string]int
}

// Candidates returns the admitted candidates without their rule keys.
func (r SectorResult) Candidates() []feed.Candidate {
	out := make([]feed.Candidate, len(r.Entries))
	for i := range r.Entries {
		out[i] = r.Entries[i].Candidate
	}
	return out
}

// Partition routes every candidate through every requested sector: first
// matching rule, then quota. Results come back in the order of sectors.
// With parallel set each sector runs on its own goroutine; since a sector's
// quotas only depend on its own pass over the candidates, the output is the
// same as the sequential one.
func (c *Classifier) Partition(candidates []feed.Candidate, sectors []string, quota *QuotaTracker, parallel bool) []SectorResult {
	results := make([]SectorResult, len(sectors))

	if !parallel {
		for i, sector := range sectors {
			results[i] = c.partitionSector(candidates, sector, quota)
		}
		return results
	}

	var g errgroup.Group
	for i, sector := range sectors {
		g.Go(func() error {
			results[i] = c.partitionSector(candidates, sector, quota)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Classifier) partitionSector(candidates []feed.Candidate, sector string, quota *QuotaTracker) SectorResult {
	res := SectorResult{Sector: sector}
	for i := range candidates {
		m, ok := c.Classify(candidates[i], sector)
		if !ok {
			continue
		}
		if !quota.TryAdmit(m.Sector, m.RuleKey, m.MaxResults) {
			continue
		}
		res.Entries = append(res.Entries, Entry{Candidate: candidates[i], RuleKey: m.RuleKey})
	}
	res.Counts = quota.Counts(sector)
	return res
}

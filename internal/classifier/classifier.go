package classifier

import (
	"strings"

	"factorsync/internal/feed"
)

// Match identifies the rule that claimed a candidate.
type Match struct {
	Sector     string
	RuleKey    string
	MaxResults int
}

type compiledRule struct {
	key        string
	unit       string
	all        []string
	anyOf      []string
	exclude    []string
	excludeIn  []string
	maxResults int
}

// Classifier matches candidates against a rule table. It is immutable and
// safe for concurrent use.
type Classifier struct {
	sectors map[string][]compiledRule
}

// New compiles table. The caller is expected to have validated it.
func New(table RuleTable) *Classifier {
	c := &Classifier{sectors: make(map[string][]compiledRule, len(table.Sectors))}
	for _, s := range table.Sectors {
		rules := make([]compiledRule, 0, len(s.Rules))
		for _, r := range s.Rules {
			rules = append(rules, compiledRule{
				key:        r.Key,
				unit:       strings.ToLower(r.Unit),
				all:        lowerAll(r.AllKeywords),
				anyOf:      lowerAll(r.AnyOfKeywords),
				exclude:    lowerAll(r.ExcludeKeywords),
				excludeIn:  lowerAll(r.ExcludeNameKeywords),
				maxResults: r.MaxResults,
			})
		}
		c.sectors[s.Sector] = rules
	}
	return c
}

// HasSector reports whether the table declares sector.
func (c *Classifier) HasSector(sector string) bool {
	_, ok := c.sectors[sector]
	return ok
}

// Classify returns the first rule of sector that cand satisfies. Unit and
// keywords are matched against the unit and the name; exclusions are matched
// against the name and the location (name-only exclusions against the name),
// and veto a rule whose keywords all matched.
func (c *Classifier) Classify(cand feed.Candidate, sector string) (Match, bool) {
	rules, ok := c.sectors[sector]
	if !ok {
		return Match{}, false
	}

	name := strings.ToLower(cand.Name)
	unit := strings.ToLower(cand.Unit)
	location := strings.ToLower(cand.Location)

	for i := range rules {
		r := &rules[i]
		if !strings.Contains(unit, r.unit) {
			continue
		}
		if !containsAll(name, r.all) {
			continue
		}
		if len(r.anyOf) > 0 && !containsAny(name, r.anyOf) {
			continue
		}
		if containsAny(name, r.exclude) || containsAny(location, r.exclude) || containsAny(name, r.excludeIn) {
			continue
		}
		return Match{Sector: sector, RuleKey: r.key, MaxResults: r.maxResults}, true
	}
	return Match{}, false
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

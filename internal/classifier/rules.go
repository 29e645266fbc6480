package classifier

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// RuleCriteria recognizes one canonical factor within a sector. Keyword and
// unit checks are case-insensitive substring matches. An empty AnyOfKeywords
// means the criterion is absent. ExcludeKeywords veto on the name or the
// location, ExcludeNameKeywords on the name alone.
type RuleCriteria struct {
	Key                 string   `yaml:"key"`
	AllKeywords         []string `yaml:"all_keywords"`
	AnyOfKeywords       []string `yaml:"any_of,omitempty"`
	ExcludeKeywords     []string `yaml:"exclude,omitempty"`
	ExcludeNameKeywords []string `yaml:"exclude_name,omitempty"`
	Unit                string   `yaml:"unit"`
	MaxResults          int      `yaml:"max_results"`
}

// SectorRules is the ordered rule list of one sector.
type SectorRules struct {
	Sector string         `yaml:"sector"`
	Rules  []RuleCriteria `yaml:"rules"`
}

// RuleTable maps sectors to their rules, both in declaration order.
type RuleTable struct {
	Sectors []SectorRules `yaml:"sectors"`
}

// SectorNames returns the sector names in declaration order.
func (t RuleTable) SectorNames() []string {
	names := make([]string, 0, len(t.Sectors))
	for _, s := range t.Sectors {
		names = append(names, s.Sector)
	}
	return names
}

// Validate rejects tables that would make classification ambiguous.
func (t RuleTable) Validate() error {
	seenSector := make(map[string]bool, len(t.Sectors))
	for _, s := range t.Sectors {
		if s.Sector == "" {
			return fmt.Errorf("rule table: sector with empty name")
		}
		if seenSector[s.Sector] {
			return fmt.Errorf("rule table: duplicate sector %q", s.Sector)
		}
		seenSector[s.Sector] = true

		seenKey := make(map[string]bool, len(s.Rules))
		for _, r := range s.Rules {
			if r.Key == "" {
				return fmt.Errorf("rule table: sector %q has a rule with empty key", s.Sector)
			}
			if seenKey[r.Key] {
				return fmt.Errorf("rule table: sector %q has duplicate rule %q", s.Sector, r.Key)
			}
			seenKey[r.Key] = true
			if r.MaxResults <= 0 {
				return fmt.Errorf("rule table: rule %s/%s max_results must be positive", s.Sector, r.Key)
			}
		}
	}
	return nil
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (RuleTable, error) {
	var t RuleTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return RuleTable{}, fmt.Errorf("parsing rule table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return RuleTable{}, err
	}
	return t, nil
}

// LoadRules reads a rule table from path, or returns DefaultRules when path is empty.
func LoadRules(path string) (RuleTable, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("reading rule table %s: %w", path, err)
	}
	return ParseRules(data)
}

// DefaultRules returns the built-in rule table.
func DefaultRules() RuleTable {
	t, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default_rules.yaml: %v", err))
	}
	return t
}

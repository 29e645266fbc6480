package classifier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"factorsync/internal/feed"
)

func candidate(name, unit, location string) feed.Candidate {
	return feed.Candidate{Name: name, Unit: unit, Value: decimal.RequireFromString("1.5"), Location: location}
}

func TestClassify_DefaultVehicleRules(t *testing.T) {
	c := New(DefaultRules())

	tests := []struct {
		name string
		cand feed.Candidate
		want string
	}{
		{"essence", candidate("Essence à la pompe", "litre", ""), "essence_sp95_sp98"},
		{"gazole routier", candidate("Gazole routier", "litre", "France continentale"), "gazole_routier"},
		{"gazole non routier", candidate("Gazole non routier", "kgCO2e/litre", ""), "gazole_routier"},
		{"thermal car", candidate("Voiture particulière thermique", "km", ""), "voiture_thermique_km"},
		{"average car", candidate("Voiture particulière - moyenne", "kgCO2e/km", ""), "voiture_thermique_km"},
		{"electric car", candidate("Voiture particulière électrique", "km", ""), "voiture_electrique_km"},
		{"electric car in France", candidate("Voiture particulière électrique", "km", "France continentale"), "voiture_electrique_km"},
		{"uppercase input", candidate("GAZOLE ROUTIER", "LITRE", ""), "gazole_routier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := c.Classify(tt.cand, "vehicles")
			assert.True(t, ok)
			assert.Equal(t, tt.want, m.RuleKey)
			assert.Equal(t, "vehicles", m.Sector)
		})
	}
}

func TestClassify_NoMatch(t *testing.T) {
	c := New(DefaultRules())

	tests := []struct {
		name string
		cand feed.Candidate
	}{
		{"wrong unit", candidate("Gazole routier", "kg", "")},
		{"missing keyword", candidate("Essence", "litre", "")},
		{"excluded bio", candidate("Biogazole", "litre", "")},
		{"hybrid car", candidate("Voiture particulière hybride thermique", "km", "")},
		{"france in car name", candidate("Voiture particulière électrique - France", "km", "")},
		{"france in thermal car name", candidate("Voiture particulière thermique France", "km", "France continentale")},
		{"car without any-of", candidate("Voiture particulière", "km", "")},
		{"unrelated", candidate("Repas végétarien", "repas", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Classify(tt.cand, "vehicles")
			assert.False(t, ok)
		})
	}
}

// An exclusion vetoes a rule even when every required keyword is present.
// Here the exclusion hits the location, which the extraction filter accepts.
func TestClassify_ExcludeTakesPrecedenceOverKeywords(t *testing.T) {
	table := RuleTable{Sectors: []SectorRules{{
		Sector: "vehicles",
		Rules: []RuleCriteria{{
			Key:             "essence_sp95_sp98",
			AllKeywords:     []string{"essence", "pompe"},
			ExcludeKeywords: []string{"bio", "france métropolitaine"},
			Unit:            "litre",
			MaxResults:      1,
		}},
	}}}
	c := New(table)

	cand := feed.Candidate{
		Name:     "Essence à la pompe",
		Unit:     "litre",
		Value:    decimal.RequireFromString("2.79"),
		Location: "France métropolitaine",
	}

	_, ok := c.Classify(cand, "vehicles")
	assert.False(t, ok)

	cand.Location = ""
	m, ok := c.Classify(cand, "vehicles")
	assert.True(t, ok)
	assert.Equal(t, "essence_sp95_sp98", m.RuleKey)
}

func TestClassify_FirstMatchWins(t *testing.T) {
	both := func(first, second string) RuleTable {
		return RuleTable{Sectors: []SectorRules{{
			Sector: "fuels",
			Rules: []RuleCriteria{
				{Key: first, AllKeywords: []string{"gazole"}, Unit: "litre", MaxResults: 5},
				{Key: second, AllKeywords: []string{"gazole", "routier"}, Unit: "litre", MaxResults: 5},
			},
		}}}
	}
	cand := candidate("Gazole routier", "litre", "")

	m, ok := New(both("generic", "specific")).Classify(cand, "fuels")
	assert.True(t, ok)
	assert.Equal(t, "generic", m.RuleKey)

	m, ok = New(both("specific", "generic")).Classify(cand, "fuels")
	assert.True(t, ok)
	assert.Equal(t, "specific", m.RuleKey)
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(DefaultRules())
	cand := candidate("Gazole routier", "litre", "")

	first, ok := c.Classify(cand, "vehicles")
	assert.True(t, ok)
	for i := 0; i < 50; i++ {
		m, ok := c.Classify(cand, "vehicles")
		assert.True(t, ok)
		assert.Equal(t, first, m)
	}
}

func TestClassify_UnknownSector(t *testing.T) {
	c := New(DefaultRules())

	_, ok := c.Classify(candidate("Gazole routier", "litre", ""), "food")

	assert.False(t, ok)
	assert.False(t, c.HasSector("food"))
	assert.True(t, c.HasSector("buildings"))
}

func TestClassify_BuildingRules(t *testing.T) {
	c := New(DefaultRules())

	m, ok := c.Classify(candidate("Gaz naturel - 2022 - mix moyen", "kgCO2e/kWh PCI", ""), "buildings")
	assert.True(t, ok)
	assert.Equal(t, "gaz_naturel_kwh", m.RuleKey)

	m, ok = c.Classify(candidate("Electricité - 2023 - mix moyen", "kWh", ""), "buildings")
	assert.False(t, ok, "unaccented label does not satisfy the accented keyword: %+v", m)
}

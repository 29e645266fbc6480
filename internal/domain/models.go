package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FactorSource is recorded on every factor created from the reference feed.
const FactorSource = "ADEME Base Carbone"

// EmissionFactor is a canonical conversion ratio persisted per (category, subcategory).
type EmissionFactor struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Subcategory string          `db:"subcategory" json:"subcategory"`
	Unit        string          `db:"unit" json:"unit"`
	FactorValue decimal.Decimal `db:"factor_value" json:"factor_value"`
	Source      string          `db:"source" json:"source"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// FeedConfiguration is the single stored row describing where the feed lives
// and which sectors a run processes by default.
type FeedConfiguration struct {
	ID                    int        `db:"id" json:"-"`
	CSVURL                string     `db:"csv_url" json:"csv_url"`
	UpdateFrequencyMonths int        `db:"update_frequency_months" json:"update_frequency_months"`
	LastUpdate            *time.Time `db:"last_update" json:"last_update,omitempty"`
	CSVVersion            string     `db:"csv_version" json:"csv_version"`
	ActiveSectors         SectorList `db:"active_sectors" json:"active_sectors"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// NextUpdate returns when the next refresh is due. ok is false when the feed
// was never imported. A month counts as 30 days.
func (c *FeedConfiguration) NextUpdate() (next time.Time, ok bool) {
	if c.LastUpdate == nil {
		return time.Time{}, false
	}
	return c.LastUpdate.Add(time.Duration(c.UpdateFrequencyMonths) * 30 * 24 * time.Hour), true
}

// IsUpdateDue reports whether the next refresh is due at now.
func (c *FeedConfiguration) IsUpdateDue(now time.Time) bool {
	next, ok := c.NextUpdate()
	if !ok {
		return true
	}
	return !now.Before(next)
}

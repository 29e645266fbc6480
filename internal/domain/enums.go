package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FeedConfigurationID is the primary key of the only feed_configuration row.
const FeedConfigurationID = 1

// UpsertOutcome tells whether FactorStore.Upsert inserted or modified a row.
type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
)

// SectorList is an ordered list of sector names stored as a JSON array.
type SectorList []string

// Value implements driver.Valuer.
func (s SectorList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SectorList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = SectorList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("SectorList.Scan: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("SectorList.Scan: %w", err)
	}
	*s = out
	return nil
}

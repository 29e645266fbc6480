package feed

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	minExclusive = decimal.Zero
	maxInclusive = decimal.NewFromInt(10000)
)

// Candidate is a normalized feed row that passed every extraction filter.
// Value always satisfies 0 < Value <= 10000.
type Candidate struct {
	Name     string
	Unit     string
	Value    decimal.Decimal
	Category string
	Status   string
	Location string
}

// SkipReason says why a row did not become a Candidate. SkipNone means it did.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipMalformedRow
	SkipMissingField
	SkipArchived
	SkipForeignLocation
	SkipUnparsableValue
	SkipOutOfRange
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipMalformedRow:
		return "malformed_row"
	case SkipMissingField:
		return "missing_field"
	case SkipArchived:
		return "archived"
	case SkipForeignLocation:
		return "foreign_location"
	case SkipUnparsableValue:
		return "unparsable_value"
	case SkipOutOfRange:
		return "out_of_range"
	default:
		return fmt.Sprintf("skip(%d)", int(r))
	}
}

// Extract applies the row filters in order; the first failing one is returned.
func Extract(rec RawRecord) (Candidate, SkipReason) {
	if rec.Truncated {
		return Candidate{}, SkipMalformedRow
	}

	name := strings.TrimSpace(rec.Name.Text)
	valueText := strings.TrimSpace(rec.Value.Text)
	if name == "" || valueText == "" {
		return Candidate{}, SkipMissingField
	}

	status := strings.TrimSpace(rec.Status.Text)
	if strings.Contains(strings.ToLower(status), "archivé") {
		return Candidate{}, SkipArchived
	}

	location := strings.TrimSpace(rec.Location.Text)
	if !acceptedLocation(location) {
		return Candidate{}, SkipForeignLocation
	}

	value, err := ParseLocaleDecimal(valueText)
	if err != nil {
		return Candidate{}, SkipUnparsableValue
	}
	if value.LessThanOrEqual(minExclusive) || value.GreaterThan(maxInclusive) {
		return Candidate{}, SkipOutOfRange
	}

	return Candidate{
		Name:     name,
		Unit:     strings.TrimSpace(rec.Unit.Text),
		Value:    value,
		Category: strings.TrimSpace(rec.Category.Text),
		Status:   status,
		Location: location,
	}, SkipNone
}

// acceptedLocation keeps France-wide and location-less (generic) factors.
func acceptedLocation(location string) bool {
	if location == "" {
		return true
	}
	lower := strings.ToLower(location)
	return strings.Contains(lower, "france") || lower == "fr"
}

// ParseLocaleDecimal parses a number written with a comma decimal separator.
func ParseLocaleDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

// ExtractStats counts rows per outcome for one extraction pass.
type ExtractStats struct {
	Rows     int
	Accepted int
	Skipped  map[SkipReason]int
}

// SkippedTotal returns the number of rows that did not become candidates.
func (s ExtractStats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// ExtractAll reads feed text and returns the candidates in feed order. Only a
// malformed header is an error; every row-level problem is counted as a skip.
func ExtractAll(text string, log *zap.Logger) ([]Candidate, ExtractStats, error) {
	stats := ExtractStats{Skipped: make(map[SkipReason]int)}

	read, err := ReadRecords(text)
	if err != nil {
		return nil, stats, err
	}
	stats.Rows = len(read.Records) + read.Malformed
	if read.Malformed > 0 {
		stats.Skipped[SkipMalformedRow] += read.Malformed
	}

	candidates := make([]Candidate, 0, len(read.Records)/8)
	for i := range read.Records {
		c, reason := Extract(read.Records[i])
		if reason != SkipNone {
			stats.Skipped[reason]++
			if ce := log.Check(zap.DebugLevel, "row skipped"); ce != nil {
				ce.Write(zap.Int("line", read.Records[i].Line), zap.Stringer("reason", reason))
			}
			continue
		}
		candidates = append(candidates, c)
	}
	stats.Accepted = len(candidates)

	log.Info("feed extracted",
		zap.Int("rows", stats.Rows),
		zap.Int("accepted", stats.Accepted),
		zap.Int("skipped", stats.SkippedTotal()))
	return candidates, stats, nil
}

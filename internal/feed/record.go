package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"factorsync/internal/domain"
)

// Column names exactly as published in the feed header.
const (
	ColumnName     = "Nom base français"
	ColumnUnit     = "Unité français"
	ColumnValue    = "Total poste non décomposé"
	ColumnStatus   = "Statut de l'élément"
	ColumnLocation = "Localisation géographique"
	ColumnCategory = "Catégorie de l'élément"
)

// Field is one named cell. Present is false when the header has no such column.
type Field struct {
	Text    string
	Present bool
}

// readColumns are the columns the extractor reads.
var readColumns = [...]string{ColumnName, ColumnUnit, ColumnValue, ColumnStatus, ColumnLocation, ColumnCategory}

// RawRecord is one feed row reduced to the columns the extractor reads.
// Truncated is set when the row ends before one of those columns; cells
// missing only from columns nobody reads do not count.
type RawRecord struct {
	Line      int
	Name      Field
	Unit      Field
	Value     Field
	Status    Field
	Location  Field
	Category  Field
	Truncated bool
}

// ReadResult holds parsed rows and the number of lines the CSV reader rejected.
type ReadResult struct {
	Records   []RawRecord
	Malformed int
}

// ReadRecords parses semicolon-delimited feed text with a header row.
// Rows that fail CSV syntax are counted and skipped; only a missing or
// unreadable header is fatal.
func ReadRecords(text string) (*ReadResult, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header row", domain.ErrMalformedFeed)
		}
		return nil, fmt.Errorf("%w: header: %v", domain.ErrMalformedFeed, err)
	}
	idx := indexHeader(header)

	res := &ReadResult{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.Malformed++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading feed: %w", err)
		}

		line, _ := r.FieldPos(0)
		rec := RawRecord{
			Line:      line,
			Truncated: idx.short(row),
		}
		rec.Name = idx.field(row, ColumnName)
		rec.Unit = idx.field(row, ColumnUnit)
		rec.Value = idx.field(row, ColumnValue)
		rec.Status = idx.field(row, ColumnStatus)
		rec.Location = idx.field(row, ColumnLocation)
		rec.Category = idx.field(row, ColumnCategory)
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
			h = strings.TrimPrefix(h, "ï»¿") // UTF-8 BOM read as Latin-1
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func (h headerIndex) field(row []string, column string) Field {
	i, ok := h[column]
	if !ok {
		return Field{}
	}
	if i >= len(row) {
		return Field{Present: true}
	}
	return Field{Text: row[i], Present: true}
}

func (h headerIndex) short(row []string) bool {
	for _, column := range readColumns {
		if i, ok := h[column]; ok && i >= len(row) {
			return true
		}
	}
	return false
}

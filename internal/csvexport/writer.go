package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"factorsync/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"ID",
	"Name",
	"Category",
	"Subcategory",
	"Unit",
	"Factor Value",
	"Source",
	"Active",
	"Created At",
	"Updated At",
}

// Writer wraps csv.Writer for exporting emission factors as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w. Excel in a French locale
// expects ';' as the separator, which sep selects.
func NewWriter(w io.Writer, sep rune) *Writer {
	cw := csv.NewWriter(w)
	if sep != 0 {
		cw.Comma = sep
	}
	return &Writer{csv: cw}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteFactors converts a batch of factors to CSV rows and writes them.
func (w *Writer) WriteFactors(factors []domain.EmissionFactor) error {
	for i := range factors {
		if err := w.csv.Write(factorToRow(&factors[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func factorToRow(f *domain.EmissionFactor) []string {
	return []string{
		f.ID.String(),
		f.Name,
		f.Category,
		f.Subcategory,
		f.Unit,
		f.FactorValue.String(),
		f.Source,
		formatBool(f.IsActive),
		f.CreatedAt.UTC().Format(time.RFC3339),
		f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces anything but [a-zA-Z0-9_-] with _, collapses
// runs of underscores and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns the default export file name for a set of sectors:
// factors_{sectors}_{YYYY-MM-DD}.csv
func BuildFilename(sectors []string, now time.Time) string {
	return fmt.Sprintf("factors_%s_%s.csv", SanitizeFilename(strings.Join(sectors, "_")), now.Format("2006-01-02"))
}

package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorsync/internal/domain"
)

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)
	require.NoError(t, w.WriteHeader())
	w.Flush()
	require.NoError(t, w.Error())

	r := csv.NewReader(&buf)
	row, err := r.Read()
	require.NoError(t, err)

	assert.Len(t, row, 10)
	assert.Equal(t, "ID", row[0])
	assert.Equal(t, "Factor Value", row[5])
	assert.Equal(t, "Updated At", row[9])
}

func TestWriteFactors(t *testing.T) {
	id := uuid.MustParse("8f14e45f-ceea-467f-a0e6-0f5c7d0b8a11")
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	factors := []domain.EmissionFactor{{
		ID:          id,
		Name:        "Gazole routier",
		Category:    "vehicles",
		Subcategory: "vehicles_gazole_routier",
		Unit:        "kgCO2e/litre",
		FactorValue: decimal.RequireFromString("3.17"),
		Source:      domain.FactorSource,
		IsActive:    true,
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Hour),
	}}

	var buf bytes.Buffer
	w := NewWriter(&buf, ';')
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteFactors(factors))
	w.Flush()
	require.NoError(t, w.Error())

	r := csv.NewReader(&buf)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{
		id.String(),
		"Gazole routier",
		"vehicles",
		"vehicles_gazole_routier",
		"kgCO2e/litre",
		"3.17",
		"ADEME Base Carbone",
		"Yes",
		"2026-01-02T03:04:05Z",
		"2026-01-02T04:04:05Z",
	}, rows[1])
}

func TestWriteFactors_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)
	require.NoError(t, w.WriteFactors(nil))
	w.Flush()
	assert.Empty(t, buf.String())
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "Yes", formatBool(true))
	assert.Equal(t, "No", formatBool(false))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"vehicles", "vehicles"},
		{"vehicles_buildings", "vehicles_buildings"},
		{"bâtiments & co", "b_timents_co"},
		{"__leading__", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := bytes.Repeat([]byte("a"), 150)
	assert.Len(t, SanitizeFilename(string(long)), 100)
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "factors_vehicles_buildings_2026-10-16.csv", BuildFilename([]string{"vehicles", "buildings"}, now))
}

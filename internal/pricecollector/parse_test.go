package pricecollector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_ValidRows(t *testing.T) {
	body := []byte("Date,Time,Open,High,Low,Close,Volume\n" +
		"2026-03-10,09:30:00,100.00,101.50,99.80,101.00,12000\n" +
		"2026-03-10,09:31:00,101.00,101.20,100.90,101.10,8000\n")

	result := ParseCSV("cdr", body)
	require.Len(t, result.Bars, 2)
	assert.Equal(t, 0, result.Malformed)
	assert.Equal(t, "CDR", result.Bars[0].Stock)
	assert.True(t, result.Bars[0].Valid())
}

func TestParseCSV_DropsMalformedRows(t *testing.T) {
	body := []byte("2026-03-10,09:30:00,100.00,101.50,99.80,101.00,12000\n" +
		"not,a,valid,row\n" +
		"2026-03-10,09:32:00,bad,101.50,99.80,101.00,12000\n")

	result := ParseCSV("CDR", body)
	assert.Len(t, result.Bars, 1)
	assert.Equal(t, 2, result.Malformed)
}

func TestParseCSV_DropsInvariantViolatingRow(t *testing.T) {
	// high < low
	body := []byte("2026-03-10,09:30:00,100.00,90.00,99.80,101.00,12000\n")
	result := ParseCSV("CDR", body)
	assert.Empty(t, result.Bars)
	assert.Equal(t, 1, result.Malformed)
}

func TestParseCSV_ConvertsWarsawLocalToUTC(t *testing.T) {
	// 09:30 Europe/Warsaw in January (CET, UTC+1) is 08:30 UTC.
	body := []byte("2026-01-15,09:30:00,100.00,101.50,99.80,101.00,12000\n")
	result := ParseCSV("CDR", body)
	require.Len(t, result.Bars, 1)
	assert.Equal(t, 8, result.Bars[0].Timestamp.Hour())
}

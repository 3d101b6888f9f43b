package pricecollector

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/clock"
	"github.com/gpwsignals/engine/internal/domain"
)

// ParseResult is the outcome of parsing one CSV body: the bars that
// parsed cleanly, plus a count of malformed rows dropped
// (spec.md §6 "malformed lines are dropped with a counted error").
type ParseResult struct {
	Bars      []domain.OHLCVBar
	Malformed int
}

// ParseCSV parses body as "Date,Time,Open,High,Low,Close,Volume" rows in
// Europe/Warsaw local time (the GPW source's local time zone) and
// converts each timestamp to UTC. An optional header row is detected and
// skipped.
func ParseCSV(symbol string, body []byte) ParseResult {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	var result ParseResult
	first := true
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if first {
			first = false
			if looksLikeHeader(record) {
				continue
			}
		}
		bar, err := parseRow(symbol, record)
		if err != nil {
			result.Malformed++
			continue
		}
		if !bar.Valid() {
			result.Malformed++
			continue
		}
		result.Bars = append(result.Bars, bar)
	}
	return result
}

func looksLikeHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := time.Parse("2006-01-02", record[0])
	return err != nil
}

func parseRow(symbol string, record []string) (domain.OHLCVBar, error) {
	if len(record) < 7 {
		return domain.OHLCVBar{}, fmt.Errorf("expected 7 fields, got %d", len(record))
	}
	date, timeStr := record[0], record[1]
	local, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+timeStr, clock.Warsaw)
	if err != nil {
		return domain.OHLCVBar{}, fmt.Errorf("parse timestamp %q %q: %w", date, timeStr, err)
	}

	open, err := decimal.NewFromString(record[2])
	if err != nil {
		return domain.OHLCVBar{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(record[3])
	if err != nil {
		return domain.OHLCVBar{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(record[4])
	if err != nil {
		return domain.OHLCVBar{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := decimal.NewFromString(record[5])
	if err != nil {
		return domain.OHLCVBar{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(record[6]), 10, 64)
	if err != nil {
		return domain.OHLCVBar{}, fmt.Errorf("parse volume: %w", err)
	}

	return domain.OHLCVBar{
		Stock:     strings.ToUpper(symbol),
		Timestamp: local.UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

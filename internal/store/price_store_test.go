package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestOHLCVStore_InsertAndBarsSince(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLOHLCVStore(db, zerolog.Nop())
	ctx := context.Background()

	base := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		bar := domain.OHLCVBar{
			Stock: "PKN", Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open: d("50.00"), High: d("50.50"), Low: d("49.50"), Close: d("50.20"), Volume: 1000,
		}
		require.NoError(t, s.Insert(ctx, bar))
	}

	bars, err := s.BarsSince(ctx, "PKN", base)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Timestamp.Equal(base.Add(time.Minute)))
}

func TestOHLCVStore_InsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLOHLCVStore(db, zerolog.Nop())
	ctx := context.Background()

	ts := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	bar := domain.OHLCVBar{Stock: "PKN", Timestamp: ts, Open: d("1"), High: d("1"), Low: d("1"), Close: d("1"), Volume: 1}
	require.NoError(t, s.Insert(ctx, bar))
	require.NoError(t, s.Insert(ctx, bar))

	bars, err := s.BarsInRange(ctx, "PKN", ts, ts)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestOHLCVStore_LatestClose(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLOHLCVStore(db, zerolog.Nop())
	ctx := context.Background()

	base := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, domain.OHLCVBar{Stock: "PKN", Timestamp: base, Open: d("1"), High: d("1"), Low: d("1"), Close: d("1"), Volume: 1}))
	require.NoError(t, s.Insert(ctx, domain.OHLCVBar{Stock: "PKN", Timestamp: base.Add(time.Minute), Open: d("2"), High: d("2"), Low: d("2"), Close: d("2"), Volume: 2}))

	latest, err := s.LatestClose(ctx, "PKN")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Close.Equal(d("2")))
}

func TestOHLCVStore_LatestClose_NoData(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLOHLCVStore(db, zerolog.Nop())

	latest, err := s.LatestClose(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

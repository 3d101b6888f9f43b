package outcome

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/store"
)

func TestSummarize_NoResolvedSignalsIsZeroValue(t *testing.T) {
	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	signals := store.NewSQLSignalStore(db, zerolog.Nop())
	summary, err := Summarize(context.Background(), signals, "PKN", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ResolvedCount)
	assert.Zero(t, summary.WinRatePct)
}

func TestSummarize_ComputesWinRateAndAvgReturn(t *testing.T) {
	tr, signals, bars, _ := setupTracker(t)
	ctx := context.Background()

	// target hit: +10% return
	created1 := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)
	sig1 := buySignal("PKN", created1)
	require.NoError(t, signals.InsertAndSupersede(ctx, sig1))
	require.NoError(t, bars.Insert(ctx, bar("PKN", created1.Add(time.Minute), "100", "112", "99", "111", 1000)))

	// stop hit: -5% return
	created2 := time.Date(2026, 6, 3, 10, 5, 0, 0, time.UTC)
	sig2 := buySignal("PKN", created2)
	require.NoError(t, signals.InsertAndSupersede(ctx, sig2))
	require.NoError(t, bars.Insert(ctx, bar("PKN", created2.Add(time.Minute), "100", "101", "94", "95", 1000)))

	resolved, err := tr.Run(ctx, created2.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, resolved)

	summary, err := Summarize(ctx, signals, "PKN", created1.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ResolvedCount)
	assert.Equal(t, 1, summary.TargetHitCount)
	assert.Equal(t, 1, summary.StopHitCount)
	assert.InDelta(t, 50.0, summary.WinRatePct, 0.01)
	assert.True(t, summary.AvgReturnPct > 0, "one +10%% and one -5%% averages positive")
}

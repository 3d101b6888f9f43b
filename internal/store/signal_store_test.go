package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/domain"
)

func sampleSignal(userID int64, stock string, sessionDate time.Time) *domain.TradingSignal {
	return &domain.TradingSignal{
		UserID: userID, Stock: stock, SessionDate: sessionDate, CreatedAt2: time.Now().UTC(),
		Type: domain.SignalBuy, Confidence: 70,
		PriceAtSignal: d("50"), TargetPrice: d("55"), StopLossPrice: d("48"), PositionShares: 10,
		Reason: domain.Reason{Kind: domain.ReasonTechnicalVotes, BullishVotes: []string{"rsi"}},
	}
}

func TestSignalStore_InsertAssignsID(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sig := sampleSignal(1, "PKN", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.InsertAndSupersede(ctx, sig))
	assert.NotZero(t, sig.ID)
}

func TestSignalStore_InsertSupersedesPriorOpenSignal(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sessionDate := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	first := sampleSignal(1, "PKN", sessionDate)
	require.NoError(t, s.InsertAndSupersede(ctx, first))

	second := sampleSignal(1, "PKN", sessionDate)
	second.Confidence = 80
	require.NoError(t, s.InsertAndSupersede(ctx, second))

	open, err := s.OpenSignals(ctx, sessionDate)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
}

func TestSignalStore_InsertDoesNotSupersedeOtherStock(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sessionDate := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	pkn := sampleSignal(1, "PKN", sessionDate)
	require.NoError(t, s.InsertAndSupersede(ctx, pkn))
	kgh := sampleSignal(1, "KGH", sessionDate)
	require.NoError(t, s.InsertAndSupersede(ctx, kgh))

	open, err := s.OpenSignals(ctx, sessionDate)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestSignalStore_MarkDispatchedAndUndispatchedList(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sig := sampleSignal(1, "PKN", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.InsertAndSupersede(ctx, sig))

	undispatched, err := s.UndispatchedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, undispatched, 1)

	require.NoError(t, s.MarkDispatched(ctx, sig.ID, time.Now()))

	undispatched, err = s.UndispatchedSignals(ctx)
	require.NoError(t, err)
	assert.Len(t, undispatched, 0)
}

func TestSignalStore_AttachOutcomeAndResolve_WriteOnce(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sig := sampleSignal(1, "PKN", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.InsertAndSupersede(ctx, sig))

	outcome := domain.SignalOutcome{
		SignalID: sig.ID, Resolution: domain.ResolutionTargetHit,
		ExitPrice: d("55"), ExitAt: time.Now().UTC(), RealisedReturnPct: d("10"), HoldingMinutes: 45,
	}
	require.NoError(t, s.AttachOutcomeAndResolve(ctx, outcome))

	err := s.AttachOutcomeAndResolve(ctx, outcome)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	open, err := s.OpenSignals(ctx, time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, open, 0)
}

func TestSignalStore_ExpireUndispatched(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sig := sampleSignal(1, "PKN", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	sig.CreatedAt2 = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.InsertAndSupersede(ctx, sig))

	n, err := s.ExpireUndispatched(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	undispatched, err := s.UndispatchedSignals(ctx)
	require.NoError(t, err)
	assert.Len(t, undispatched, 0)
}

func TestSignalStore_RecordDelivery(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLSignalStore(db, zerolog.Nop())
	ctx := context.Background()

	sig := sampleSignal(1, "PKN", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.InsertAndSupersede(ctx, sig))

	err := s.RecordDelivery(ctx, domain.ChannelDelivery{
		SignalID: sig.ID, Channel: domain.ChannelTelegram, Status: "delivered", Attempts: 1,
	})
	require.NoError(t, err)
}

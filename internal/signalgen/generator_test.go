package signalgen

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/config"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/newsanalyzer"
	"github.com/gpwsignals/engine/internal/store"
)

type fakeNews struct {
	agg newsanalyzer.Aggregate
	err error
}

func (f fakeNews) Aggregate(ctx context.Context, symbol string, lookback time.Duration, now time.Time) (newsanalyzer.Aggregate, error) {
	return f.agg, f.err
}

func newTestGenerator(t *testing.T, news NewsAnalyzer) (*Generator, *store.DB) {
	t.Helper()
	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	stocks := store.NewSQLStockStore(db, zerolog.Nop())
	bars := store.NewSQLOHLCVStore(db, zerolog.Nop())
	signals := store.NewSQLSignalStore(db, zerolog.Nop())
	users := store.NewSQLUserStore(db, zerolog.Nop())

	g := New(stocks, bars, signals, news, users, nil, config.ProfileBalanced, zerolog.Nop())
	return g, db
}

func seedStock(t *testing.T, db *store.DB, symbol string, monitored bool) {
	t.Helper()
	require.NoError(t, store.NewSQLStockStore(db, zerolog.Nop()).Upsert(context.Background(), domain.Stock{
		Symbol: symbol, Name: symbol, IsMonitored: monitored, Market: "GPW",
	}))
}

func seedUser(t *testing.T, db *store.DB, userID int64, p domain.UserPreferences) {
	t.Helper()
	p.UserID = userID
	require.NoError(t, store.NewSQLUserStore(db, zerolog.Nop()).Upsert(context.Background(), p))
}

func sampleSignal(userID int64, stock string, typ domain.SignalType, price string, at time.Time) *domain.TradingSignal {
	p := decimal.RequireFromString(price)
	return &domain.TradingSignal{
		UserID: userID, Stock: stock, SessionDate: time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt2: at, Type: typ, Confidence: 70, PriceAtSignal: p,
		TargetPrice: p.Mul(decimal.NewFromFloat(1.03)), StopLossPrice: p.Mul(decimal.NewFromFloat(0.98)),
		Reason: domain.Reason{Kind: domain.ReasonTechnicalVotes},
	}
}

func TestGenerate_UnmonitoredStockReturnsNil(t *testing.T) {
	g, db := newTestGenerator(t, fakeNews{})
	seedStock(t, db, "CDR", false)
	seedUser(t, db, 1, domain.UserPreferences{TradingStyle: domain.StyleModerate, MinConfidenceThreshold: 60})

	sig, err := g.Generate(context.Background(), 1, "CDR", time.Now())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestGenerate_NoPreferencesReturnsNil(t *testing.T) {
	g, db := newTestGenerator(t, fakeNews{})
	seedStock(t, db, "CDR", true)

	sig, err := g.Generate(context.Background(), 99, "CDR", time.Now())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestGenerate_InsufficientBarsYieldsHoldInsufficientData(t *testing.T) {
	g, db := newTestGenerator(t, fakeNews{})
	seedStock(t, db, "CDR", true)
	seedUser(t, db, 1, domain.UserPreferences{TradingStyle: domain.StyleModerate, MinConfidenceThreshold: 60, AvailableCapital: decimal.NewFromInt(10000)})

	now := time.Now().UTC()
	bars := store.NewSQLOHLCVStore(db, zerolog.Nop())
	require.NoError(t, bars.Insert(context.Background(), domain.OHLCVBar{
		Stock: "CDR", Timestamp: now, Open: decimal.NewFromInt(100), High: decimal.NewFromInt(101),
		Low: decimal.NewFromInt(99), Close: decimal.NewFromInt(100), Volume: 1000,
	}))

	sig, err := g.Generate(context.Background(), 1, "CDR", now)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalHold, sig.Type)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, domain.ReasonInsufficientData, sig.Reason.Kind)
}

func TestGenerate_BelowMinDailyVolumeSkips(t *testing.T) {
	g, db := newTestGenerator(t, fakeNews{})
	seedStock(t, db, "CDR", true)
	seedUser(t, db, 1, domain.UserPreferences{TradingStyle: domain.StyleModerate, MinDailyVolume: 1_000_000})

	now := time.Now().UTC()
	bars := store.NewSQLOHLCVStore(db, zerolog.Nop())
	require.NoError(t, bars.Insert(context.Background(), domain.OHLCVBar{
		Stock: "CDR", Timestamp: now, Open: decimal.NewFromInt(100), High: decimal.NewFromInt(101),
		Low: decimal.NewFromInt(99), Close: decimal.NewFromInt(100), Volume: 10,
	}))

	sig, err := g.Generate(context.Background(), 1, "CDR", now)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestPersist_RejectsSameTypeDuplicate(t *testing.T) {
	g, _ := newTestGenerator(t, fakeNews{})
	now := time.Now().UTC()
	prefs := &domain.UserPreferences{}

	first := sampleSignal(1, "KGH", domain.SignalBuy, "100.00", now)
	out, err := g.persist(context.Background(), first, prefs)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.NotZero(t, out.ID)

	second := sampleSignal(1, "KGH", domain.SignalBuy, "101.00", now.Add(time.Minute))
	out2, err := g.persist(context.Background(), second, prefs)
	require.NoError(t, err)
	assert.Nil(t, out2, "a same-type open duplicate must be rejected")
}

func TestPersist_OppositeTypeSupersedesAndCancels(t *testing.T) {
	g, db := newTestGenerator(t, fakeNews{})
	now := time.Now().UTC()
	prefs := &domain.UserPreferences{}

	buy := sampleSignal(1, "KGH", domain.SignalBuy, "100.00", now)
	_, err := g.persist(context.Background(), buy, prefs)
	require.NoError(t, err)

	sell := sampleSignal(1, "KGH", domain.SignalSell, "101.00", now.Add(30*time.Minute))
	out, err := g.persist(context.Background(), sell, prefs)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.NotEqual(t, buy.ID, out.ID)

	signals := store.NewSQLSignalStore(db, zerolog.Nop())
	open, err := signals.OpenSignalForKey(context.Background(), 1, "KGH", sell.SessionDate)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, domain.SignalSell, open.Type, "the sell is now the only live signal for the pair")
}

func TestApplyNewsAdjustment_NeverTouchesZeroConfidenceCandidate(t *testing.T) {
	g, _ := newTestGenerator(t, fakeNews{})
	sig := &domain.TradingSignal{Type: domain.SignalHold, Confidence: 0, Reason: domain.Reason{Kind: domain.ReasonInsufficientData}}
	g.applyNewsAdjustment(sig, newsanalyzer.Aggregate{WeightedSentiment: 0.9, TotalWeight: 5, ImpactLevel: domain.ImpactVeryHigh})
	assert.Equal(t, domain.SignalHold, sig.Type)
	assert.False(t, sig.ModifiedByNews)
}

func TestApplyNewsAdjustment_VetoesBuyOnStrongNegativeNews(t *testing.T) {
	g, _ := newTestGenerator(t, fakeNews{})
	sig := &domain.TradingSignal{Type: domain.SignalBuy, Confidence: 60, Reason: domain.Reason{Kind: domain.ReasonTechnicalVotes}}
	g.applyNewsAdjustment(sig, newsanalyzer.Aggregate{WeightedSentiment: -0.72, TotalWeight: 5, ImpactLevel: domain.ImpactVeryHigh})
	assert.Equal(t, domain.SignalHold, sig.Type)
	assert.Equal(t, domain.ReasonNewsVeto, sig.Reason.Kind)
}

func TestApplyNewsAdjustment_ConvertsHoldOnVeryStrongNews(t *testing.T) {
	g, _ := newTestGenerator(t, fakeNews{})
	sig := &domain.TradingSignal{Type: domain.SignalHold, Confidence: 55, Reason: domain.Reason{Kind: domain.ReasonTechnicalVotes}}
	g.applyNewsAdjustment(sig, newsanalyzer.Aggregate{WeightedSentiment: 0.85, TotalWeight: 5, ImpactLevel: domain.ImpactVeryHigh})
	assert.Equal(t, domain.SignalBuy, sig.Type)
	assert.True(t, sig.ModifiedByNews)
}

func TestApplyRiskEnvelope_BuyAndFloorSharesSizing(t *testing.T) {
	g, _ := newTestGenerator(t, fakeNews{})
	sig := &domain.TradingSignal{Type: domain.SignalBuy, PriceAtSignal: decimal.RequireFromString("265.20")}
	prefs := domain.UserPreferences{
		TradingStyle: domain.StyleModerate, AvailableCapital: decimal.NewFromInt(10000),
		MaxPositionSizePct: decimal.NewFromFloat(0.10), MinPositionValue: decimal.NewFromInt(100),
	}
	g.applyRiskEnvelope(sig, prefs)
	assert.True(t, sig.TargetPrice.Equal(decimal.RequireFromString("273.1560")))
	assert.True(t, sig.StopLossPrice.Equal(decimal.RequireFromString("259.8960")))
	assert.Equal(t, int64(3), sig.PositionShares) // floor(1000/265.20) = 3
}

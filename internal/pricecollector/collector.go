package pricecollector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/store"
	"github.com/gpwsignals/engine/internal/workerpool"
)

// symbolResult is the per-symbol outcome of one collection pass.
type symbolResult struct {
	symbol    string
	inserted  int
	malformed int
	err       error
}

// Collector fans price collection out across the monitored universe,
// rate-limited and worker-pool bounded per spec.md §4.3 and §5.
type Collector struct {
	client  *Client
	stocks  store.StockStore
	bars    store.OHLCVStore
	limiter *rate.Limiter
	pool    *workerpool.Pool
	log     zerolog.Logger
}

// New builds a Collector. requestsPerSecond bounds the aggregate fetch
// rate across all symbols; maxConcurrency bounds parallel workers.
func New(client *Client, stocks store.StockStore, bars store.OHLCVStore, requestsPerSecond float64, maxConcurrency int, log zerolog.Logger) *Collector {
	return &Collector{
		client:  client,
		stocks:  stocks,
		bars:    bars,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		pool:    workerpool.New(maxConcurrency),
		log:     log.With().Str("component", "pricecollector").Logger(),
	}
}

// Run fetches and persists bars for every monitored stock. It returns
// the number of bars inserted and never fails the batch for a single
// symbol's error: per-symbol failures are isolated and logged
// (spec.md §7 "Malformed-input"/"Transient-external").
func (c *Collector) Run(ctx context.Context) (inserted int, err error) {
	stocks, err := c.stocks.ListMonitored(ctx)
	if err != nil {
		return 0, fmt.Errorf("pricecollector: list monitored stocks: %w", err)
	}

	results := workerpool.Map(ctx, c.pool, stocks, c.collectOne)
	for _, r := range results {
		if r.err != nil {
			c.log.Warn().Err(r.err).Str("symbol", r.symbol).Msg("price collection failed for symbol")
			continue
		}
		inserted += r.inserted
		if r.malformed > 0 {
			c.log.Warn().Str("symbol", r.symbol).Int("malformed_rows", r.malformed).Msg("dropped malformed ohlcv rows")
		}
	}
	return inserted, nil
}

func (c *Collector) collectOne(ctx context.Context, stock domain.Stock) symbolResult {
	if err := c.limiter.Wait(ctx); err != nil {
		return symbolResult{symbol: stock.Symbol, err: err}
	}

	body, err := c.client.FetchCSV(ctx, stock.Symbol)
	if err != nil {
		return symbolResult{symbol: stock.Symbol, err: err}
	}

	parsed := ParseCSV(stock.Symbol, body)
	inserted := 0
	for _, bar := range parsed.Bars {
		if err := c.bars.Insert(ctx, bar); err != nil {
			return symbolResult{symbol: stock.Symbol, inserted: inserted, err: fmt.Errorf("insert bar: %w", err)}
		}
		inserted++
	}
	return symbolResult{symbol: stock.Symbol, inserted: inserted, malformed: parsed.Malformed}
}

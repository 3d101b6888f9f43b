package pricecollector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/reliability"
	"github.com/gpwsignals/engine/internal/store"
)

func TestCollector_Run_FetchesAndPersistsBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "2026-03-10,09:30:00,100.00,101.50,99.80,101.00,12000\n")
	}))
	defer srv.Close()

	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(context.Background()))

	stocks := store.NewSQLStockStore(db, zerolog.Nop())
	require.NoError(t, stocks.Upsert(context.Background(), domain.Stock{Symbol: "CDR", Name: "CD Projekt", IsMonitored: true}))

	bars := store.NewSQLOHLCVStore(db, zerolog.Nop())
	client := NewClient(srv.URL+"/%s", reliability.Backoff{Base: time.Millisecond, Cap: time.Millisecond}, zerolog.Nop())
	collector := New(client, stocks, bars, 1000, 4, zerolog.Nop())

	inserted, err := collector.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	got, err := bars.LatestClose(context.Background(), "CDR")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestCollector_Run_IsolatesPerSymbolFailures(t *testing.T) {
	callCount := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		if r.URL.Path == "/BAD" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "2026-03-10,09:30:00,100.00,101.50,99.80,101.00,12000\n")
	}))
	defer srv.Close()

	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(context.Background()))

	stocks := store.NewSQLStockStore(db, zerolog.Nop())
	require.NoError(t, stocks.Upsert(context.Background(), domain.Stock{Symbol: "BAD", Name: "Broken", IsMonitored: true}))
	require.NoError(t, stocks.Upsert(context.Background(), domain.Stock{Symbol: "OK", Name: "Fine", IsMonitored: true}))

	bars := store.NewSQLOHLCVStore(db, zerolog.Nop())
	client := NewClient(srv.URL+"/%s", reliability.Backoff{Base: time.Millisecond, Cap: time.Millisecond}, zerolog.Nop())
	collector := New(client, stocks, bars, 1000, 4, zerolog.Nop())

	inserted, err := collector.Run(context.Background())
	require.NoError(t, err, "one symbol's transient failure must not fail the whole batch")
	require.Equal(t, 1, inserted)
}

package newscollector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/config"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/sentiment"
	"github.com/gpwsignals/engine/internal/store"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Feed</title>
<item>
  <title>CD Projekt ogłasza wyniki</title>
  <link>https://example.com/1</link>
  <description>CDR reported strong quarterly results.</description>
  <pubDate>Mon, 02 Jan 2026 10:00:00 +0100</pubDate>
</item>
<item>
  <title>Unrelated headline</title>
  <link>https://example.com/2</link>
  <description>Nothing about any monitored company here.</description>
</item>
<item>
  <title>Missing link item</title>
  <description>CDR mention but no link.</description>
</item>
</channel></rss>`

func setupDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestCollector_Run_MatchesAndInsertsRelevantArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	db := setupDB(t)
	stocks := store.NewSQLStockStore(db, zerolog.Nop())
	require.NoError(t, stocks.Upsert(context.Background(), domain.Stock{Symbol: "CDR", Name: "CD Projekt", IsMonitored: true}))

	news := store.NewSQLNewsStore(db, zerolog.Nop())
	c := New(stocks, news, []config.FeedConfig{{Source: "test-feed", URL: srv.URL, Enabled: true}}, sentiment.StubClassifier{}, 4, zerolog.Nop())

	inserted, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inserted, "only the CDR-mentioning item with a link should be stored")

	articles, err := news.Unclassified(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, articles, "Run classifies new articles before returning")
}

func TestCollector_Run_DisabledFeedIsSkipped(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	db := setupDB(t)
	stocks := store.NewSQLStockStore(db, zerolog.Nop())
	news := store.NewSQLNewsStore(db, zerolog.Nop())
	c := New(stocks, news, []config.FeedConfig{{Source: "test-feed", URL: srv.URL, Enabled: false}}, sentiment.StubClassifier{}, 4, zerolog.Nop())

	inserted, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.False(t, called)
}

func TestCollector_Run_ClassifiesNewArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	db := setupDB(t)
	stocks := store.NewSQLStockStore(db, zerolog.Nop())
	require.NoError(t, stocks.Upsert(context.Background(), domain.Stock{Symbol: "CDR", Name: "CD Projekt", IsMonitored: true}))

	news := store.NewSQLNewsStore(db, zerolog.Nop())
	c := New(stocks, news, []config.FeedConfig{{Source: "test-feed", URL: srv.URL, Enabled: true}}, sentiment.StubClassifier{}, 4, zerolog.Nop())

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	recent, err := news.RecentForStock(context.Background(), "CDR", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.True(t, recent[0].HasClassification())
	assert.Equal(t, domain.SentimentNeutral, recent[0].Classification.OverallSentiment)
}

func TestStockMatcher_WordBoundaryCaseInsensitive(t *testing.T) {
	m := newStockMatcher([]domain.Stock{{Symbol: "PKN", Name: "PKN Orlen"}})
	assert.ElementsMatch(t, []string{"PKN"}, m.match("pkn orlen reports record profit"))
	assert.Empty(t, m.match("PKNfoo is unrelated"))
}

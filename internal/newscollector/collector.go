// Package newscollector ingests RSS/Atom news feeds (spec.md §4.4, §6
// "RSS news feeds") via github.com/mmcdole/gofeed -- no teacher or pack
// example parses RSS, so this is an out-of-pack ecosystem pick (see
// DESIGN.md) -- matches each item against the monitored stock universe,
// and inserts new articles idempotently by URL.
package newscollector

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/config"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/sentiment"
	"github.com/gpwsignals/engine/internal/store"
	"github.com/gpwsignals/engine/internal/workerpool"
)

const feedTimeout = 10 * time.Second

// classifyBacklog bounds how many unclassified articles one Run call
// drains, so a sudden backlog can't make a single collection cycle run
// unboundedly long.
const classifyBacklog = 5

type feedResult struct {
	source    string
	fetched   int
	inserted  int
	malformed int
	err       error
}

// Collector fetches every enabled feed, matches items against the
// monitored universe by symbol/name keyword, and stores new articles.
type Collector struct {
	parser     *gofeed.Parser
	stocks     store.StockStore
	news       store.NewsStore
	feeds      []config.FeedConfig
	classifier sentiment.Classifier
	pool       *workerpool.Pool
	log        zerolog.Logger
}

// New builds a Collector over the enabled feeds in feeds. classifier
// assigns sentiment/impact to newly-ingested articles (spec.md §4.5);
// pass sentiment.StubClassifier{} when no external provider is
// configured.
func New(stocks store.StockStore, news store.NewsStore, feeds []config.FeedConfig, classifier sentiment.Classifier, maxConcurrency int, log zerolog.Logger) *Collector {
	return &Collector{
		parser:     gofeed.NewParser(),
		stocks:     stocks,
		news:       news,
		feeds:      feeds,
		classifier: classifier,
		pool:       workerpool.New(maxConcurrency),
		log:        log.With().Str("component", "newscollector").Logger(),
	}
}

// Run fetches all enabled feeds, then classifies any article left
// unclassified (new ones from this cycle plus any backlog from a prior
// failed classification), returning the number of newly inserted
// articles. Per-feed failures are isolated (spec.md §7
// "Transient-external").
func (c *Collector) Run(ctx context.Context) (inserted int, err error) {
	stocks, err := c.stocks.ListMonitored(ctx)
	if err != nil {
		return 0, fmt.Errorf("newscollector: list monitored stocks: %w", err)
	}
	matcher := newStockMatcher(stocks)

	var enabled []config.FeedConfig
	for _, f := range c.feeds {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}

	results := workerpool.Map(ctx, c.pool, enabled, func(ctx context.Context, f config.FeedConfig) feedResult {
		return c.collectFeed(ctx, f, matcher)
	})

	for _, r := range results {
		if r.err != nil {
			c.log.Warn().Err(r.err).Str("source", r.source).Msg("feed collection failed")
			continue
		}
		inserted += r.inserted
		if r.malformed > 0 {
			c.log.Warn().Str("source", r.source).Int("malformed_items", r.malformed).Msg("dropped feed entries without a URL")
		}
	}

	if err := c.classifyBacklog(ctx); err != nil {
		c.log.Warn().Err(err).Msg("news classification pass failed")
	}
	return inserted, nil
}

// classifyBacklog drains up to classifyBacklog unclassified articles
// through the sentiment Classifier, fanned out across the worker pool.
func (c *Collector) classifyBacklog(ctx context.Context) error {
	articles, err := c.news.Unclassified(ctx, classifyBacklog)
	if err != nil {
		return fmt.Errorf("list unclassified: %w", err)
	}
	if len(articles) == 0 {
		return nil
	}

	workerpool.Map(ctx, c.pool, articles, func(ctx context.Context, a domain.NewsArticle) struct{} {
		classification, err := c.classifier.Classify(ctx, a)
		if err != nil {
			c.log.Warn().Err(err).Int64("article_id", a.ID).Msg("classification failed")
			return struct{}{}
		}
		if err := c.news.SetClassification(ctx, a.ID, classification); err != nil {
			c.log.Warn().Err(err).Int64("article_id", a.ID).Msg("persist classification failed")
		}
		return struct{}{}
	})
	return nil
}

func (c *Collector) collectFeed(ctx context.Context, f config.FeedConfig, matcher stockMatcher) feedResult {
	fetchCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	feed, err := c.parser.ParseURLWithContext(f.URL, fetchCtx)
	if err != nil {
		return feedResult{source: f.Source, err: fmt.Errorf("parse feed %s: %w", f.URL, err)}
	}

	result := feedResult{source: f.Source, fetched: len(feed.Items)}
	for _, item := range feed.Items {
		if item.Link == "" {
			result.malformed++
			continue
		}

		mentioned := matcher.match(item.Title + " " + item.Description)
		if len(mentioned) == 0 {
			continue
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		isNew, err := c.news.InsertIfNew(ctx, domain.NewsArticle{
			Source:          f.Source,
			URL:             item.Link,
			PublishedAt:     published,
			Title:           item.Title,
			Body:            item.Description,
			MentionedStocks: mentioned,
		})
		if err != nil {
			return feedResult{source: f.Source, fetched: result.fetched, inserted: result.inserted, err: fmt.Errorf("insert article: %w", err)}
		}
		if isNew {
			result.inserted++
		}
	}
	return result
}

// stockMatcher does case-insensitive, word-boundary matching of article
// text against the monitored universe's symbols and names
// (spec.md §4.4).
type stockMatcher struct {
	patterns map[string]*regexp.Regexp
}

func newStockMatcher(stocks []domain.Stock) stockMatcher {
	m := stockMatcher{patterns: make(map[string]*regexp.Regexp, len(stocks))}
	for _, s := range stocks {
		terms := []string{regexp.QuoteMeta(s.Symbol)}
		if s.Name != "" {
			terms = append(terms, regexp.QuoteMeta(s.Name))
		}
		pattern := `(?i)\b(` + strings.Join(terms, "|") + `)\b`
		m.patterns[s.Symbol] = regexp.MustCompile(pattern)
	}
	return m
}

func (m stockMatcher) match(text string) []string {
	var out []string
	for symbol, re := range m.patterns {
		if re.MatchString(text) {
			out = append(out, symbol)
		}
	}
	return out
}

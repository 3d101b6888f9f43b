package domain

import "time"

// StockSentiment is a single stock's slice of a Classification's sentiment.
type StockSentiment struct {
	Symbol         string  `json:"symbol"`
	SentimentScore float64 `json:"sentiment_score"` // [-1, +1]
	Confidence     float64 `json:"confidence"`       // [0, 1]
	Relevance      float64 `json:"relevance"`         // [0, 1]
}

// Classification is the AI-assigned sentiment/impact attached to an
// article. Written at most once.
type Classification struct {
	OverallSentiment Sentiment        `json:"overall_sentiment"`
	SentimentScore   float64          `json:"sentiment_score"` // [-1, +1]
	Confidence       float64          `json:"confidence"`       // [0, 1]
	Impact           ImpactLevel      `json:"impact"`
	PerStock         []StockSentiment `json:"per_stock"`
	ClassifiedAt     time.Time        `json:"classified_at"`
}

// NewsArticle is a collected Polish-language financial news item. Created
// by the News Collector; mutated at most once, when a Classification is
// attached.
type NewsArticle struct {
	Base
	ID              int64            `json:"id"`
	Source          string           `json:"source"`
	URL             string           `json:"url"` // unique
	PublishedAt     time.Time        `json:"published_at"` // UTC
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	MentionedStocks []string         `json:"mentioned_stocks"`
	Classification  *Classification  `json:"classification,omitempty"` // nil until processed
}

// HasClassification reports whether the article has been scored yet.
func (a NewsArticle) HasClassification() bool {
	return a.Classification != nil
}
